package service

import (
	"sync"
	"time"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// KnowledgeIndex is the in-memory knowledge index for one workspace: the
// ordered chunks of its knowledge text and their embeddings. An index is
// replaced wholesale on rebuild, never merged. All chunks in one index share
// the same embedding dimensionality.
type KnowledgeIndex struct {
	Chunks    []domain.Chunk
	CreatedAt time.Time
}

// ChunkCount returns the number of chunks in the index.
func (idx *KnowledgeIndex) ChunkCount() int {
	return len(idx.Chunks)
}

// Info summarizes the index.
func (idx *KnowledgeIndex) Info() *domain.IndexInfo {
	return &domain.IndexInfo{
		ChunkCount: len(idx.Chunks),
		CreatedAt:  idx.CreatedAt,
		HasData:    len(idx.Chunks) > 0,
	}
}

// IndexStore holds knowledge indexes keyed by workspace ID. Replace is atomic
// with respect to Get: a concurrent reader observes either the old index in
// full or the new one in full. Returned indexes must be treated as immutable.
type IndexStore interface {
	Get(workspaceID string) (*KnowledgeIndex, bool)
	Replace(workspaceID string, idx *KnowledgeIndex)
	Delete(workspaceID string)
}

// MemoryIndexStore is the process-local IndexStore. One instance is created
// at startup and injected into the retrieval service.
type MemoryIndexStore struct {
	mu      sync.RWMutex
	indexes map[string]*KnowledgeIndex
}

// NewMemoryIndexStore creates an empty MemoryIndexStore.
func NewMemoryIndexStore() *MemoryIndexStore {
	return &MemoryIndexStore{
		indexes: make(map[string]*KnowledgeIndex),
	}
}

// Get returns the index for a workspace, if one has been built.
func (s *MemoryIndexStore) Get(workspaceID string) (*KnowledgeIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[workspaceID]
	return idx, ok
}

// Replace installs a new index for the workspace, superseding any previous
// one in a single pointer swap.
func (s *MemoryIndexStore) Replace(workspaceID string, idx *KnowledgeIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[workspaceID] = idx
}

// Delete removes the index for a workspace.
func (s *MemoryIndexStore) Delete(workspaceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, workspaceID)
}
