package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/telemetry"
)

// DefaultTopK is the number of chunks returned by a similarity search.
const DefaultTopK = 3

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient defines the interface for generating text completions
type CompletionClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// ProviderFactory resolves provider clients for a workspace API key. An empty
// key selects the process-wide fallback credentials.
type ProviderFactory interface {
	Embedder(apiKey string) (EmbeddingClient, error)
	Completer(apiKey string) (CompletionClient, error)
}

// ChunkCacheRepository persists built chunks so an index can be warm-started
// after a restart without re-embedding. Best-effort: the in-memory index is
// the source of truth for queries, and the cache is rebuildable.
type ChunkCacheRepository interface {
	ReplaceChunks(ctx context.Context, workspaceID string, builtAt time.Time, chunks []domain.Chunk) error
	LoadChunks(ctx context.Context, workspaceID string) ([]domain.Chunk, time.Time, error)
	DeleteChunks(ctx context.Context, workspaceID string) error
}

// RetrievalService builds per-workspace knowledge indexes and serves
// similarity searches over them. Indexes are owned exclusively by this
// service and looked up by workspace ID.
type RetrievalService struct {
	store     IndexStore
	providers ProviderFactory
	cache     ChunkCacheRepository
	chunkSize int
}

// NewRetrievalService creates a RetrievalService without a persistent chunk
// cache.
func NewRetrievalService(store IndexStore, providers ProviderFactory) *RetrievalService {
	return NewRetrievalServiceWithCache(store, providers, nil)
}

// NewRetrievalServiceWithCache creates a RetrievalService that additionally
// persists built chunks through the given cache repository.
func NewRetrievalServiceWithCache(store IndexStore, providers ProviderFactory, cache ChunkCacheRepository) *RetrievalService {
	return &RetrievalService{
		store:     store,
		providers: providers,
		cache:     cache,
		chunkSize: DefaultChunkSize,
	}
}

// BuildIndex chunks the knowledge text, embeds each chunk and atomically
// replaces the workspace index. A chunk whose embedding call fails is dropped
// (logged, not retried) and does not abort the build. Returns the number of
// chunks successfully embedded.
func (s *RetrievalService) BuildIndex(ctx context.Context, workspaceID, knowledgeText, apiKey string, chunkSize int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.BuildIndex", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "build_index",
	})
	defer span.End()

	embedder, err := s.providers.Embedder(apiKey)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeConfigurationMissing, "no embedding credentials", err)
	}

	if chunkSize <= 0 {
		chunkSize = s.chunkSize
	}

	texts := ChunkText(knowledgeText, chunkSize)
	createdAt := time.Now().UTC()

	chunks := make([]domain.Chunk, 0, len(texts))
	dimension := 0
	for i, text := range texts {
		embedding, err := embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			log.Printf("build index: dropping chunk %d for workspace %s: %v", i, workspaceID, err)
			continue
		}
		if dimension == 0 {
			dimension = len(embedding)
		} else if len(embedding) != dimension {
			log.Printf("build index: dropping chunk %d for workspace %s: dimension mismatch", i, workspaceID)
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:        i,
			Text:      text,
			Embedding: embedding,
			CreatedAt: createdAt,
		})
	}

	s.store.Replace(workspaceID, &KnowledgeIndex{Chunks: chunks, CreatedAt: createdAt})
	log.Printf("build index: workspace %s indexed with %d chunks", workspaceID, len(chunks))

	if s.cache != nil {
		if err := s.cache.ReplaceChunks(ctx, workspaceID, createdAt, chunks); err != nil {
			log.Printf("build index: failed to persist chunk cache for workspace %s: %v", workspaceID, err)
		}
	}

	return len(chunks), nil
}

// RebuildIndex deletes any existing index for the workspace and builds a new
// one from the given knowledge text.
func (s *RetrievalService) RebuildIndex(ctx context.Context, workspaceID, knowledgeText, apiKey string, chunkSize int) (int, error) {
	s.DeleteIndex(ctx, workspaceID)
	return s.BuildIndex(ctx, workspaceID, knowledgeText, apiKey, chunkSize)
}

// Search embeds the query once and returns the topK most similar chunks,
// sorted by descending similarity (ties keep original chunk order). Fails
// soft: an absent index or a failed query embedding yields an empty result
// set, never an error.
func (s *RetrievalService) Search(ctx context.Context, workspaceID, query, apiKey string, topK int) ([]domain.RetrievalResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "search",
	})
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}

	idx, ok := s.store.Get(workspaceID)
	if !ok {
		log.Printf("search: no knowledge index for workspace %s", workspaceID)
		return []domain.RetrievalResult{}, nil
	}

	embedder, err := s.providers.Embedder(apiKey)
	if err != nil {
		log.Printf("search: no embedding credentials for workspace %s: %v", workspaceID, err)
		return []domain.RetrievalResult{}, nil
	}

	queryEmbedding, err := embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		log.Printf("search: query embedding failed for workspace %s: %v", workspaceID, err)
		return []domain.RetrievalResult{}, nil
	}

	results := make([]domain.RetrievalResult, 0, len(idx.Chunks))
	for _, chunk := range idx.Chunks {
		results = append(results, domain.RetrievalResult{
			Text:       chunk.Text,
			Similarity: cosineSimilarity(queryEmbedding, chunk.Embedding),
			Metadata: domain.ChunkMetadata{
				ChunkIndex: chunk.ID,
				CreatedAt:  chunk.CreatedAt,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// GetIndexInfo returns a summary of the workspace index, or nil when no index
// has been built.
func (s *RetrievalService) GetIndexInfo(workspaceID string) *domain.IndexInfo {
	idx, ok := s.store.Get(workspaceID)
	if !ok {
		return nil
	}
	return idx.Info()
}

// DeleteIndex removes the workspace index and its persisted chunk cache.
func (s *RetrievalService) DeleteIndex(ctx context.Context, workspaceID string) {
	s.store.Delete(workspaceID)
	if s.cache != nil {
		if err := s.cache.DeleteChunks(ctx, workspaceID); err != nil {
			log.Printf("delete index: failed to clear chunk cache for workspace %s: %v", workspaceID, err)
		}
	}
}

// WarmFromCache installs persisted chunks as the workspace index without
// re-embedding. Returns false when the cache holds nothing for the workspace.
func (s *RetrievalService) WarmFromCache(ctx context.Context, workspaceID string) (bool, error) {
	if s.cache == nil {
		return false, nil
	}

	chunks, builtAt, err := s.cache.LoadChunks(ctx, workspaceID)
	if err != nil {
		return false, fmt.Errorf("failed to load chunk cache: %w", err)
	}
	if len(chunks) == 0 {
		return false, nil
	}

	s.store.Replace(workspaceID, &KnowledgeIndex{Chunks: chunks, CreatedAt: builtAt})
	log.Printf("warm start: workspace %s restored with %d cached chunks", workspaceID, len(chunks))
	return true, nil
}
