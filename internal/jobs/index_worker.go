package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/service"
)

// WorkspaceLister lists workspaces that have knowledge text configured.
type WorkspaceLister interface {
	ListWithKnowledge(ctx context.Context) ([]*domain.Workspace, error)
}

// IndexManager is the slice of the retrieval service the worker needs to
// inspect and rebuild workspace indexes.
type IndexManager interface {
	GetIndexInfo(workspaceID string) *domain.IndexInfo
	WarmFromCache(ctx context.Context, workspaceID string) (bool, error)
	RebuildIndex(ctx context.Context, workspaceID, knowledgeText, apiKey string, chunkSize int) (int, error)
}

// IndexWorker reconciles in-memory workspace indexes against the persisted
// knowledge text. After a restart it warms indexes from the chunk cache, and
// it rebuilds any index older than the workspace's last knowledge change.
type IndexWorker struct {
	workspaces WorkspaceLister
	indexes    IndexManager
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(workspaces WorkspaceLister, indexes IndexManager) *IndexWorker {
	return &IndexWorker{
		workspaces: workspaces,
		indexes:    indexes,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	workspaces, err := w.workspaces.ListWithKnowledge(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	for _, ws := range workspaces {
		if err := w.reconcile(ctx, ws); err != nil {
			log.Printf("Error reconciling index for workspace %s: %v", ws.ID, err)
		}
	}

	return nil
}

func (w *IndexWorker) reconcile(ctx context.Context, ws *domain.Workspace) error {
	info := w.indexes.GetIndexInfo(ws.ID)
	if info == nil {
		warmed, err := w.indexes.WarmFromCache(ctx, ws.ID)
		if err != nil {
			log.Printf("Cache warm failed for workspace %s: %v", ws.ID, err)
		}
		if warmed {
			log.Printf("Warmed index for workspace %s from cache", ws.ID)
			info = w.indexes.GetIndexInfo(ws.ID)
		}
	}

	if info != nil && !info.CreatedAt.Before(ws.KnowledgeAt) {
		return nil
	}

	if !ws.HasProviderKey() {
		log.Printf("Workspace %s has stale index but no provider key, skipping rebuild", ws.ID)
		return nil
	}

	count, err := w.indexes.RebuildIndex(ctx, ws.ID, ws.KnowledgeText, ws.ProviderKey, service.DefaultChunkSize)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	log.Printf("Rebuilt index for workspace %s: %d chunks", ws.ID, count)
	return nil
}
