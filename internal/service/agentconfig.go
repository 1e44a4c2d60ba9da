package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/telemetry"
)

// WorkspaceRepositoryInterface defines the repository interface for workspace
// agent configuration.
type WorkspaceRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	UpdateAgentConfig(ctx context.Context, w *domain.Workspace) error
}

// KnowledgeSource fetches uploaded knowledge documents, e.g. from S3.
type KnowledgeSource interface {
	GetObjectText(ctx context.Context, key string) (string, error)
}

// RetrieverAdmin is the slice of the retrieval service the config layer uses
// to keep indexes in step with configuration changes.
type RetrieverAdmin interface {
	RebuildIndex(ctx context.Context, workspaceID, knowledgeText, apiKey string, chunkSize int) (int, error)
	DeleteIndex(ctx context.Context, workspaceID string)
	GetIndexInfo(workspaceID string) *domain.IndexInfo
	Search(ctx context.Context, workspaceID, query, apiKey string, topK int) ([]domain.RetrievalResult, error)
}

// AgentConfigService manages per-workspace agent configuration: knowledge
// text, system prompt and provider credentials. Knowledge or credential
// changes trigger an index rebuild.
type AgentConfigService struct {
	repo      WorkspaceRepositoryInterface
	retriever RetrieverAdmin
	source    KnowledgeSource
	now       func() time.Time
}

// NewAgentConfigService creates a new AgentConfigService instance.
func NewAgentConfigService(repo WorkspaceRepositoryInterface, retriever RetrieverAdmin) *AgentConfigService {
	return NewAgentConfigServiceWithSource(repo, retriever, nil)
}

// NewAgentConfigServiceWithSource creates an AgentConfigService that can also
// import knowledge text from uploaded documents.
func NewAgentConfigServiceWithSource(repo WorkspaceRepositoryInterface, retriever RetrieverAdmin, source KnowledgeSource) *AgentConfigService {
	return &AgentConfigService{
		repo:      repo,
		retriever: retriever,
		source:    source,
		now:       time.Now,
	}
}

// AgentConfig is the agent-facing view of a workspace configuration.
type AgentConfig struct {
	KnowledgeText  string
	SystemPrompt   string
	HasProviderKey bool
	IndexInfo      *domain.IndexInfo
}

// UpdateConfigInput carries a partial configuration update; nil fields are
// left unchanged.
type UpdateConfigInput struct {
	KnowledgeText *string
	SystemPrompt  *string
	ProviderKey   *string
}

// UpdateConfigResult reports which fields changed and the resulting index
// size when a rebuild ran.
type UpdateConfigResult struct {
	UpdatedFields []string
	ChunkCount    int
	Rebuilt       bool
}

// GetConfig returns the agent configuration for a workspace.
func (s *AgentConfigService) GetConfig(ctx context.Context, workspaceID string) (*AgentConfig, error) {
	w, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	prompt := w.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}

	return &AgentConfig{
		KnowledgeText:  w.KnowledgeText,
		SystemPrompt:   prompt,
		HasProviderKey: w.HasProviderKey(),
		IndexInfo:      s.retriever.GetIndexInfo(workspaceID),
	}, nil
}

// UpdateConfig applies a partial configuration update. Setting knowledge text
// rebuilds the index (or deletes it when the text is cleared); setting a
// provider key (re)builds when knowledge text exists. Rebuild failures are
// logged and do not block the configuration write.
func (s *AgentConfigService) UpdateConfig(ctx context.Context, workspaceID string, input UpdateConfigInput) (*UpdateConfigResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "AgentConfigService.UpdateConfig", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "update_config",
	})
	defer span.End()

	w, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	result := &UpdateConfigResult{}
	knowledgeChanged := false

	if input.KnowledgeText != nil {
		w.KnowledgeText = *input.KnowledgeText
		w.KnowledgeAt = s.now().UTC()
		knowledgeChanged = true
		result.UpdatedFields = append(result.UpdatedFields, "knowledge_text")
	}
	if input.SystemPrompt != nil {
		w.SystemPrompt = *input.SystemPrompt
		result.UpdatedFields = append(result.UpdatedFields, "system_prompt")
	}
	if input.ProviderKey != nil {
		w.ProviderKey = *input.ProviderKey
		result.UpdatedFields = append(result.UpdatedFields, "provider_key")
	}

	w.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateAgentConfig(ctx, w); err != nil {
		return nil, err
	}

	keyChanged := input.ProviderKey != nil && *input.ProviderKey != ""

	switch {
	case knowledgeChanged && !w.HasKnowledge():
		s.retriever.DeleteIndex(ctx, workspaceID)
	case (knowledgeChanged || keyChanged) && w.HasKnowledge():
		count, err := s.retriever.RebuildIndex(ctx, workspaceID, w.KnowledgeText, w.ProviderKey, DefaultChunkSize)
		if err != nil {
			log.Printf("update config: index rebuild failed for workspace %s: %v", workspaceID, err)
		} else {
			result.ChunkCount = count
			result.Rebuilt = true
			log.Printf("update config: workspace %s index rebuilt with %d chunks", workspaceID, count)
		}
	}

	return result, nil
}

// RegenerateIndex rebuilds the index from the stored knowledge text. Unlike
// UpdateConfig it fails loudly so the operator sees what is wrong.
func (s *AgentConfigService) RegenerateIndex(ctx context.Context, workspaceID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "AgentConfigService.RegenerateIndex", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "regenerate_index",
	})
	defer span.End()

	w, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return 0, err
	}

	if !w.HasKnowledge() {
		return 0, domain.ErrNoKnowledgeText
	}
	if !w.HasProviderKey() {
		return 0, domain.ErrNoProviderKey
	}

	return s.retriever.RebuildIndex(ctx, workspaceID, w.KnowledgeText, w.ProviderKey, DefaultChunkSize)
}

// TestSearch runs a similarity search against the workspace index. Intended
// for operators verifying their knowledge content.
func (s *AgentConfigService) TestSearch(ctx context.Context, workspaceID, query string) ([]domain.RetrievalResult, error) {
	w, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if !w.HasProviderKey() {
		return nil, domain.ErrNoProviderKey
	}

	return s.retriever.Search(ctx, workspaceID, query, w.ProviderKey, DefaultTopK)
}

// ImportKnowledge replaces the workspace knowledge text with the contents of
// an uploaded document and rebuilds the index.
func (s *AgentConfigService) ImportKnowledge(ctx context.Context, workspaceID, objectKey string) (*UpdateConfigResult, error) {
	if s.source == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "knowledge import is not configured")
	}

	text, err := s.source.GetObjectText(ctx, objectKey)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to fetch knowledge document", err)
	}

	return s.UpdateConfig(ctx, workspaceID, UpdateConfigInput{KnowledgeText: &text})
}
