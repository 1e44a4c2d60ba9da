package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/convoai/internal/api"
	"github.com/cloo-solutions/convoai/internal/api/middleware"
	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/service"
)

type AgentConfigServiceInterface interface {
	GetConfig(ctx context.Context, workspaceID string) (*service.AgentConfig, error)
	UpdateConfig(ctx context.Context, workspaceID string, input service.UpdateConfigInput) (*service.UpdateConfigResult, error)
	RegenerateIndex(ctx context.Context, workspaceID string) (int, error)
	TestSearch(ctx context.Context, workspaceID, query string) ([]domain.RetrievalResult, error)
	ImportKnowledge(ctx context.Context, workspaceID, objectKey string) (*service.UpdateConfigResult, error)
}

// AgentConfigHandler serves the operator-facing agent configuration API.
type AgentConfigHandler struct {
	svc AgentConfigServiceInterface
}

func NewAgentConfigHandler(svc AgentConfigServiceInterface) *AgentConfigHandler {
	return &AgentConfigHandler{svc: svc}
}

type AgentConfigResponse struct {
	KnowledgeText  string             `json:"knowledge_text"`
	SystemPrompt   string             `json:"system_prompt"`
	HasProviderKey bool               `json:"has_provider_key"`
	IndexInfo      *IndexInfoResponse `json:"index_info,omitempty"`
}

type IndexInfoResponse struct {
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
	HasData    bool   `json:"has_data"`
}

type UpdateAgentConfigRequest struct {
	KnowledgeText *string `json:"knowledge_text"`
	SystemPrompt  *string `json:"system_prompt"`
	ProviderKey   *string `json:"provider_key"`
}

type UpdateAgentConfigResponse struct {
	UpdatedFields []string `json:"updated_fields"`
	ChunkCount    int      `json:"chunk_count"`
	Rebuilt       bool     `json:"rebuilt"`
}

type RegenerateResponse struct {
	ChunkCount int `json:"chunk_count"`
}

type SearchResultResponse struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

type ImportKnowledgeRequest struct {
	ObjectKey string `json:"object_key"`
}

func indexInfoToResponse(info *domain.IndexInfo) *IndexInfoResponse {
	if info == nil {
		return nil
	}
	return &IndexInfoResponse{
		ChunkCount: info.ChunkCount,
		CreatedAt:  info.CreatedAt.Format("2006-01-02T15:04:05Z"),
		HasData:    info.HasData,
	}
}

func (h *AgentConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cfg, err := h.svc.GetConfig(r.Context(), workspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &AgentConfigResponse{
		KnowledgeText:  cfg.KnowledgeText,
		SystemPrompt:   cfg.SystemPrompt,
		HasProviderKey: cfg.HasProviderKey,
		IndexInfo:      indexInfoToResponse(cfg.IndexInfo),
	})
}

func (h *AgentConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateAgentConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.KnowledgeText == nil && req.SystemPrompt == nil && req.ProviderKey == nil {
		api.Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	result, err := h.svc.UpdateConfig(r.Context(), workspaceID, service.UpdateConfigInput{
		KnowledgeText: req.KnowledgeText,
		SystemPrompt:  req.SystemPrompt,
		ProviderKey:   req.ProviderKey,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &UpdateAgentConfigResponse{
		UpdatedFields: result.UpdatedFields,
		ChunkCount:    result.ChunkCount,
		Rebuilt:       result.Rebuilt,
	})
}

func (h *AgentConfigHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.svc.RegenerateIndex(r.Context(), workspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &RegenerateResponse{ChunkCount: count})
}

func (h *AgentConfigHandler) TestSearch(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		api.Error(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	results, err := h.svc.TestSearch(r.Context(), workspaceID, query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, &SearchResultResponse{
			Text:       result.Text,
			Similarity: result.Similarity,
			ChunkIndex: result.Metadata.ChunkIndex,
		})
	}
	api.Success(w, http.StatusOK, responses)
}

func (h *AgentConfigHandler) Import(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ImportKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ObjectKey == "" {
		api.Error(w, http.StatusBadRequest, "object_key is required")
		return
	}

	result, err := h.svc.ImportKnowledge(r.Context(), workspaceID, req.ObjectKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &UpdateAgentConfigResponse{
		UpdatedFields: result.UpdatedFields,
		ChunkCount:    result.ChunkCount,
		Rebuilt:       result.Rebuilt,
	})
}
