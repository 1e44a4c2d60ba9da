package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/convoai/internal/api"
	"github.com/cloo-solutions/convoai/internal/api/middleware"
	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/service"
)

type ChatServiceInterface interface {
	GetChatInfo(ctx context.Context, token string) (*service.ChatInfo, error)
	ListMessages(ctx context.Context, token string) ([]domain.Message, error)
	SendMessage(ctx context.Context, token, content string) (*service.SendResult, error)
	StartConversation(ctx context.Context, workspaceID, customerName string) (*domain.Conversation, string, error)
}

// ChatHandler serves the public chat widget endpoints. Requests are
// authenticated by the signed chat token in the URL, not by bearer auth.
type ChatHandler struct {
	svc ChatServiceInterface
}

func NewChatHandler(svc ChatServiceInterface) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	IsFromCustomer bool   `json:"is_from_customer"`
	IsAutomated    bool   `json:"is_automated"`
	CreatedAt      string `json:"created_at"`
}

type ChatInfoResponse struct {
	ConversationID string `json:"conversation_id"`
	WorkspaceName  string `json:"workspace_name"`
	CustomerName   string `json:"customer_name"`
	MessagesUsed   int    `json:"messages_used"`
	MessagesLimit  int    `json:"messages_limit"`
}

type SendMessageResponse struct {
	CustomerMessage *MessageResponse `json:"customer_message"`
	AgentMessage    *MessageResponse `json:"agent_message,omitempty"`
	LimitReached    bool             `json:"limit_reached"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:             m.ID,
		Content:        m.Content,
		IsFromCustomer: m.IsFromCustomer,
		IsAutomated:    m.IsAutomated,
		CreatedAt:      m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ChatHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	info, err := h.svc.GetChatInfo(r.Context(), token)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ChatInfoResponse{
		ConversationID: info.ConversationID,
		WorkspaceName:  info.WorkspaceName,
		CustomerName:   info.CustomerName,
		MessagesUsed:   info.MessagesUsed,
		MessagesLimit:  info.MessagesLimit,
	})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	messages, err := h.svc.ListMessages(r.Context(), token)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messageToResponse(&messages[i]))
	}
	api.Success(w, http.StatusOK, responses)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SendMessage(r.Context(), token, req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &SendMessageResponse{
		CustomerMessage: messageToResponse(result.CustomerMessage),
		AgentMessage:    messageToResponse(result.AgentMessage),
		LimitReached:    result.LimitReached,
	})
}

type StartConversationRequest struct {
	CustomerName string `json:"customer_name"`
}

type StartConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	ChatToken      string `json:"chat_token"`
}

// Start creates a conversation in the authenticated workspace and mints the
// chat token handed to the customer.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerName == "" {
		api.Error(w, http.StatusBadRequest, "customer_name is required")
		return
	}

	conv, token, err := h.svc.StartConversation(r.Context(), workspaceID, req.CustomerName)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &StartConversationResponse{
		ConversationID: conv.ID,
		ChatToken:      token,
	})
}
