package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) GetChatInfo(ctx context.Context, token string) (*service.ChatInfo, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatInfo), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, token string) ([]domain.Message, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, token, content string) (*service.SendResult, error) {
	args := m.Called(ctx, token, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendResult), args.Error(1)
}

func (m *MockChatService) StartConversation(ctx context.Context, workspaceID, customerName string) (*domain.Conversation, string, error) {
	args := m.Called(ctx, workspaceID, customerName)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Conversation), args.String(1), args.Error(2)
}

func chatRequest(method, path, token string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", token)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestChatHandler_GetInfo(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("GetChatInfo", mock.Anything, "tok-1").Return(&service.ChatInfo{
		ConversationID: "conv-1",
		WorkspaceName:  "Acme Salon",
		CustomerName:   "Dana",
		MessagesUsed:   5,
		MessagesLimit:  14,
	}, nil)

	w := httptest.NewRecorder()
	handler.GetInfo(w, chatRequest(http.MethodGet, "/public/chat/tok-1/info", "tok-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data ChatInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.Data.ConversationID)
	assert.Equal(t, 5, resp.Data.MessagesUsed)
	assert.Equal(t, 14, resp.Data.MessagesLimit)
}

func TestChatHandler_GetInfo_InvalidToken(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("GetChatInfo", mock.Anything, "forged").Return(nil, domain.ErrInvalidChatToken)

	w := httptest.NewRecorder()
	handler.GetInfo(w, chatRequest(http.MethodGet, "/public/chat/forged/info", "forged", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatHandler_SendMessage(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	now := time.Now().UTC()
	svc.On("SendMessage", mock.Anything, "tok-1", "What are your prices?").Return(&service.SendResult{
		CustomerMessage: &domain.Message{ID: "m1", Content: "What are your prices?", IsFromCustomer: true, CreatedAt: now},
		AgentMessage:    &domain.Message{ID: "m2", Content: "Cuts start at $40.", IsAutomated: true, CreatedAt: now},
	}, nil)

	body, _ := json.Marshal(SendMessageRequest{Content: "What are your prices?"})
	w := httptest.NewRecorder()
	handler.SendMessage(w, chatRequest(http.MethodPost, "/public/chat/tok-1/send", "tok-1", body))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data SendMessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.CustomerMessage)
	require.NotNil(t, resp.Data.AgentMessage)
	assert.Equal(t, "Cuts start at $40.", resp.Data.AgentMessage.Content)
	assert.True(t, resp.Data.AgentMessage.IsAutomated)
}

func TestChatHandler_SendMessage_NoAgentReply(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("SendMessage", mock.Anything, "tok-1", "Hello").Return(&service.SendResult{
		CustomerMessage: &domain.Message{ID: "m1", Content: "Hello", IsFromCustomer: true},
	}, nil)

	body, _ := json.Marshal(SendMessageRequest{Content: "Hello"})
	w := httptest.NewRecorder()
	handler.SendMessage(w, chatRequest(http.MethodPost, "/public/chat/tok-1/send", "tok-1", body))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data SendMessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Data.AgentMessage)
}

func TestChatHandler_SendMessage_LimitReached(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("SendMessage", mock.Anything, "tok-1", "One more").Return(nil, domain.ErrMessageLimitReached)

	body, _ := json.Marshal(SendMessageRequest{Content: "One more"})
	w := httptest.NewRecorder()
	handler.SendMessage(w, chatRequest(http.MethodPost, "/public/chat/tok-1/send", "tok-1", body))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestChatHandler_SendMessage_InvalidBody(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	w := httptest.NewRecorder()
	handler.SendMessage(w, chatRequest(http.MethodPost, "/public/chat/tok-1/send", "tok-1", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatHandler_ListMessages(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("ListMessages", mock.Anything, "tok-1").Return([]domain.Message{
		{ID: "m1", Content: "Hi", IsFromCustomer: true},
		{ID: "m2", Content: "Hello!", IsAutomated: true},
	}, nil)

	w := httptest.NewRecorder()
	handler.ListMessages(w, chatRequest(http.MethodGet, "/public/chat/tok-1/messages", "tok-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Hi", resp.Data[0].Content)
}

func TestChatHandler_Start(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	svc.On("StartConversation", mock.Anything, "ws-1", "Dana").Return(&domain.Conversation{
		ID:          "conv-1",
		WorkspaceID: "ws-1",
	}, "conv-1_sig", nil)

	body, _ := json.Marshal(StartConversationRequest{CustomerName: "Dana"})
	w := httptest.NewRecorder()
	handler.Start(w, authedRequest(http.MethodPost, "/agent/conversations", body))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data StartConversationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.Data.ConversationID)
	assert.Equal(t, "conv-1_sig", resp.Data.ChatToken)
}

func TestChatHandler_Start_MissingName(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc)

	w := httptest.NewRecorder()
	handler.Start(w, authedRequest(http.MethodPost, "/agent/conversations", []byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "StartConversation", mock.Anything, mock.Anything, mock.Anything)
}
