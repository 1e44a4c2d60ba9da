package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/telemetry"
)

const (
	// messageHistoryWindow caps the history handed to the agent.
	messageHistoryWindow = 10
	// messagePageSize caps the messages returned to the widget.
	messagePageSize = 50
)

// UUIDGenerator generates unique identifiers.
type UUIDGenerator interface {
	Generate() string
}

// DefaultUUIDGenerator uses google/uuid.
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) Generate() string {
	return uuid.NewString()
}

// ConversationRepositoryInterface defines the repository interface for
// conversations and their messages.
type ConversationRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	Create(ctx context.Context, c *domain.Conversation) error
	CreateMessage(ctx context.Context, m *domain.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	CountCustomerMessages(ctx context.Context, conversationID string) (int, error)
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error
}

// ChatTokenCodec validates public chat tokens and resolves them to a
// conversation ID.
type ChatTokenCodec interface {
	Decode(token string) (conversationID string, err error)
	Encode(conversationID string) string
}

// Agent produces the automated reply for a customer message.
type Agent interface {
	ProcessMessage(ctx context.Context, input ProcessInput) (string, error)
}

// ChatService handles the public chat widget flow: token validation,
// message persistence and the automated agent reply.
type ChatService struct {
	conversations ConversationRepositoryInterface
	workspaces    WorkspaceRepositoryInterface
	tokens        ChatTokenCodec
	agent         Agent
	uuidGen       UUIDGenerator
	now           func() time.Time
}

// NewChatService creates a new ChatService instance.
func NewChatService(
	conversations ConversationRepositoryInterface,
	workspaces WorkspaceRepositoryInterface,
	tokens ChatTokenCodec,
	agent Agent,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		workspaces:    workspaces,
		tokens:        tokens,
		agent:         agent,
		uuidGen:       &DefaultUUIDGenerator{},
		now:           time.Now,
	}
}

// ChatInfo describes the conversation behind a chat token.
type ChatInfo struct {
	ConversationID string
	WorkspaceName  string
	CustomerName   string
	MessagesUsed   int
	MessagesLimit  int
}

// SendResult is the outcome of a customer message: the persisted customer
// message and, when the agent produced one, the automated reply.
type SendResult struct {
	CustomerMessage *domain.Message
	AgentMessage    *domain.Message
	LimitReached    bool
}

func (s *ChatService) resolve(ctx context.Context, token string) (*domain.Conversation, *domain.Workspace, error) {
	conversationID, err := s.tokens.Decode(token)
	if err != nil {
		return nil, nil, domain.ErrInvalidChatToken
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	w, err := s.workspaces.GetByID(ctx, conv.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}

	return conv, w, nil
}

// GetChatInfo resolves a chat token to conversation metadata for the widget.
func (s *ChatService) GetChatInfo(ctx context.Context, token string) (*ChatInfo, error) {
	conv, w, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	used, err := s.conversations.CountCustomerMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	return &ChatInfo{
		ConversationID: conv.ID,
		WorkspaceName:  w.Name,
		CustomerName:   conv.CustomerName,
		MessagesUsed:   used,
		MessagesLimit:  domain.MaxCustomerMessages,
	}, nil
}

// ListMessages returns the most recent messages of the conversation in
// chronological order.
func (s *ChatService) ListMessages(ctx context.Context, token string) ([]domain.Message, error) {
	conv, _, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	return s.conversations.ListMessages(ctx, conv.ID, messagePageSize)
}

// SendMessage persists a customer message and asks the agent for a reply.
// The customer message is stored even when the agent fails; in that case the
// result carries no agent message and the caller gets no error.
func (s *ChatService) SendMessage(ctx context.Context, token, content string) (*SendResult, error) {
	conv, w, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.SendMessage", telemetry.SpanAttributes{
		WorkspaceID:    w.ID,
		ConversationID: conv.ID,
		Operation:      "send_message",
	})
	defer span.End()

	if err := domain.ValidateMessageContent(content); err != nil {
		return nil, err
	}

	used, err := s.conversations.CountCustomerMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if used >= domain.MaxCustomerMessages {
		return nil, domain.ErrMessageLimitReached
	}

	now := s.now().UTC()
	customerMsg := &domain.Message{
		ID:             s.uuidGen.Generate(),
		ConversationID: conv.ID,
		Content:        content,
		IsFromCustomer: true,
		CreatedAt:      now,
	}
	if err := s.conversations.CreateMessage(ctx, customerMsg); err != nil {
		return nil, err
	}
	if err := s.conversations.TouchLastMessage(ctx, conv.ID, now); err != nil {
		log.Printf("send message: failed to touch conversation %s: %v", conv.ID, err)
	}

	result := &SendResult{CustomerMessage: customerMsg}

	history, err := s.conversations.ListMessages(ctx, conv.ID, messageHistoryWindow)
	if err != nil {
		log.Printf("send message: failed to load history for conversation %s: %v", conv.ID, err)
		history = nil
	}
	// The just-stored customer message goes to the agent separately.
	if n := len(history); n > 0 && history[n-1].ID == customerMsg.ID {
		history = history[:n-1]
	}

	reply, err := s.agent.ProcessMessage(ctx, ProcessInput{
		WorkspaceID:          w.ID,
		ConversationID:       conv.ID,
		CustomerMessage:      content,
		ConversationHistory:  history,
		BusinessName:         w.Name,
		SystemPromptTemplate: w.SystemPrompt,
		KnowledgeSummary:     w.KnowledgeSummary(),
		ProviderKey:          w.ProviderKey,
		MessagesCount:        used + 1,
	})
	if err != nil {
		log.Printf("send message: agent failed for conversation %s: %v", conv.ID, err)
		return result, nil
	}

	if reply == "" {
		return result, nil
	}

	agentMsg := &domain.Message{
		ID:             s.uuidGen.Generate(),
		ConversationID: conv.ID,
		Content:        reply,
		IsFromCustomer: false,
		IsAutomated:    true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.conversations.CreateMessage(ctx, agentMsg); err != nil {
		log.Printf("send message: failed to store agent reply for conversation %s: %v", conv.ID, err)
		return result, nil
	}

	result.AgentMessage = agentMsg
	result.LimitReached = used+1 >= domain.MaxCustomerMessages
	return result, nil
}

// StartConversation creates a conversation in a workspace and returns it with
// its chat token.
func (s *ChatService) StartConversation(ctx context.Context, workspaceID, customerName string) (*domain.Conversation, string, error) {
	w, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	conv := &domain.Conversation{
		ID:            s.uuidGen.Generate(),
		WorkspaceID:   w.ID,
		CustomerName:  customerName,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, "", err
	}

	return conv, s.tokens.Encode(conv.ID), nil
}
