package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// MockConversationRepository is a mock implementation of ConversationRepositoryInterface
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockConversationRepository) CountCustomerMessages(ctx context.Context, conversationID string) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *MockConversationRepository) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	args := m.Called(ctx, conversationID, at)
	return args.Error(0)
}

// MockChatTokenCodec is a mock implementation of ChatTokenCodec
type MockChatTokenCodec struct {
	mock.Mock
}

func (m *MockChatTokenCodec) Decode(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func (m *MockChatTokenCodec) Encode(conversationID string) string {
	args := m.Called(conversationID)
	return args.String(0)
}

// MockAgent is a mock implementation of Agent
type MockAgent struct {
	mock.Mock
}

func (m *MockAgent) ProcessMessage(ctx context.Context, input ProcessInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	mock.Mock
}

func (m *MockUUIDGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

type chatFixture struct {
	svc           *ChatService
	conversations *MockConversationRepository
	workspaces    *MockWorkspaceRepository
	tokens        *MockChatTokenCodec
	agent         *MockAgent
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		conversations: new(MockConversationRepository),
		workspaces:    new(MockWorkspaceRepository),
		tokens:        new(MockChatTokenCodec),
		agent:         new(MockAgent),
	}
	f.svc = NewChatService(f.conversations, f.workspaces, f.tokens, f.agent)
	return f
}

func testConversation() *domain.Conversation {
	return &domain.Conversation{
		ID:           "conv-1",
		WorkspaceID:  "ws-1",
		CustomerName: "Dana",
	}
}

func TestChatService_GetChatInfo(t *testing.T) {
	f := newChatFixture(t)

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("CountCustomerMessages", mock.Anything, "conv-1").Return(5, nil)

	info, err := f.svc.GetChatInfo(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "conv-1", info.ConversationID)
	assert.Equal(t, "Acme Salon", info.WorkspaceName)
	assert.Equal(t, "Dana", info.CustomerName)
	assert.Equal(t, 5, info.MessagesUsed)
	assert.Equal(t, domain.MaxCustomerMessages, info.MessagesLimit)
}

func TestChatService_GetChatInfo_BadToken(t *testing.T) {
	f := newChatFixture(t)

	f.tokens.On("Decode", "forged").Return("", errors.New("invalid chat token"))

	_, err := f.svc.GetChatInfo(context.Background(), "forged")

	assert.ErrorIs(t, err, domain.ErrInvalidChatToken)
}

func TestChatService_SendMessage_StoresCustomerAndAgentMessages(t *testing.T) {
	f := newChatFixture(t)
	uuids := new(MockUUIDGenerator)
	f.svc.uuidGen = uuids
	uuids.On("Generate").Return("msg-cust").Once()
	uuids.On("Generate").Return("msg-agent").Once()

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("CountCustomerMessages", mock.Anything, "conv-1").Return(3, nil)
	f.conversations.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.ID == "msg-cust" && m.IsFromCustomer && m.Content == "What are your prices?"
	})).Return(nil)
	f.conversations.On("TouchLastMessage", mock.Anything, "conv-1", mock.AnythingOfType("time.Time")).Return(nil)
	f.conversations.On("ListMessages", mock.Anything, "conv-1", messageHistoryWindow).Return([]domain.Message{
		{ID: "m1", Content: "Hi", IsFromCustomer: true},
		{ID: "m2", Content: "Hello!", IsFromCustomer: false},
		{ID: "msg-cust", Content: "What are your prices?", IsFromCustomer: true},
	}, nil)
	f.agent.On("ProcessMessage", mock.Anything, mock.MatchedBy(func(in ProcessInput) bool {
		return in.WorkspaceID == "ws-1" &&
			in.ConversationID == "conv-1" &&
			in.CustomerMessage == "What are your prices?" &&
			in.MessagesCount == 4 &&
			len(in.ConversationHistory) == 2
	})).Return("Cuts start at $40.", nil)
	f.conversations.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.ID == "msg-agent" && !m.IsFromCustomer && m.IsAutomated && m.Content == "Cuts start at $40."
	})).Return(nil)

	result, err := f.svc.SendMessage(context.Background(), "tok", "What are your prices?")

	require.NoError(t, err)
	require.NotNil(t, result.CustomerMessage)
	require.NotNil(t, result.AgentMessage)
	assert.Equal(t, "Cuts start at $40.", result.AgentMessage.Content)
	assert.False(t, result.LimitReached)
	f.conversations.AssertExpectations(t)
	f.agent.AssertExpectations(t)
}

func TestChatService_SendMessage_AtLimitRejected(t *testing.T) {
	f := newChatFixture(t)

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("CountCustomerMessages", mock.Anything, "conv-1").Return(domain.MaxCustomerMessages, nil)

	_, err := f.svc.SendMessage(context.Background(), "tok", "One more question")

	assert.ErrorIs(t, err, domain.ErrMessageLimitReached)
	f.conversations.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	f.agent.AssertNotCalled(t, "ProcessMessage", mock.Anything, mock.Anything)
}

func TestChatService_SendMessage_AgentFailureStillStoresCustomerMessage(t *testing.T) {
	f := newChatFixture(t)
	uuids := new(MockUUIDGenerator)
	f.svc.uuidGen = uuids
	uuids.On("Generate").Return("msg-cust")

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("CountCustomerMessages", mock.Anything, "conv-1").Return(0, nil)
	f.conversations.On("CreateMessage", mock.Anything, mock.Anything).Return(nil).Once()
	f.conversations.On("TouchLastMessage", mock.Anything, "conv-1", mock.AnythingOfType("time.Time")).Return(nil)
	f.conversations.On("ListMessages", mock.Anything, "conv-1", messageHistoryWindow).Return([]domain.Message{}, nil)
	f.agent.On("ProcessMessage", mock.Anything, mock.Anything).Return("", errors.New("agent blew up"))

	result, err := f.svc.SendMessage(context.Background(), "tok", "Hello?")

	require.NoError(t, err)
	require.NotNil(t, result.CustomerMessage)
	assert.Nil(t, result.AgentMessage)
}

func TestChatService_SendMessage_ValidatesContent(t *testing.T) {
	f := newChatFixture(t)

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)

	_, err := f.svc.SendMessage(context.Background(), "tok", "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	f.conversations.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestChatService_ListMessages(t *testing.T) {
	f := newChatFixture(t)

	f.tokens.On("Decode", "tok").Return("conv-1", nil)
	f.conversations.On("GetByID", mock.Anything, "conv-1").Return(testConversation(), nil)
	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("ListMessages", mock.Anything, "conv-1", messagePageSize).Return([]domain.Message{
		{ID: "m1", Content: "Hi"},
		{ID: "m2", Content: "Hello!"},
	}, nil)

	messages, err := f.svc.ListMessages(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestChatService_StartConversation(t *testing.T) {
	f := newChatFixture(t)
	uuids := new(MockUUIDGenerator)
	f.svc.uuidGen = uuids
	uuids.On("Generate").Return("conv-new")

	f.workspaces.On("GetByID", mock.Anything, "ws-1").Return(testWorkspace(), nil)
	f.conversations.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.ID == "conv-new" && c.WorkspaceID == "ws-1" && c.CustomerName == "Dana"
	})).Return(nil)
	f.tokens.On("Encode", "conv-new").Return("conv-new_sig")

	conv, token, err := f.svc.StartConversation(context.Background(), "ws-1", "Dana")

	require.NoError(t, err)
	assert.Equal(t, "conv-new", conv.ID)
	assert.Equal(t, "conv-new_sig", token)
}
