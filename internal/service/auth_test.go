package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// MockWorkspaceTokenResolver is a mock implementation of WorkspaceTokenResolver
type MockWorkspaceTokenResolver struct {
	mock.Mock
}

func (m *MockWorkspaceTokenResolver) GetByAccessToken(ctx context.Context, token string) (*domain.Workspace, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	resolver := new(MockWorkspaceTokenResolver)
	svc := NewAuthService(resolver)

	resolver.On("GetByAccessToken", mock.Anything, "tok-1").Return(testWorkspace(), nil)

	w, err := svc.ValidateAccessToken(context.Background(), "tok-1")

	require.NoError(t, err)
	assert.Equal(t, "ws-1", w.ID)
}

func TestAuthService_ValidateAccessToken_Empty(t *testing.T) {
	resolver := new(MockWorkspaceTokenResolver)
	svc := NewAuthService(resolver)

	_, err := svc.ValidateAccessToken(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidAccessToken)
	resolver.AssertNotCalled(t, "GetByAccessToken", mock.Anything, mock.Anything)
}

func TestAuthService_ValidateAccessToken_Unknown(t *testing.T) {
	resolver := new(MockWorkspaceTokenResolver)
	svc := NewAuthService(resolver)

	resolver.On("GetByAccessToken", mock.Anything, "nope").Return(nil, errors.New("not found"))

	_, err := svc.ValidateAccessToken(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrInvalidAccessToken)
}

func TestGenerateAccessToken(t *testing.T) {
	tok, err := GenerateAccessToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tok, "cvk_"))
	assert.Len(t, tok, len("cvk_")+64)

	other, err := GenerateAccessToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}
