package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// accessTokenPrefix marks workspace access tokens so they are recognizable
// in logs and support requests without revealing the secret part.
const accessTokenPrefix = "cvk_"

// GenerateAccessToken returns a new random workspace access token.
func GenerateAccessToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessTokenPrefix + hex.EncodeToString(buf), nil
}

// WorkspaceTokenResolver looks up workspaces by their access token.
type WorkspaceTokenResolver interface {
	GetByAccessToken(ctx context.Context, token string) (*domain.Workspace, error)
}

// AuthService validates workspace bearer tokens for the operator API.
type AuthService struct {
	workspaces WorkspaceTokenResolver
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(workspaces WorkspaceTokenResolver) *AuthService {
	return &AuthService{workspaces: workspaces}
}

// ValidateAccessToken resolves a bearer token to its workspace. Returns
// ErrInvalidAccessToken for unknown or empty tokens.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*domain.Workspace, error) {
	if token == "" {
		return nil, domain.ErrInvalidAccessToken
	}

	w, err := s.workspaces.GetByAccessToken(ctx, token)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken
	}
	if subtle.ConstantTimeCompare([]byte(w.AccessToken), []byte(token)) != 1 {
		return nil, domain.ErrInvalidAccessToken
	}

	return w, nil
}
