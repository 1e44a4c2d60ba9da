package domain

import (
	"fmt"
	"strings"
	"time"
)

// Workspace is a tenant business account. The agent-facing configuration
// (knowledge text, system prompt, provider API key) lives here; the knowledge
// index derived from KnowledgeText is a rebuildable cache keyed by ID.
type Workspace struct {
	ID            string
	Name          string
	AccessToken   string
	KnowledgeText string
	SystemPrompt  string
	ProviderKey   string
	KnowledgeAt   time.Time // last time KnowledgeText changed
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasProviderKey reports whether the workspace carries its own API key.
func (w *Workspace) HasProviderKey() bool {
	return strings.TrimSpace(w.ProviderKey) != ""
}

// HasKnowledge reports whether there is knowledge text to index.
func (w *Workspace) HasKnowledge() bool {
	return strings.TrimSpace(w.KnowledgeText) != ""
}

// KnowledgeSummary returns the first 500 characters of the knowledge text,
// used as the fallback business summary in ungrounded replies.
func (w *Workspace) KnowledgeSummary() string {
	if !w.HasKnowledge() {
		return "No additional info"
	}
	runes := []rune(w.KnowledgeText)
	if len(runes) > 500 {
		return string(runes[:500])
	}
	return w.KnowledgeText
}

// ValidateWorkspace validates a Workspace instance.
func ValidateWorkspace(w *Workspace) error {
	if w == nil {
		return fmt.Errorf("workspace cannot be nil")
	}
	if w.ID == "" {
		return NewDomainError(ErrCodeValidation, "workspace ID is required")
	}
	if strings.TrimSpace(w.Name) == "" {
		return NewDomainError(ErrCodeValidation, "workspace name is required")
	}
	return nil
}
