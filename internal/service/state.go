package service

import (
	"fmt"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// AgentState enumerates the conversation pipeline states. The pipeline has a
// single entry (CheckLimit), a single exit (Terminal) and no cycles.
type AgentState int

const (
	StateCheckLimit AgentState = iota
	StateDecideRAG
	StateRetrieve
	StateGenerate
	StateTerminal
)

func (s AgentState) String() string {
	switch s {
	case StateCheckLimit:
		return "check_limit"
	case StateDecideRAG:
		return "decide_rag"
	case StateRetrieve:
		return "retrieve"
	case StateGenerate:
		return "generate"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AgentEvent is the outcome of executing one state.
type AgentEvent int

const (
	EventProceed AgentEvent = iota
	EventLimitReached
	EventNeedsRAG
	EventNoRAG
	EventRetrieved
	EventGenerated
)

func (e AgentEvent) String() string {
	switch e {
	case EventProceed:
		return "proceed"
	case EventLimitReached:
		return "limit_reached"
	case EventNeedsRAG:
		return "needs_rag"
	case EventNoRAG:
		return "no_rag"
	case EventRetrieved:
		return "retrieved"
	case EventGenerated:
		return "generated"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// Transition maps (state, event) to the next state. Any pair outside the
// fixed pipeline graph is an error, so a routing bug surfaces immediately
// instead of silently stalling a conversation.
func Transition(state AgentState, event AgentEvent) (AgentState, error) {
	switch state {
	case StateCheckLimit:
		switch event {
		case EventProceed:
			return StateDecideRAG, nil
		case EventLimitReached:
			return StateTerminal, nil
		}
	case StateDecideRAG:
		switch event {
		case EventNeedsRAG:
			return StateRetrieve, nil
		case EventNoRAG:
			return StateGenerate, nil
		}
	case StateRetrieve:
		if event == EventRetrieved {
			return StateGenerate, nil
		}
	case StateGenerate:
		if event == EventGenerated {
			return StateTerminal, nil
		}
	case StateTerminal:
		// no transitions out of terminal
	}
	return StateTerminal, fmt.Errorf("illegal transition from %s on %s", state, event)
}

// ConversationState carries one message through the pipeline. It lives for a
// single ProcessMessage call and is never persisted.
type ConversationState struct {
	WorkspaceID         string
	ConversationID      string
	CustomerMessage     string
	ConversationHistory []domain.Message
	BusinessName        string
	SystemPrompt        string
	KnowledgeSummary    string
	ProviderKey         string

	NeedsRAG      bool
	RAGQuery      string
	RAGResults    []domain.RetrievalResult
	FinalResponse string

	MessagesCount int
	MaxMessages   int
}
