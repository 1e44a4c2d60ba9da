package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/telemetry"
)

const (
	decisionHistoryTurns = 5
	queryHistoryTurns    = 3
)

// Retriever is the slice of the retrieval service the orchestrator needs.
type Retriever interface {
	Search(ctx context.Context, workspaceID, query, apiKey string, topK int) ([]domain.RetrievalResult, error)
	GetIndexInfo(workspaceID string) *domain.IndexInfo
}

// ProcessInput is one inbound customer message plus the conversation context
// the caller already holds. MessagesCount is the number of customer-authored
// messages in the conversation including this one; the orchestrator never
// mutates it.
type ProcessInput struct {
	WorkspaceID          string
	ConversationID       string
	CustomerMessage      string
	ConversationHistory  []domain.Message
	BusinessName         string
	SystemPromptTemplate string
	KnowledgeSummary     string
	ProviderKey          string
	MessagesCount        int
}

func (in *ProcessInput) validate() error {
	if in.WorkspaceID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "workspace ID is required")
	}
	if in.ConversationID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "conversation ID is required")
	}
	if strings.TrimSpace(in.CustomerMessage) == "" {
		return domain.ErrEmptyMessage
	}
	if in.MessagesCount < 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "messages count cannot be negative")
	}
	return nil
}

// Orchestrator runs the per-message conversation pipeline. Each invocation is
// independent; callers are responsible for serializing messages within one
// conversation. Provider failures never escape: every state degrades to a
// defined fallback so the customer always receives a reply.
type Orchestrator struct {
	retriever   Retriever
	providers   ProviderFactory
	frontendURL string
	now         func() time.Time
}

// NewOrchestrator creates an Orchestrator. frontendURL is the public base URL
// used to construct booking links.
func NewOrchestrator(retriever Retriever, providers ProviderFactory, frontendURL string) *Orchestrator {
	return &Orchestrator{
		retriever:   retriever,
		providers:   providers,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// ProcessMessage runs the pipeline for one customer message and returns the
// reply. The only returned errors are input-validation errors; provider and
// retrieval failures degrade to fallback replies.
func (o *Orchestrator) ProcessMessage(ctx context.Context, input ProcessInput) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.ProcessMessage", telemetry.SpanAttributes{
		WorkspaceID:    input.WorkspaceID,
		ConversationID: input.ConversationID,
		Operation:      "process_message",
	})
	defer span.End()

	if err := input.validate(); err != nil {
		return "", err
	}

	template := input.SystemPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultSystemPrompt
	}

	bookingLink := o.bookingLink(input.WorkspaceID)
	state := &ConversationState{
		WorkspaceID:         input.WorkspaceID,
		ConversationID:      input.ConversationID,
		CustomerMessage:     input.CustomerMessage,
		ConversationHistory: input.ConversationHistory,
		BusinessName:        input.BusinessName,
		SystemPrompt:        FormatSystemPrompt(template, input.BusinessName, input.KnowledgeSummary, bookingLink, o.now()),
		KnowledgeSummary:    input.KnowledgeSummary,
		ProviderKey:         input.ProviderKey,
		MessagesCount:       input.MessagesCount,
		MaxMessages:         domain.MaxCustomerMessages,
	}

	current := StateCheckLimit
	for current != StateTerminal {
		var event AgentEvent
		switch current {
		case StateCheckLimit:
			event = o.checkLimit(state)
		case StateDecideRAG:
			event = o.decideRAG(ctx, state)
		case StateRetrieve:
			event = o.retrieveContext(ctx, state)
		case StateGenerate:
			event = o.generateResponse(ctx, state, bookingLink)
		}

		next, err := Transition(current, event)
		if err != nil {
			return "", err
		}
		current = next
	}

	return state.FinalResponse, nil
}

func (o *Orchestrator) bookingLink(workspaceID string) string {
	return strings.TrimRight(o.frontendURL, "/") + "/book/" + workspaceID
}

// checkLimit enforces the hard conversation budget. At the limit the fixed
// policy message is returned without any provider call.
func (o *Orchestrator) checkLimit(state *ConversationState) AgentEvent {
	if state.MessagesCount >= state.MaxMessages {
		state.FinalResponse = limitReachedMessage(state.MaxMessages, state.BusinessName)
		return EventLimitReached
	}
	return EventProceed
}

// decideRAG asks the completion provider whether the message needs knowledge
// retrieval. The reply is matched case-insensitively for the substring "YES";
// anything else, including a provider failure, means no retrieval.
func (o *Orchestrator) decideRAG(ctx context.Context, state *ConversationState) AgentEvent {
	completer, err := o.providers.Completer(state.ProviderKey)
	if err != nil {
		log.Printf("decide rag: no completion credentials for workspace %s: %v", state.WorkspaceID, err)
		state.NeedsRAG = false
		return EventNoRAG
	}

	hasData := "No"
	if o.retriever.GetIndexInfo(state.WorkspaceID) != nil {
		hasData = "Yes"
	}

	history := formatHistory(lastTurns(state.ConversationHistory, decisionHistoryTurns))
	prompt := buildRAGDecisionPrompt(state.BusinessName, hasData, history, state.CustomerMessage)

	reply, err := completer.GenerateCompletion(ctx, prompt)
	if err != nil {
		log.Printf("decide rag: completion failed for workspace %s: %v", state.WorkspaceID, err)
		state.NeedsRAG = false
		return EventNoRAG
	}

	decision := strings.ToUpper(strings.TrimSpace(reply))
	state.NeedsRAG = strings.Contains(decision, "YES")
	log.Printf("decide rag: workspace %s needs_rag=%t", state.WorkspaceID, state.NeedsRAG)

	if state.NeedsRAG {
		return EventNeedsRAG
	}
	return EventNoRAG
}

// retrieveContext formulates a compact search query via the completion
// provider and runs the similarity search. Any failure leaves the result set
// empty and the pipeline continues.
func (o *Orchestrator) retrieveContext(ctx context.Context, state *ConversationState) AgentEvent {
	state.RAGResults = nil

	completer, err := o.providers.Completer(state.ProviderKey)
	if err != nil {
		log.Printf("retrieve: no completion credentials for workspace %s: %v", state.WorkspaceID, err)
		return EventRetrieved
	}

	history := formatHistory(lastTurns(state.ConversationHistory, queryHistoryTurns))
	prompt := buildRAGQueryPrompt(history, state.CustomerMessage)

	reply, err := completer.GenerateCompletion(ctx, prompt)
	if err != nil {
		log.Printf("retrieve: query formulation failed for workspace %s: %v", state.WorkspaceID, err)
		return EventRetrieved
	}

	query := strings.TrimSpace(reply)
	state.RAGQuery = query
	log.Printf("retrieve: workspace %s search query %q", state.WorkspaceID, query)

	results, err := o.retriever.Search(ctx, state.WorkspaceID, query, state.ProviderKey, DefaultTopK)
	if err != nil {
		log.Printf("retrieve: search failed for workspace %s: %v", state.WorkspaceID, err)
		return EventRetrieved
	}

	state.RAGResults = results
	log.Printf("retrieve: workspace %s retrieved %d chunks", state.WorkspaceID, len(results))
	return EventRetrieved
}

// generateResponse builds the final prompt (grounded when retrieval produced
// context, otherwise the no-context template over the business summary) and
// asks the completion provider for the reply. On failure the customer gets a
// fixed apology naming the business.
func (o *Orchestrator) generateResponse(ctx context.Context, state *ConversationState, bookingLink string) AgentEvent {
	completer, err := o.providers.Completer(state.ProviderKey)
	if err != nil {
		log.Printf("generate: no completion credentials for workspace %s: %v", state.WorkspaceID, err)
		state.FinalResponse = apologyMessage(state.BusinessName)
		return EventGenerated
	}

	history := formatHistory(state.ConversationHistory)

	var prompt string
	if len(state.RAGResults) > 0 {
		context := formatRetrievedContext(state.RAGResults)
		prompt = buildGroundedResponsePrompt(state.BusinessName, context, history, state.CustomerMessage, bookingLink)
	} else {
		summary := state.KnowledgeSummary
		if strings.TrimSpace(summary) == "" {
			summary = "General business information"
		}
		prompt = buildNoContextResponsePrompt(state.BusinessName, summary, history, state.CustomerMessage, bookingLink)
	}

	fullPrompt := state.SystemPrompt + "\n\n" + prompt

	reply, err := completer.GenerateCompletion(ctx, fullPrompt)
	if err != nil {
		log.Printf("generate: completion failed for workspace %s: %v", state.WorkspaceID, err)
		state.FinalResponse = apologyMessage(state.BusinessName)
		return EventGenerated
	}

	state.FinalResponse = strings.TrimSpace(reply)
	return EventGenerated
}
