package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// DefaultSystemPrompt is the system prompt used when a workspace has not
// configured its own. It is stored and edited as a template; the
// {placeholders} are filled in per message by FormatSystemPrompt.
const DefaultSystemPrompt = `You are a helpful, professional, and friendly sales representative for {business_name}.
Your goal is to answer customer questions accurately and encourage them to book an appointment or service.
Today's date is {current_date}.

Business Context:
{rag_context}

IMPORTANT: Your primary goal is to convert inquiries into bookings.
Whenever a user shows interest, asks about availability, or you mention a service, you MUST encourage them to book an appointment using this link: {booking_link}
`

const ragDecisionPrompt = `Analyze the customer message and determine if we need to search the knowledge base (RAG) to answer it.

Business Name: %s
Has Data: %s

Conversation History:
%s

Customer Message: "%s"

Task:
- Return "YES" if the user is asking about specific prices, services, hours, location, or business policies.
- Return "NO" if it's a greeting, a thank you, small talk, or if the answer is already in the history.

Decision (YES/NO):`

const ragQueryPrompt = `Generate a specific search query to retrieve relevant information for the customer's last message.

Conversation History:
%s

Customer Message: "%s"

Output ONLY the search query string.`

const groundedResponsePrompt = `You are assisting a customer of %s. Answer their question using the provided context.

Context (from knowledge base):
%s

Conversation History:
%s

Customer Message: "%s"

Booking Link: %s

Instructions:
1. Answer the question clearly based *only* on the context provided.
2. If the context answers their question, be sure to mention that they can book this service directly.
3. END your response by politely inviting them to book an appointment: "You can book an appointment with us here: %s"
`

const noContextResponsePrompt = `You are assisting a customer of %s.

Business Summary:
%s

Conversation History:
%s

Customer Message: "%s"

Booking Link: %s

Instructions:
1. Respond politely to the customer's message.
2. If they are just saying hello, greet them warmly and mention what the business does.
3. If you cannot answer their specific question from the summary, apologize and ask them to contact the business directly.
4. ALWAYS conclude by offering the option to book an appointment: "Feel free to book a slot with us here: %s"
`

// systemPromptDateFormat renders dates in the long textual form used in
// system prompts, e.g. "August 31, 2026".
const systemPromptDateFormat = "January 2, 2006"

func buildRAGDecisionPrompt(businessName, hasData, history, customerMessage string) string {
	return fmt.Sprintf(ragDecisionPrompt, businessName, hasData, history, customerMessage)
}

func buildRAGQueryPrompt(history, customerMessage string) string {
	return fmt.Sprintf(ragQueryPrompt, history, customerMessage)
}

func buildGroundedResponsePrompt(businessName, context, history, customerMessage, bookingLink string) string {
	return fmt.Sprintf(groundedResponsePrompt, businessName, context, history, customerMessage, bookingLink, bookingLink)
}

func buildNoContextResponsePrompt(businessName, summary, history, customerMessage, bookingLink string) string {
	return fmt.Sprintf(noContextResponsePrompt, businessName, summary, history, customerMessage, bookingLink, bookingLink)
}

// FormatSystemPrompt fills a workspace system-prompt template. Unknown
// placeholders are left untouched so a malformed template degrades to plain
// text rather than an error.
func FormatSystemPrompt(template, businessName, knowledgeSummary, bookingLink string, now time.Time) string {
	return strings.NewReplacer(
		"{business_name}", businessName,
		"{current_date}", now.Format(systemPromptDateFormat),
		"{rag_context}", knowledgeSummary,
		"{booking_link}", bookingLink,
	).Replace(template)
}

// formatHistory renders conversation turns for inclusion in a prompt.
func formatHistory(history []domain.Message) string {
	if len(history) == 0 {
		return "No previous conversation"
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Assistant"
		if msg.IsFromCustomer {
			role = "Customer"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// formatRetrievedContext renders search hits for the grounded template, each
// prefixed by its similarity score to 2 decimals, in the order received.
func formatRetrievedContext(results []domain.RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[Relevance: %.2f]\n%s", r.Similarity, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// lastTurns returns the most recent n turns of history, oldest first.
func lastTurns(history []domain.Message, n int) []domain.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func limitReachedMessage(maxMessages int, businessName string) string {
	return fmt.Sprintf(
		"You've reached the maximum of %d messages. Please book an appointment or contact %s directly for further assistance!",
		maxMessages, businessName,
	)
}

func apologyMessage(businessName string) string {
	return fmt.Sprintf(
		"I apologize, I'm having trouble processing your message right now. Please try again or contact %s directly!",
		businessName,
	)
}
