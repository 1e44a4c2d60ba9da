package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/convoai/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, workspace_id, customer_name, unread_count, last_message_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.WorkspaceID, c.CustomerName, c.UnreadCount, c.LastMessageAt, c.CreatedAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, workspace_id, customer_name, unread_count, last_message_at, created_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.WorkspaceID, &c.CustomerName, &c.UnreadCount, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Conversation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, workspace_id, customer_name, unread_count, last_message_at, created_at
		 FROM conversations WHERE workspace_id = $1 ORDER BY last_message_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.CustomerName, &c.UnreadCount, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, &c)
	}
	return conversations, rows.Err()
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, content, is_from_customer, is_automated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ConversationID, m.Content, m.IsFromCustomer, m.IsAutomated, m.CreatedAt,
	)
	return err
}

// ListMessages returns the last `limit` messages of a conversation in
// chronological order.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, content, is_from_customer, is_automated, created_at
		 FROM (
			SELECT id, conversation_id, content, is_from_customer, is_automated, created_at
			FROM messages WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsFromCustomer, &m.IsAutomated, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *ConversationRepository) CountCustomerMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND is_from_customer`,
		conversationID,
	).Scan(&count)
	return count, err
}

func (r *ConversationRepository) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE conversations SET last_message_at = $1, unread_count = unread_count + 1 WHERE id = $2`,
		at, conversationID,
	)
	return err
}
