package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/convoai/internal/domain"
)

type WorkspaceRepository struct {
	db dbtx
}

func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{db: pool}
}

func NewWorkspaceRepositoryWithTx(tx pgx.Tx) *WorkspaceRepository {
	return &WorkspaceRepository{db: tx}
}

const workspaceColumns = `id, name, access_token, knowledge_text, system_prompt, provider_key, knowledge_at, created_at, updated_at`

func (r *WorkspaceRepository) Create(ctx context.Context, w *domain.Workspace) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO workspaces (`+workspaceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.Name, w.AccessToken, w.KnowledgeText, w.SystemPrompt, w.ProviderKey,
		nullableTime(w.KnowledgeAt), w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (r *WorkspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	return r.get(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
}

func (r *WorkspaceRepository) GetByAccessToken(ctx context.Context, token string) (*domain.Workspace, error) {
	return r.get(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE access_token = $1`, token)
}

func (r *WorkspaceRepository) get(ctx context.Context, query string, arg any) (*domain.Workspace, error) {
	var w domain.Workspace
	var knowledgeAt *time.Time
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&w.ID, &w.Name, &w.AccessToken, &w.KnowledgeText, &w.SystemPrompt, &w.ProviderKey,
		&knowledgeAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	if knowledgeAt != nil {
		w.KnowledgeAt = *knowledgeAt
	}
	return &w, nil
}

func (r *WorkspaceRepository) UpdateAgentConfig(ctx context.Context, w *domain.Workspace) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE workspaces
		 SET knowledge_text = $1, system_prompt = $2, provider_key = $3, knowledge_at = $4, updated_at = $5
		 WHERE id = $6`,
		w.KnowledgeText, w.SystemPrompt, w.ProviderKey, nullableTime(w.KnowledgeAt), w.UpdatedAt, w.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

// ListWithKnowledge returns all workspaces that have knowledge text, for the
// index reconciler.
func (r *WorkspaceRepository) List(ctx context.Context) ([]*domain.Workspace, error) {
	return r.list(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY created_at`)
}

func (r *WorkspaceRepository) ListWithKnowledge(ctx context.Context) ([]*domain.Workspace, error) {
	return r.list(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces
		 WHERE knowledge_text <> '' ORDER BY created_at`,
	)
}

func (r *WorkspaceRepository) list(ctx context.Context, query string) ([]*domain.Workspace, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		var knowledgeAt *time.Time
		if err := rows.Scan(
			&w.ID, &w.Name, &w.AccessToken, &w.KnowledgeText, &w.SystemPrompt, &w.ProviderKey,
			&knowledgeAt, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if knowledgeAt != nil {
			w.KnowledgeAt = *knowledgeAt
		}
		workspaces = append(workspaces, &w)
	}
	return workspaces, rows.Err()
}

func (r *WorkspaceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
