package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/convoai/internal/domain"
)

// ChunkCacheRepository persists embedded knowledge chunks so indexes can be
// warm-started after a restart without calling the embedding provider again.
type ChunkCacheRepository struct {
	db dbtx
}

func NewChunkCacheRepository(pool *pgxpool.Pool) *ChunkCacheRepository {
	return &ChunkCacheRepository{db: pool}
}

func NewChunkCacheRepositoryWithTx(tx pgx.Tx) *ChunkCacheRepository {
	return &ChunkCacheRepository{db: tx}
}

// ReplaceChunks deletes any cached chunks for the workspace and inserts the
// new set.
func (r *ChunkCacheRepository) ReplaceChunks(ctx context.Context, workspaceID string, builtAt time.Time, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = builtAt
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks (workspace_id, chunk_index, content, embedding, built_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			workspaceID, c.ID, c.Text, pgvector.NewVector(c.Embedding), builtAt, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadChunks returns the cached chunks for a workspace in index order, along
// with the time the index was built.
func (r *ChunkCacheRepository) LoadChunks(ctx context.Context, workspaceID string) ([]domain.Chunk, time.Time, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chunk_index, content, embedding, built_at, created_at
		 FROM knowledge_chunks WHERE workspace_id = $1 ORDER BY chunk_index`,
		workspaceID,
	)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	var builtAt time.Time
	for rows.Next() {
		var c domain.Chunk
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.Text, &vec, &builtAt, &c.CreatedAt); err != nil {
			return nil, time.Time{}, err
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	return chunks, builtAt, rows.Err()
}

func (r *ChunkCacheRepository) DeleteChunks(ctx context.Context, workspaceID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE workspace_id = $1`, workspaceID)
	return err
}
