//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/convoai/internal/domain"
	"github.com/cloo-solutions/convoai/internal/testutil"
)

func testEmbedding(seed float32) []float32 {
	vec := make([]float32, 1536)
	vec[0] = seed
	vec[1] = 1 - seed
	return vec
}

func TestChunkCacheRepository_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	w := setupWorkspace(ctx, t, pool)
	repo := NewChunkCacheRepository(pool)

	builtAt := time.Now().UTC().Truncate(time.Microsecond)
	chunks := []domain.Chunk{
		{ID: 0, Text: "We are open 9-5.", Embedding: testEmbedding(0.1), CreatedAt: builtAt},
		{ID: 1, Text: "Prices start at $20.", Embedding: testEmbedding(0.9), CreatedAt: builtAt},
	}
	require.NoError(t, repo.ReplaceChunks(ctx, w.ID, builtAt, chunks))

	got, gotBuiltAt, err := repo.LoadChunks(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, builtAt, gotBuiltAt.UTC())
	assert.Equal(t, "We are open 9-5.", got[0].Text)
	assert.Equal(t, "Prices start at $20.", got[1].Text)
	assert.InDelta(t, 0.1, got[0].Embedding[0], 1e-6)
	assert.InDelta(t, 0.9, got[1].Embedding[0], 1e-6)
}

func TestChunkCacheRepository_ReplaceDropsOldChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	w := setupWorkspace(ctx, t, pool)
	repo := NewChunkCacheRepository(pool)

	builtAt := time.Now().UTC().Truncate(time.Microsecond)
	old := []domain.Chunk{
		{ID: 0, Text: "old a", Embedding: testEmbedding(0.1)},
		{ID: 1, Text: "old b", Embedding: testEmbedding(0.2)},
		{ID: 2, Text: "old c", Embedding: testEmbedding(0.3)},
	}
	require.NoError(t, repo.ReplaceChunks(ctx, w.ID, builtAt, old))

	fresh := []domain.Chunk{{ID: 0, Text: "fresh", Embedding: testEmbedding(0.5)}}
	require.NoError(t, repo.ReplaceChunks(ctx, w.ID, builtAt.Add(time.Minute), fresh))

	got, _, err := repo.LoadChunks(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestChunkCacheRepository_LoadEmpty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	w := setupWorkspace(ctx, t, pool)
	repo := NewChunkCacheRepository(pool)

	got, builtAt, err := repo.LoadChunks(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, builtAt.IsZero())
}

func TestChunkCacheRepository_DeleteChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	w := setupWorkspace(ctx, t, pool)
	repo := NewChunkCacheRepository(pool)

	builtAt := time.Now().UTC()
	require.NoError(t, repo.ReplaceChunks(ctx, w.ID, builtAt, []domain.Chunk{
		{ID: 0, Text: "chunk", Embedding: testEmbedding(0.4)},
	}))

	require.NoError(t, repo.DeleteChunks(ctx, w.ID))
	require.NoError(t, repo.DeleteChunks(ctx, w.ID))

	got, _, err := repo.LoadChunks(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
