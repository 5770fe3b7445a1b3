package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relocation/internal/domain"
	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
)

// newTestRepo connects to TEST_DATABASE_URL and creates an isolated table
// set. Skipped when no database is configured.
func newTestRepo(t *testing.T) (repositories.CatalogRepository, repositories.TransactionManager) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	prefix := fmt.Sprintf("it_%d_", time.Now().UnixNano())
	tables := NewTableNames(prefix)
	require.NoError(t, RunSchema(ctx, pool, tables, prefix))
	t.Cleanup(func() { _ = DropTables(context.Background(), pool, tables) })

	cfg := &RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return NewCatalogRepository(cfg), NewTransactionManager(cfg)
}

func TestCatalogRepositoryShiftAndLock(t *testing.T) {
	repo, tx := newTestRepo(t)
	ctx := context.Background()
	top := repositories.Scope{Family: models.FamilyStages}
	now := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.CatalogItem{
			ID: id, Family: models.FamilyStages, Name: id, Position: i, CreatedAt: now, UpdatedAt: now,
		}))
	}
	parent := "a"
	require.NoError(t, repo.Create(ctx, &models.CatalogItem{
		ID: "a1", Family: models.FamilyStages, ParentID: &parent, Name: "a1", CreatedAt: now, UpdatedAt: now,
	}))

	err := tx.ExecTx(ctx, func(txCtx context.Context) error {
		count, err := repo.LockActive(txCtx, top)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		return repo.ShiftPositions(txCtx, top, 1, -1, 1)
	})
	require.NoError(t, err)

	items, err := repo.ListActive(ctx, top)
	require.NoError(t, err)
	positions := map[string]int{}
	for _, it := range items {
		positions[it.ID] = it.Position
	}
	assert.Equal(t, map[string]int{"a": 0, "b": 2, "c": 3}, positions)

	children, err := repo.ListActiveChildren(ctx, models.FamilyStages, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, children["a"], 1)
	assert.Empty(t, children["b"])

	_, err = repo.GetByID(ctx, top, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogRepositoryCreateUnknownParent(t *testing.T) {
	repo, _ := newTestRepo(t)
	parent := "missing"
	now := time.Now()
	err := repo.Create(context.Background(), &models.CatalogItem{
		ID: "x", Family: models.FamilyOptions, ParentID: &parent, Name: "x", CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogRepositoryVillagesAreSeparate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	north, south := "north", "south"

	for i, id := range []string{"n1", "n2"} {
		require.NoError(t, repo.Create(ctx, &models.CatalogItem{
			ID: id, Family: models.FamilyBuildings, VillageID: &north, Name: id, Position: i, CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.CatalogItem{
		ID: "s1", Family: models.FamilyBuildings, VillageID: &south, Name: "s1", CreatedAt: now, UpdatedAt: now,
	}))

	items, err := repo.ListActive(ctx, repositories.Scope{Family: models.FamilyBuildings, VillageID: &north})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "north", *items[0].VillageID)

	_, err = repo.GetByID(ctx, repositories.Scope{Family: models.FamilyBuildings, VillageID: &south}, "n1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Create(ctx, &models.CatalogItem{
		ID: "orphan", Family: models.FamilyBuildings, Name: "orphan", CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
