package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"relocation/internal/domain"
	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
)

const itemColumns = `id, family, village_id, parent_id, name, description, position, deleted, created_at, updated_at`

// scopeFilter matches $1 = family, $2 = village, $3 = parent (NULL for the
// top level).
const scopeFilter = `family = $1 AND village_id IS NOT DISTINCT FROM $2 AND parent_id IS NOT DISTINCT FROM $3`

// PostgresCatalogRepository implements repositories.CatalogRepository
type PostgresCatalogRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(config *RepositoryConfig) repositories.CatalogRepository {
	return &PostgresCatalogRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// ListActive returns the non-deleted items of a scope ordered by position
func (r *PostgresCatalogRepository) ListActive(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s AND deleted = false
		ORDER BY position, created_at
	`, itemColumns, r.tables.CatalogItems, scopeFilter)

	return r.queryItems(ctx, query, scope.Family, scope.VillageID, scope.ParentID)
}

// ListActiveChildren returns the non-deleted children of parentIDs grouped by parent
func (r *PostgresCatalogRepository) ListActiveChildren(ctx context.Context, family models.Family, parentIDs []string) (map[string][]models.CatalogItem, error) {
	children := make(map[string][]models.CatalogItem, len(parentIDs))
	if len(parentIDs) == 0 {
		return children, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE family = $1 AND parent_id = ANY($2) AND deleted = false
		ORDER BY parent_id, position, created_at
	`, itemColumns, r.tables.CatalogItems)

	items, err := r.queryItems(ctx, query, family, parentIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		children[*item.ParentID] = append(children[*item.ParentID], item)
	}
	return children, nil
}

// ListDeleted returns the soft-deleted items of a scope
func (r *PostgresCatalogRepository) ListDeleted(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s AND deleted = true
		ORDER BY updated_at DESC
	`, itemColumns, r.tables.CatalogItems, scopeFilter)

	return r.queryItems(ctx, query, scope.Family, scope.VillageID, scope.ParentID)
}

// GetByID retrieves an item of the scope
func (r *PostgresCatalogRepository) GetByID(ctx context.Context, scope repositories.Scope, id string) (*models.CatalogItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s AND id = $4
	`, itemColumns, r.tables.CatalogItems, scopeFilter)

	executor := GetExecutor(ctx, r.pool)
	item, err := scanItem(executor.QueryRow(ctx, query, scope.Family, scope.VillageID, scope.ParentID, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// LockActive locks the scope's active rows for the rest of the transaction
func (r *PostgresCatalogRepository) LockActive(ctx context.Context, scope repositories.Scope) (int, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE %s AND deleted = false
		FOR UPDATE
	`, r.tables.CatalogItems, scopeFilter)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, scope.Family, scope.VillageID, scope.ParentID)
	if err != nil {
		return 0, fmt.Errorf("lock items: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate locked items: %w", err)
	}
	return count, nil
}

// ShiftPositions moves active items in [from, to] by delta
func (r *PostgresCatalogRepository) ShiftPositions(ctx context.Context, scope repositories.Scope, from, to, delta int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET position = position + $4, updated_at = NOW()
		WHERE %s AND deleted = false
		  AND position >= $5
		  AND ($6::int < 0 OR position <= $6::int)
	`, r.tables.CatalogItems, scopeFilter)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, scope.Family, scope.VillageID, scope.ParentID, delta, from, to); err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}
	return nil
}

// Create inserts an item
func (r *PostgresCatalogRepository) Create(ctx context.Context, item *models.CatalogItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, family, village_id, parent_id, name, description, position, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.CatalogItems)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		item.ID,
		item.Family,
		item.VillageID,
		item.ParentID,
		item.Name,
		item.Desc,
		item.Position,
		item.Deleted,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return &domain.NotFoundError{Kind: "parent", ID: deref(item.ParentID)}
		case codeCheckViolation:
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Update writes name, description, position and deleted flag
func (r *PostgresCatalogRepository) Update(ctx context.Context, item *models.CatalogItem) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, position = $3, deleted = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.CatalogItems)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		item.Name,
		item.Desc,
		item.Position,
		item.Deleted,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		if pgCode(err) == codeCheckViolation {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return fmt.Errorf("update item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresCatalogRepository) queryItems(ctx context.Context, query string, args ...any) ([]models.CatalogItem, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func scanItem(row pgx.Row) (models.CatalogItem, error) {
	var item models.CatalogItem
	err := row.Scan(
		&item.ID,
		&item.Family,
		&item.VillageID,
		&item.ParentID,
		&item.Name,
		&item.Desc,
		&item.Position,
		&item.Deleted,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
