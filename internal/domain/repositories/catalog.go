package repositories

import (
	"context"

	"relocation/internal/domain/models"
)

// Scope addresses one ordered collection: a family's top level (ParentID nil)
// or the children of one parent. VillageID is set only for village-scoped
// families.
type Scope struct {
	Family    models.Family
	VillageID *string
	ParentID  *string
}

// CatalogRepository defines data access for catalog items. Methods that read
// siblings for a mutation must be called inside a transaction.
type CatalogRepository interface {
	// ListActive returns the non-deleted items of a scope ordered by position.
	ListActive(ctx context.Context, scope Scope) ([]models.CatalogItem, error)

	// ListActiveChildren returns the non-deleted children of the given parents,
	// keyed by parent ID and ordered by position.
	ListActiveChildren(ctx context.Context, family models.Family, parentIDs []string) (map[string][]models.CatalogItem, error)

	// ListDeleted returns the soft-deleted items of a scope.
	ListDeleted(ctx context.Context, scope Scope) ([]models.CatalogItem, error)

	// GetByID retrieves an item of the scope, deleted or not.
	GetByID(ctx context.Context, scope Scope, id string) (*models.CatalogItem, error)

	// LockActive locks the active rows of a scope (SELECT ... FOR UPDATE) and
	// returns how many there are.
	LockActive(ctx context.Context, scope Scope) (int, error)

	// ShiftPositions adds delta to the position of active items whose position
	// lies in [from, to]. A negative to means no upper bound.
	ShiftPositions(ctx context.Context, scope Scope, from, to, delta int) error

	// Create inserts an item.
	Create(ctx context.Context, item *models.CatalogItem) error

	// Update writes name, description, position and deleted flag.
	Update(ctx context.Context, item *models.CatalogItem) error
}
