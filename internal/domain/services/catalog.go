package services

import (
	"context"
	"encoding/json"

	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
)

// CreateChildRequest is an initial child supplied with a top-level insert.
type CreateChildRequest struct {
	Name string  `json:"name"`
	Desc *string `json:"desc,omitempty"`
}

// CreateItemRequest represents a request to insert an item into a collection
type CreateItemRequest struct {
	Family    models.Family        `json:"-"`
	VillageID *string              `json:"villageId,omitempty"` // Buildings only
	ParentID  *string              `json:"-"`
	Name      string               `json:"name"`
	Desc      *string              `json:"desc,omitempty"`
	Position  *int                 `json:"position,omitempty"` // Defaults to the end
	Stages    []CreateChildRequest `json:"stages,omitempty"`   // Top level only
}

// UpdateItemRequest represents a partial update. Nil fields are left alone.
// This is transport-agnostic; the handler maps JSON null on desc to ClearDesc.
type UpdateItemRequest struct {
	Name      *string
	Desc      *string
	ClearDesc bool
	Deleted   *bool
	Position  *int
	Stages    json.RawMessage // Rejected; children have their own routes
}

// CatalogService defines business logic for ordered catalog collections
type CatalogService interface {
	// List returns the active top-level items of the scope's family (and
	// village) ordered by position, each carrying its active children.
	List(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error)

	// ListDeleted returns the soft-deleted items of a collection.
	ListDeleted(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error)

	// Insert creates an item, shifting later siblings down.
	Insert(ctx context.Context, req *CreateItemRequest) (*models.CatalogItem, error)

	// Update applies a partial update; a position change shifts the siblings
	// in between so positions stay contiguous.
	Update(ctx context.Context, scope repositories.Scope, id string, req *UpdateItemRequest) (*models.CatalogItem, error)

	// Delete soft-deletes an item and closes the gap it leaves.
	Delete(ctx context.Context, scope repositories.Scope, id string) error
}
