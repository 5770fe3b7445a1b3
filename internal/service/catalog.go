package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"relocation/internal/config"
	"relocation/internal/domain"
	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
	"relocation/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// catalogService implements the CatalogService interface
type catalogService struct {
	repo      repositories.CatalogRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	repo repositories.CatalogRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.CatalogService {
	return &catalogService{
		repo:      repo,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// List returns the family's active top-level items with their children
func (s *catalogService) List(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	if err := checkVillage(scope.Family, scope.VillageID); err != nil {
		return nil, err
	}
	family := scope.Family
	items, err := s.repo.ListActive(ctx, repositories.Scope{Family: family, VillageID: scope.VillageID})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	children, err := s.repo.ListActiveChildren(ctx, family, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Stages = children[items[i].ID]
	}

	return items, nil
}

// ListDeleted returns the soft-deleted items of a collection
func (s *catalogService) ListDeleted(ctx context.Context, scope repositories.Scope) ([]models.CatalogItem, error) {
	if err := checkVillage(scope.Family, scope.VillageID); err != nil {
		return nil, err
	}
	if err := s.requireParent(ctx, scope); err != nil {
		return nil, err
	}
	return s.repo.ListDeleted(ctx, scope)
}

// Insert creates an item at the requested position, or at the end
func (s *catalogService) Insert(ctx context.Context, req *services.CreateItemRequest) (*models.CatalogItem, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	scope := repositories.Scope{Family: req.Family, VillageID: req.VillageID, ParentID: req.ParentID}
	now := s.now()
	item := &models.CatalogItem{
		ID:        s.newID(),
		Family:    req.Family,
		VillageID: req.VillageID,
		ParentID:  req.ParentID,
		Name:      strings.TrimSpace(req.Name),
		Desc:      trimmedOrNil(req.Desc),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParent(txCtx, scope); err != nil {
			return err
		}

		count, err := s.repo.LockActive(txCtx, scope)
		if err != nil {
			return err
		}

		item.Position = count
		if req.Position != nil {
			item.Position = *req.Position
		}
		if item.Position < 0 || item.Position > count {
			return &domain.PositionError{Position: item.Position, Max: count}
		}

		if item.Position < count {
			if err := s.repo.ShiftPositions(txCtx, scope, item.Position, -1, 1); err != nil {
				return err
			}
		}
		if err := s.repo.Create(txCtx, item); err != nil {
			return err
		}

		for i, child := range req.Stages {
			sub := models.CatalogItem{
				ID:        s.newID(),
				Family:    req.Family,
				VillageID: req.VillageID,
				ParentID:  &item.ID,
				Name:      strings.TrimSpace(child.Name),
				Desc:      trimmedOrNil(child.Desc),
				Position:  i,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Create(txCtx, &sub); err != nil {
				return err
			}
			item.Stages = append(item.Stages, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("catalog item created",
		"id", item.ID,
		"family", item.Family,
		"village_id", req.VillageID,
		"parent_id", req.ParentID,
		"position", item.Position,
		"children", len(item.Stages),
	)

	return item, nil
}

// Update applies a partial update inside one transaction
func (s *catalogService) Update(ctx context.Context, scope repositories.Scope, id string, req *services.UpdateItemRequest) (*models.CatalogItem, error) {
	if err := checkVillage(scope.Family, scope.VillageID); err != nil {
		return nil, err
	}
	if len(req.Stages) > 0 {
		return nil, fmt.Errorf("%w: updating %s is not allowed here", domain.ErrValidation, childrenLabel(scope.Family))
	}
	if req.Deleted != nil && *req.Deleted {
		return nil, fmt.Errorf("%w: use DELETE to remove an item", domain.ErrValidation)
	}
	if req.Name == nil && req.Desc == nil && !req.ClearDesc && req.Position == nil {
		return nil, fmt.Errorf("%w: no valid fields to update", domain.ErrValidation)
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var (
		updated *models.CatalogItem
		oldPos  int
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParent(txCtx, scope); err != nil {
			return err
		}

		count, err := s.repo.LockActive(txCtx, scope)
		if err != nil {
			return err
		}

		item, err := s.getItem(txCtx, scope, id)
		if err != nil {
			return err
		}
		if item.Deleted {
			return fmt.Errorf("%w: cannot update deleted %s", domain.ErrValidation, labelFor(scope))
		}

		oldPos = item.Position
		newPos := oldPos
		if req.Position != nil {
			newPos = *req.Position
		}
		if newPos < 0 || newPos > count-1 {
			return &domain.PositionError{Position: newPos, Max: count - 1}
		}

		switch {
		case newPos > oldPos:
			err = s.repo.ShiftPositions(txCtx, scope, oldPos+1, newPos, -1)
		case newPos < oldPos:
			err = s.repo.ShiftPositions(txCtx, scope, newPos, oldPos-1, 1)
		}
		if err != nil {
			return err
		}

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		switch {
		case req.ClearDesc:
			item.Desc = nil
		case req.Desc != nil:
			item.Desc = trimmedOrNil(req.Desc)
		}
		item.Position = newPos
		item.UpdatedAt = s.now()

		if err := s.repo.Update(txCtx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("catalog item updated",
		"id", id,
		"family", scope.Family,
		"village_id", scope.VillageID,
		"parent_id", scope.ParentID,
		"from", oldPos,
		"to", updated.Position,
	)

	return updated, nil
}

// Delete soft-deletes an item and shifts later siblings up
func (s *catalogService) Delete(ctx context.Context, scope repositories.Scope, id string) error {
	if err := checkVillage(scope.Family, scope.VillageID); err != nil {
		return err
	}
	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParent(txCtx, scope); err != nil {
			return err
		}
		if _, err := s.repo.LockActive(txCtx, scope); err != nil {
			return err
		}

		item, err := s.getItem(txCtx, scope, id)
		if err != nil {
			return err
		}
		if item.Deleted {
			return &domain.NotFoundError{Kind: labelFor(scope), ID: id}
		}

		item.Deleted = true
		item.UpdatedAt = s.now()
		if err := s.repo.Update(txCtx, item); err != nil {
			return err
		}
		if err := s.repo.ShiftPositions(txCtx, scope, item.Position+1, -1, -1); err != nil {
			return err
		}

		s.logger.Info("catalog item deleted",
			"id", id,
			"family", scope.Family,
			"village_id", scope.VillageID,
			"parent_id", scope.ParentID,
			"position", item.Position,
		)
		return nil
	})
}

// requireParent checks that a child scope's parent exists and is active.
func (s *catalogService) requireParent(ctx context.Context, scope repositories.Scope) error {
	if scope.ParentID == nil {
		return nil
	}
	top := repositories.Scope{Family: scope.Family, VillageID: scope.VillageID}
	parent, err := s.getItem(ctx, top, *scope.ParentID)
	if err != nil {
		return err
	}
	if parent.Deleted {
		return &domain.NotFoundError{Kind: labelFor(top), ID: parent.ID}
	}
	return nil
}

// checkVillage requires a village for village-scoped families and rejects
// one everywhere else.
func checkVillage(family models.Family, villageID *string) error {
	err := validation.Validate(villageID, villageRules(family)...)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func villageRules(family models.Family) []validation.Rule {
	return []validation.Rule{
		validation.When(family.Scoped(), validation.Required.Error("villageId is required")),
		validation.When(!family.Scoped(), validation.Nil.Error(fmt.Sprintf("%s are not kept per village", family))),
	}
}

// getItem loads an item, naming its kind when it does not exist.
func (s *catalogService) getItem(ctx context.Context, scope repositories.Scope, id string) (*models.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, scope, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.NotFoundError{Kind: labelFor(scope), ID: id}
	}
	return item, err
}

// validateCreateRequest validates an insert request
func (s *catalogService) validateCreateRequest(req *services.CreateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Family, validation.Required, validation.In(toAny(models.Families)...)),
		validation.Field(&req.VillageID, villageRules(req.Family)...),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxItemNameLength),
			validation.By(validateName),
		),
		validation.Field(&req.Desc, validation.Length(0, config.MaxItemDescLength)),
		validation.Field(&req.Position, validation.Min(0)),
		validation.Field(&req.Stages,
			validation.When(req.ParentID != nil, validation.Empty.Error("children can only be created with a top-level item")),
			validation.Length(0, config.MaxChildrenPerItem),
			validation.Each(validation.By(validateChild)),
		),
	)
}

// validateUpdateRequest validates an update request
func (s *catalogService) validateUpdateRequest(req *services.UpdateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxItemNameLength),
			validation.By(validateName),
		),
		validation.Field(&req.Desc, validation.Length(0, config.MaxItemDescLength)),
		validation.Field(&req.Position, validation.Min(0)),
	)
}

// validateName rejects names that are blank after trimming.
func validateName(value interface{}) error {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case *string:
		if v == nil {
			return nil
		}
		name = *v
	default:
		return fmt.Errorf("name must be a string")
	}

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

func validateChild(value interface{}) error {
	child, ok := value.(services.CreateChildRequest)
	if !ok {
		return fmt.Errorf("invalid child")
	}
	return validation.ValidateStruct(&child,
		validation.Field(&child.Name,
			validation.Required,
			validation.Length(1, config.MaxItemNameLength),
			validation.By(validateName),
		),
		validation.Field(&child.Desc, validation.Length(0, config.MaxItemDescLength)),
	)
}

func labelFor(scope repositories.Scope) string {
	routes, ok := models.RoutesFor(scope.Family)
	if !ok {
		return "item"
	}
	return routes.LabelFor(scope.ParentID)
}

func childrenLabel(family models.Family) string {
	routes, ok := models.RoutesFor(family)
	if !ok {
		return "children"
	}
	return routes.ChildLabel + "s"
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toAny[T any](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
