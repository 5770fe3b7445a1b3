package seed

import (
	"context"
	"fmt"
	"log/slog"

	"relocation/internal/domain/services"
)

// Seeder loads a catalog through the catalog service so seeded data gets the
// same validation and positions as API inserts.
type Seeder struct {
	service services.CatalogService
	logger  *slog.Logger
}

// NewSeeder creates a new catalog seeder
func NewSeeder(service services.CatalogService, logger *slog.Logger) *Seeder {
	return &Seeder{service: service, logger: logger}
}

// Seed inserts every entry of the catalog. Collections that already have
// active items are skipped unless force is set.
func (s *Seeder) Seed(ctx context.Context, catalog *Catalog, force bool) (int, error) {
	created := 0
	for _, scope := range catalog.Scopes() {
		name := scopeName(scope)
		existing, err := s.service.List(ctx, scope)
		if err != nil {
			return created, fmt.Errorf("list %s: %w", name, err)
		}
		if len(existing) > 0 && !force {
			s.logger.Info("collection already seeded, skipping", "collection", name, "items", len(existing))
			continue
		}

		for _, req := range catalog.Requests(scope) {
			item, err := s.service.Insert(ctx, req)
			if err != nil {
				return created, fmt.Errorf("insert %s %q: %w", name, req.Name, err)
			}
			created++
			s.logger.Info("seeded item",
				"collection", name,
				"id", item.ID,
				"name", item.Name,
				"children", len(item.Stages),
			)
		}
	}
	return created, nil
}
