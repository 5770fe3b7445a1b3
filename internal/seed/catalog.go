package seed

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"relocation/internal/domain/models"
	"relocation/internal/domain/repositories"
	"relocation/internal/domain/services"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogEntry is a top-level item with its initial children.
type CatalogEntry struct {
	Name     string         `yaml:"name"`
	Desc     string         `yaml:"desc,omitempty"`
	Children []CatalogEntry `yaml:"children,omitempty"`
}

// Catalog is the seed document: one list per family, and one list of
// buildings per village id.
type Catalog struct {
	Stages    []CatalogEntry            `yaml:"stages"`
	Options   []CatalogEntry            `yaml:"options"`
	Buildings map[string][]CatalogEntry `yaml:"buildings,omitempty"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog parses a YAML catalog. Entries must be named and children may
// not have children of their own.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for village := range c.Buildings {
		if village == "" {
			return nil, fmt.Errorf("buildings: village id is required")
		}
	}
	for _, scope := range c.Scopes() {
		name := scopeName(scope)
		for i, entry := range c.entries(scope) {
			if entry.Name == "" {
				return nil, fmt.Errorf("%s[%d]: name is required", name, i)
			}
			for j, child := range entry.Children {
				if child.Name == "" {
					return nil, fmt.Errorf("%s[%d].children[%d]: name is required", name, i, j)
				}
				if len(child.Children) > 0 {
					return nil, fmt.Errorf("%s[%d].children[%d]: nesting is limited to one level", name, i, j)
				}
			}
		}
	}
	return &c, nil
}

// Scopes lists the top-level collections the catalog seeds: stages, options,
// then each village's buildings ordered by village id.
func (c *Catalog) Scopes() []repositories.Scope {
	scopes := []repositories.Scope{
		{Family: models.FamilyStages},
		{Family: models.FamilyOptions},
	}
	villages := make([]string, 0, len(c.Buildings))
	for village := range c.Buildings {
		villages = append(villages, village)
	}
	slices.Sort(villages)
	for _, village := range villages {
		scopes = append(scopes, repositories.Scope{Family: models.FamilyBuildings, VillageID: &village})
	}
	return scopes
}

func (c *Catalog) entries(scope repositories.Scope) []CatalogEntry {
	switch scope.Family {
	case models.FamilyStages:
		return c.Stages
	case models.FamilyOptions:
		return c.Options
	case models.FamilyBuildings:
		if scope.VillageID != nil {
			return c.Buildings[*scope.VillageID]
		}
	}
	return nil
}

func scopeName(scope repositories.Scope) string {
	if scope.VillageID != nil {
		return fmt.Sprintf("%s.%s", scope.Family, *scope.VillageID)
	}
	return string(scope.Family)
}

// Requests turns the scope's entries into insert requests, in order.
func (c *Catalog) Requests(scope repositories.Scope) []*services.CreateItemRequest {
	entries := c.entries(scope)
	reqs := make([]*services.CreateItemRequest, 0, len(entries))
	for _, entry := range entries {
		req := &services.CreateItemRequest{
			Family:    scope.Family,
			VillageID: scope.VillageID,
			Name:      entry.Name,
			Desc:      optional(entry.Desc),
		}
		for _, child := range entry.Children {
			req.Stages = append(req.Stages, services.CreateChildRequest{
				Name: child.Name,
				Desc: optional(child.Desc),
			})
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
