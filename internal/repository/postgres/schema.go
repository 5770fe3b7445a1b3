package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunSchema creates the catalog tables and indexes if they don't exist
func RunSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	createItems := `
		CREATE TABLE IF NOT EXISTS ` + tables.CatalogItems + ` (
			id TEXT PRIMARY KEY,
			family TEXT NOT NULL CHECK (family IN ('stages', 'options', 'buildings')),
			village_id TEXT,
			parent_id TEXT REFERENCES ` + tables.CatalogItems + `(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			position INTEGER NOT NULL CHECK (position >= 0),
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((family = 'buildings') = (village_id IS NOT NULL))
		)
	`
	if _, err := pool.Exec(ctx, createItems); err != nil {
		return fmt.Errorf("create %s: %w", tables.CatalogItems, err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `catalog_items_scope ON ` + tables.CatalogItems + `(family, village_id, parent_id, deleted, position)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `catalog_items_top ON ` + tables.CatalogItems + `(family, village_id, position) WHERE parent_id IS NULL AND deleted = FALSE`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// DropTables drops every catalog table
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// ClearData deletes all catalog rows, keeping the schema
func ClearData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
