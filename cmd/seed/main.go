package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"relocation/internal/auth"
	"relocation/internal/config"
	"relocation/internal/repository/postgres"
	"relocation/internal/seed"
	"relocation/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed the catalog")
	clearData := flag.Bool("clear-data", false, "Clear all catalog items (keep schema)")
	force := flag.Bool("force", false, "Seed families even if they already have items")
	catalogFile := flag.String("catalog", "", "YAML catalog to seed instead of the built-in one")
	printToken := flag.Duration("print-token", 0, "Print an operator token valid for this long and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *printToken > 0 {
		signer, err := auth.NewHMACVerifier(cfg.JWTSecret, logger)
		if err != nil {
			log.Fatalf("Cannot sign token: %v", err)
		}
		token, err := signer.Sign("operator", *printToken)
		if err != nil {
			log.Fatalf("Cannot sign token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	switch {
	case *clearData:
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("🌱 Seeding catalog (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.RunSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared")
		return
	}

	catalog, err := loadCatalog(*catalogFile)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	catalogService := service.NewCatalogService(
		postgres.NewCatalogRepository(repoConfig),
		postgres.NewTransactionManager(repoConfig),
		logger,
	)

	created, err := seed.NewSeeder(catalogService, logger).Seed(ctx, catalog, *force)
	if err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	log.Printf("✅ Seeded %d items", created)
}

func loadCatalog(path string) (*seed.Catalog, error) {
	if path == "" {
		return seed.DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seed.ParseCatalog(data)
}
