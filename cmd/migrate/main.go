package main

// Prepare the configured store:
//   go run ./cmd/migrate
//
// Postgres runs the embedded goose migrations; mongo creates indexes.

import (
	"context"
	"log"
	"os"

	"research-backend/internal/shared/config"
	"research-backend/internal/shared/storage/db"
	mongostore "research-backend/internal/shared/storage/mongo"
	"research-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Setup("research-migrate", cfg.LogLevel)
	ctx := context.Background()

	var err error
	switch cfg.StoreDriver {
	case "postgres":
		err = migratePostgres(ctx, cfg)
	case "mongo":
		err = migrateMongo(ctx, cfg)
	default:
		log.Printf("nothing to migrate for STORE_DRIVER=%s", cfg.StoreDriver)
		return
	}
	if err != nil {
		log.Printf("migration failed: %v", err)
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"store_driver": cfg.StoreDriver})
}

func migratePostgres(ctx context.Context, cfg config.Config) error {
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return err
	}
	version, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	telemetry.Info("migrate.postgres_version", map[string]any{"version": version})
	return nil
}

func migrateMongo(ctx context.Context, cfg config.Config) error {
	client, database, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.DBName, mongostore.DefaultOptions())
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	return mongostore.EnsureIndexes(ctx, database)
}
