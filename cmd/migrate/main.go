// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"prosphere/internal/config"
	"prosphere/internal/database"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up", "down":
		// goose works on database/sql; no ORM is needed for these two
		raw, err := sql.Open("pgx", database.DSN(cfg))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = raw.Close() }()
		return runSQL(ctx, raw, cmd)
	case "auto", "status":
	default:
		return usage()
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if cmd == "auto" {
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
		return nil
	}

	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t current=%d pending=%d",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		status.CurrentVersion, len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %s", m)
	}
	return nil
}

func runSQL(ctx context.Context, raw *sql.DB, cmd string) error {
	if cmd == "up" {
		if err := database.RunMigrationsSQL(ctx, raw); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		version, err := database.CurrentVersion(ctx, raw)
		if err != nil {
			return err
		}
		log.Printf("sql migrations applied, version=%d", version)
		return nil
	}

	if flag.NArg() < 2 {
		return fmt.Errorf("usage: go run ./cmd/migrate down <version>")
	}
	version, err := strconv.ParseInt(flag.Arg(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
	}
	if err := database.RollbackTo(ctx, raw, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back to version %d", version)
	return nil
}
