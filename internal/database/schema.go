package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"prosphere/internal/config"
	"prosphere/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid" // goose migrations, plus AutoMigrate outside production-like envs
	SchemaModeSQL    = "sql"    // goose migrations only
	SchemaModeAuto   = "auto"   // AutoMigrate only
)

// prodLikeEnvs never AutoMigrate in hybrid mode and need an explicit opt-in for auto mode.
var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// SchemaStatus reports what ApplySchema would do and where the SQL migrations stand.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	CurrentVersion     int64
	PendingMigrations  []Migration
}

// schemaPlan is the outcome of the schema policy for one config.
type schemaPlan struct {
	mode        string
	env         string
	sql         bool
	auto        bool
	destructive bool
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{
		mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		env:  cfg.Env,
	}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}
	prodLike := slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch p.mode {
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeHybrid:
		p.sql, p.auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDrops {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.auto, p.destructive = true, cfg.DBAutoMigrateAllowDrops
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", p.mode)
	}
	return p, nil
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	p, err := planSchema(cfg)
	if err != nil {
		return false, false, err
	}
	return p.sql, p.auto, nil
}

// ApplySchema brings the database schema up to date: goose migrations first,
// then GORM AutoMigrate, each only when DB_SCHEMA_MODE and APP_ENV allow it.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if p.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !p.auto {
		return nil
	}

	if p.destructive {
		middleware.Logger.WarnContext(ctx, "AutoMigrate running with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true",
			slog.String("env", p.env))
	}
	middleware.Logger.InfoContext(ctx, "running AutoMigrate",
		slog.String("mode", p.mode),
		slog.String("env", p.env),
		slog.Int("models", len(Entities())),
	)
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations are in
// play, the applied goose version and the migrations still pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               p.mode,
		Environment:        p.env,
		WillRunSQL:         p.sql,
		WillRunAutoMigrate: p.auto,
	}
	if !p.sql {
		return status, nil
	}

	raw, err := sqlDB(db)
	if err != nil {
		return nil, err
	}
	if status.CurrentVersion, err = CurrentVersion(ctx, raw); err != nil {
		return nil, err
	}
	all, err := GetMigrations()
	if err != nil {
		return nil, err
	}
	status.PendingMigrations = PendingMigrations(all, status.CurrentVersion)
	return status, nil
}
