package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"prosphere/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

// MigrationTable is where goose records applied versions.
const MigrationTable = "schema_migrations"

const migrationDir = "migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

var gooseOnce sync.Once
var gooseErr error

// gooseLogger routes goose output through the application logger.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}

func configureGoose() error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrationFS)
		goose.SetTableName(MigrationTable)
		goose.SetLogger(gooseLogger{logger: middleware.Logger})
		gooseErr = goose.SetDialect("postgres")
	})
	return gooseErr
}

// Migration describes one embedded SQL migration.
type Migration struct {
	Version int64
	Name    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%05d_%s", m.Version, m.Name)
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() ([]Migration, error) {
	if err := configureGoose(); err != nil {
		return nil, err
	}
	collected, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}
	out := make([]Migration, 0, len(collected))
	for _, m := range collected {
		out = append(out, Migration{Version: m.Version, Name: migrationName(m.Source)})
	}
	return out, nil
}

func migrationName(source string) string {
	base := strings.TrimSuffix(path.Base(source), ".sql")
	if _, name, ok := strings.Cut(base, "_"); ok {
		return name
	}
	return base
}

func sqlDB(db *gorm.DB) (*sql.DB, error) {
	raw, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	return raw, nil
}

// RunMigrations applies all pending SQL migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	raw, err := sqlDB(db)
	if err != nil {
		return err
	}
	return RunMigrationsSQL(ctx, raw)
}

// RunMigrationsSQL applies all pending SQL migrations on a raw connection.
func RunMigrationsSQL(ctx context.Context, db *sql.DB) error {
	if err := configureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err == nil {
		middleware.Logger.Info("Database schema up to date", slog.Int64("version", version))
	}
	return nil
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(ctx context.Context, db *sql.DB) (int64, error) {
	if err := configureGoose(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// RollbackTo reverts applied migrations down to, but not including, version.
func RollbackTo(ctx context.Context, db *sql.DB, version int64) error {
	if err := configureGoose(); err != nil {
		return err
	}
	migrations, err := GetMigrations()
	if err != nil {
		return err
	}
	if version != 0 && !hasVersion(migrations, version) {
		return fmt.Errorf("migration version %d not found", version)
	}
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	if version >= current {
		return fmt.Errorf("migration %d is not below the current version %d", version, current)
	}

	middleware.Logger.Info("Rolling back migrations", slog.Int64("from", current), slog.Int64("to", version))
	if err := goose.DownToContext(ctx, db, migrationDir, version); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		return fmt.Errorf("rollback to %d: %w", version, err)
	}
	return nil
}

func hasVersion(migrations []Migration, version int64) bool {
	for _, m := range migrations {
		if m.Version == version {
			return true
		}
	}
	return false
}

// PendingMigrations returns migrations newer than current.
func PendingMigrations(migrations []Migration, current int64) []Migration {
	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending
}
