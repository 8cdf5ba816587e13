package database

import (
	"strings"
	"testing"
	"time"

	"prosphere/internal/config"
	"prosphere/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:       10,
		DBMaxIdleConns:       5,
		DBConnMaxLifetimeMin: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Close(db))
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	m := db.Migrator()
	for _, table := range []string{"users", "interests", "user_interests", "posts", "post_reactions", "post_comments"} {
		assert.True(t, m.HasTable(table), table)
	}
	assert.True(t, m.HasColumn(&models.UserInterest{}, "added_at"))
	assert.True(t, m.HasIndex(&models.Reaction{}, "idx_post_reactions_post_user"))
	assert.True(t, m.HasColumn(&models.Comment{}, "parent_comment_id"))
}

func TestRegisterRelations_PreloadsInterests(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.User{ClerkUserID: "u1", FirstName: "Ada", LastName: "L", Email: "ada@example.com"}).Error)
	require.NoError(t, db.Create(&models.Interest{ID: "i1", Name: "Go", Popularity: "high", Category: "Tech"}).Error)
	require.NoError(t, db.Create(&models.UserInterest{ClerkUserID: "u1", InterestID: "i1"}).Error)

	var user models.User
	require.NoError(t, db.Preload("Interests").First(&user, "clerk_user_id = ?", "u1").Error)
	require.Len(t, user.Interests, 1)
	assert.Equal(t, "Go", user.Interests[0].Name)
}

func TestRelations_AllResolve(t *testing.T) {
	db := openSQLite(t)
	for _, rel := range Relations() {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(rel.Model))
		_, ok := stmt.Schema.Relationships.Relations[rel.Field]
		assert.True(t, ok, "%T.%s", rel.Model, rel.Field)
	}
}

func TestCreateRelationConstraints_SkipsSQLite(t *testing.T) {
	assert.NoError(t, CreateRelationConstraints(openSQLite(t)))
}

func TestEnsureEnumTypes_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.MatchExpectationsInOrder(false)
	for name := range enumTypes {
		exists := name != "enum_post_reactions_type"
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
	}
	mock.ExpectExec("CREATE TYPE enum_post_reactions_type AS ENUM \\('like', 'celebrate', 'support', 'insightful', 'curious'\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ensureEnumTypes(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMigrations(t *testing.T) {
	migrations, err := GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "create_users_and_interests", migrations[0].Name)
	assert.Equal(t, "00002_create_posts", migrations[1].String())

	entries, err := migrationFS.ReadDir(migrationDir)
	require.NoError(t, err)
	for _, e := range entries {
		body, err := migrationFS.ReadFile(migrationDir + "/" + e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}
}

func TestMigrations_DeclareReactionUniqueness(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/00002_create_posts.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS idx_post_reactions_post_user ON post_reactions (post_id, clerk_user_id)")
	assert.True(t, strings.Contains(sql, "REFERENCES post_comments (id) ON DELETE SET NULL"))
}

func TestMigrations_ForeignKeysUseGormNames(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/00004_name_foreign_keys.sql")
	require.NoError(t, err)
	sql := string(body)

	db := openSQLite(t)
	for _, rel := range Relations() {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(rel.Model))
		r, ok := stmt.Schema.Relationships.Relations[rel.Field]
		require.True(t, ok, "%T.%s", rel.Model, rel.Field)
		c := r.ParseConstraint()
		require.NotNil(t, c, "%T.%s", rel.Model, rel.Field)

		// HasConstraint looks the key up by this name on this table
		var row string
		for _, line := range strings.Split(sql, "\n") {
			if strings.Contains(line, "'"+c.Name+"']") {
				row = line
				break
			}
		}
		require.NotEmpty(t, row, "%T.%s is renamed to %s", rel.Model, rel.Field, c.Name)
		assert.Contains(t, row, "['"+c.Schema.Table+"'", "%T.%s", rel.Model, rel.Field)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	assert.Len(t, PendingMigrations(all, 0), 3)
	assert.Equal(t, []Migration{{Version: 3}}, PendingMigrations(all, 2))
	assert.Empty(t, PendingMigrations(all, 3))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{Env: "test", DBSchemaMode: "AUTO"}, false, true, false},
		{"auto staging refused", config.Config{Env: "staging", DBSchemaMode: "auto"}, false, false, true},
		{"auto staging allowed", config.Config{Env: "staging", DBSchemaMode: "auto", DBAutoMigrateAllowDrops: true}, false, true, false},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(nil)
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)
	quiet := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, quiet.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
	quiet.Trace(nil, time.Now(), func() (string, int64) { return "", 0 }, nil) //nolint:staticcheck
}
