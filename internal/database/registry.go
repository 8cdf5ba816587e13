package database

import (
	"fmt"
	"strings"

	"prosphere/internal/models"

	"gorm.io/gorm"
)

// Entities returns the schema-managed GORM models. Registration order matters
// only for readability; relations are wired separately by RegisterRelations.
func Entities() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Interest{},
		&models.UserInterest{},
		&models.Post{},
		&models.Reaction{},
		&models.Comment{},
	}
}

// Relation names a declared association whose foreign key is materialized in the database.
type Relation struct {
	Model interface{}
	Field string
}

// Relations lists the associations backed by foreign key constraints.
func Relations() []Relation {
	return []Relation{
		{Model: &models.Post{}, Field: "Author"},
		{Model: &models.Post{}, Field: "Reactions"},
		{Model: &models.Post{}, Field: "Comments"},
		{Model: &models.Reaction{}, Field: "User"},
		{Model: &models.Comment{}, Field: "Author"},
		{Model: &models.Comment{}, Field: "Replies"},
	}
}

// RegisterRelations installs join-table models so preloads and associations
// resolve against the declared entities. It must run once per connection,
// after the entities exist as Go types and before any association query.
func RegisterRelations(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Interests", &models.UserInterest{}); err != nil {
		return fmt.Errorf("setup user interests join table: %w", err)
	}
	return nil
}

// CreateRelationConstraints creates any missing foreign key from Relations.
// SQLite connections are skipped; constraints there are not enforced by default.
func CreateRelationConstraints(db *gorm.DB) error {
	if !IsPostgres(db) {
		return nil
	}
	m := db.Migrator()
	for _, rel := range Relations() {
		if m.HasConstraint(rel.Model, rel.Field) {
			continue
		}
		if err := m.CreateConstraint(rel.Model, rel.Field); err != nil {
			return fmt.Errorf("create constraint %T.%s: %w", rel.Model, rel.Field, err)
		}
	}
	return nil
}

// AutoMigrate creates or alters tables for every entity, then wires relations.
func AutoMigrate(db *gorm.DB) error {
	if IsPostgres(db) {
		if err := ensureEnumTypes(db); err != nil {
			return err
		}
	}
	if err := RegisterRelations(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(Entities()...); err != nil {
		return err
	}
	return CreateRelationConstraints(db)
}

var enumTypes = map[string][]string{
	"enum_users_theme":         {"LIGHT", "DARK", "SYSTEM"},
	"enum_users_availability":  availabilityValues(),
	"enum_post_reactions_type": reactionValues(),
}

func availabilityValues() []string {
	out := make([]string, 0, len(models.Availabilities))
	for _, a := range models.Availabilities {
		out = append(out, string(a))
	}
	return out
}

func reactionValues() []string {
	out := make([]string, 0, len(models.ReactionTypes))
	for _, r := range models.ReactionTypes {
		out = append(out, string(r))
	}
	return out
}

func ensureEnumTypes(db *gorm.DB) error {
	for name, values := range enumTypes {
		var exists bool
		if err := db.Raw("SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = ?)", name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("check enum %s: %w", name, err)
		}
		if exists {
			continue
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = "'" + v + "'"
		}
		// DDL takes no bind parameters; names and values come from the fixed enumTypes table
		stmt := fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", name, strings.Join(quoted, ", "))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create enum %s: %w", name, err)
		}
	}
	return nil
}
