package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"prosphere/internal/models"
	"prosphere/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed users.yml
var defaultUsersYAML []byte

// TestUser is one entry of the test user file.
type TestUser struct {
	ID           string           `yaml:"id" json:"clerk_user_id"`
	FirstName    string           `yaml:"first_name" json:"first_name"`
	LastName     string           `yaml:"last_name" json:"last_name"`
	Email        string           `yaml:"email" json:"email"`
	Headline     string           `yaml:"headline" json:"headline"`
	Availability string           `yaml:"availability" json:"availability,omitempty"`
	Location     *models.Location `yaml:"location" json:"location,omitempty"`
	Interests    []string         `yaml:"interests" json:"interests"`
}

type testUserFile struct {
	Users []TestUser `yaml:"users"`
}

// LoadTestUsers reads the test user file at path, falling back to the
// built-in list when path is empty or does not exist.
func LoadTestUsers(path string) ([]TestUser, error) {
	data := defaultUsersYAML
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = b
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read test users: %w", err)
		}
	}

	var f testUserFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse test users: %w", err)
	}
	for _, u := range f.Users {
		if len(u.ID) <= len(TestUserPrefix) || u.ID[:len(TestUserPrefix)] != TestUserPrefix {
			return nil, fmt.Errorf("test user %q must start with %q", u.ID, TestUserPrefix)
		}
	}
	return f.Users, nil
}

// Model converts the entry into a user row.
func (u TestUser) Model() *models.User {
	user := &models.User{
		ClerkUserID: u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Headline:    u.Headline,
		Location:    u.Location,
		Theme:       models.ThemeSystem,
		SocialLinks: map[string]string{},
	}
	if u.Availability != "" {
		a := models.Availability(u.Availability)
		user.Availability = &a
	}
	return user
}

// SeedTestUsers inserts the users that do not exist yet and links their
// interests. It returns the number of users created.
func SeedTestUsers(ctx context.Context, store repository.Store, users []TestUser) (int, error) {
	created := 0
	err := store.Transaction(ctx, func(tx repository.Store) error {
		for _, u := range users {
			exists, err := tx.Users().Exists(ctx, u.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := tx.Users().Create(ctx, u.Model()); err != nil {
				return err
			}
			known, err := tx.Interests().GetByIDs(ctx, u.Interests)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(known))
			for _, i := range known {
				ids = append(ids, i.ID)
			}
			if err := tx.Users().LinkInterests(ctx, u.ID, ids); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

// TestUserReport compares the seeded users in the database with the test user file.
type TestUserReport struct {
	Expected []string `json:"expected"`
	Present  []string `json:"present"`
	Missing  []string `json:"missing"`
	Extra    []string `json:"extra"`
}

// CompareTestUsers builds a report from the file entries and the ids found in the database.
func CompareTestUsers(expected []TestUser, present []models.User) TestUserReport {
	r := TestUserReport{Expected: []string{}, Present: []string{}, Missing: []string{}, Extra: []string{}}
	want := map[string]bool{}
	for _, u := range expected {
		want[u.ID] = true
		r.Expected = append(r.Expected, u.ID)
	}
	have := map[string]bool{}
	for _, u := range present {
		have[u.ClerkUserID] = true
		r.Present = append(r.Present, u.ClerkUserID)
		if !want[u.ClerkUserID] {
			r.Extra = append(r.Extra, u.ClerkUserID)
		}
	}
	for _, u := range expected {
		if !have[u.ID] {
			r.Missing = append(r.Missing, u.ID)
		}
	}
	return r
}
