package seed

import (
	"context"
	"fmt"

	"prosphere/internal/middleware"
	"prosphere/internal/models"
	"prosphere/internal/repository"

	"github.com/google/uuid"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	MaxDays     int
	ShouldClean bool
	UsersFile   string
	RandSeed    int64
}

// Summary counts what a Seed run inserted.
type Summary struct {
	Interests int `json:"interests"`
	Users     int `json:"users"`
	Posts     int `json:"posts"`
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
}

// SeedInterests inserts the built-in taxonomy, skipping ids that exist.
func SeedInterests(ctx context.Context, store repository.Store) (int, error) {
	interests, err := Interests()
	if err != nil {
		return 0, err
	}
	n, err := store.Interests().CreateBatch(ctx, interests)
	return int(n), err
}

// Seed populates the database with the taxonomy, the test user file and
// generated users, posts, reactions and comments.
func Seed(ctx context.Context, store repository.Store, opts Options) (Summary, error) {
	var sum Summary
	log := middleware.Logger
	log.InfoContext(ctx, "Starting database seeding", "users", opts.NumUsers, "posts", opts.NumPosts)

	if opts.ShouldClean {
		n, err := store.Users().DeleteByPrefix(ctx, TestUserPrefix)
		if err != nil {
			return sum, fmt.Errorf("failed to clear test users: %w", err)
		}
		log.InfoContext(ctx, "Cleared test users", "count", n)
	}

	var err error
	if sum.Interests, err = SeedInterests(ctx, store); err != nil {
		return sum, fmt.Errorf("failed to seed interests: %w", err)
	}

	fileUsers, err := LoadTestUsers(opts.UsersFile)
	if err != nil {
		return sum, err
	}
	if sum.Users, err = SeedTestUsers(ctx, store, fileUsers); err != nil {
		return sum, fmt.Errorf("failed to seed test users: %w", err)
	}

	interests, err := store.Interests().List(ctx)
	if err != nil {
		return sum, err
	}

	f := NewFactory(store, opts)
	authors := make([]string, 0, opts.NumUsers+len(fileUsers))
	for _, u := range fileUsers {
		authors = append(authors, u.ID)
	}

	err = store.Transaction(ctx, func(tx repository.Store) error {
		f.store = tx
		for i := 0; i < opts.NumUsers; i++ {
			u, err := f.CreateUser(ctx)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			authors = append(authors, u.ClerkUserID)
			sum.Users++
			if len(interests) > 0 {
				picked := pickInterests(f, interests, f.faker.Number(1, 3))
				if err := tx.Users().LinkInterests(ctx, u.ClerkUserID, picked); err != nil {
					return err
				}
			}
		}
		if len(authors) == 0 {
			return nil
		}

		for i := 0; i < opts.NumPosts; i++ {
			author := authors[f.faker.Number(0, len(authors)-1)]
			post, err := f.CreatePost(ctx, author)
			if err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
			sum.Posts++

			reacted := map[string]bool{}
			for j := f.faker.Number(0, min(5, len(authors))); j > 0; j-- {
				user := authors[f.faker.Number(0, len(authors)-1)]
				if reacted[user] {
					continue
				}
				reacted[user] = true
				if _, err := f.CreateReaction(ctx, post, user); err != nil {
					return fmt.Errorf("failed to create reaction: %w", err)
				}
				sum.Reactions++
			}

			var last *models.Comment
			for j := f.faker.Number(0, 4); j > 0; j-- {
				var parent *uuid.UUID
				if last != nil && f.faker.Bool() {
					parent = &last.ID
				}
				c, err := f.CreateComment(ctx, post, authors[f.faker.Number(0, len(authors)-1)], parent)
				if err != nil {
					return fmt.Errorf("failed to create comment: %w", err)
				}
				last = c
				sum.Comments++
			}
		}
		return nil
	})
	if err != nil {
		return sum, err
	}

	log.InfoContext(ctx, "Database seeding completed",
		"interests", sum.Interests, "users", sum.Users, "posts", sum.Posts,
		"reactions", sum.Reactions, "comments", sum.Comments)
	return sum, nil
}

func pickInterests(f *Factory, all []models.Interest, n int) []string {
	picked := make([]string, 0, n)
	for _, idx := range f.faker.Rand.Perm(len(all)) {
		if len(picked) == n {
			break
		}
		picked = append(picked, all[idx].ID)
	}
	return picked
}
