// Command main runs the database seeder for ProSphere.
package main

import (
	"context"
	"flag"
	"log"

	"prosphere/internal/bootstrap"
	"prosphere/internal/config"
	"prosphere/internal/database"
	"prosphere/internal/repository"
	"prosphere/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of generated users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	maxDays := flag.Int("days", 30, "Spread post timestamps over this many past days")
	shouldClean := flag.Bool("clean", false, "Delete test users before seeding")
	usersFile := flag.String("users-file", "", "Test user YAML file (defaults to SEED_USERS_FILE)")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *usersFile == "" {
		*usersFile = cfg.SeedUsersFile
	}

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = database.Close(db) }()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	sum, err := seed.Seed(ctx, repository.NewStore(db), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		MaxDays:     *maxDays,
		ShouldClean: *shouldClean,
		UsersFile:   *usersFile,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d interests, %d users, %d posts, %d reactions, %d comments",
		sum.Interests, sum.Users, sum.Posts, sum.Reactions, sum.Comments)
}
