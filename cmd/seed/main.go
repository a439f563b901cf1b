// Command seed fills a development database with groups, users, posts and follows.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "Number of users to create")
	posts := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Authors each user follows")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	fixturePath := flag.String("fixture", "", "YAML file with groups (defaults to the built-in list)")
	clean := flag.Bool("clean", false, "Delete existing users, posts, follows and comments first")
	fast := flag.Bool("fast", false, "Store plain-text passwords instead of bcrypt hashes")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	fixture, err := seed.DefaultFixture()
	if *fixturePath != "" {
		fixture, err = seed.LoadFixture(*fixturePath)
	}
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	s := seed.NewSeeder(rt.DB, rt.FollowRepo, seed.Options{
		Users:           *users,
		PostsPerUser:    *posts,
		FollowsPerUser:  *follows,
		CommentsPerPost: *comments,
		MaxDays:         defaults.MaxDays,
		SkipBcrypt:      *fast,
		RandSeed:        *randSeed,
	})

	if *clean {
		if err := s.ClearAll(ctx, false); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, fixture)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	// Cached index pages predate the new posts.
	if err := rt.PageCache().Clear(ctx); err != nil {
		log.Printf("Could not clear index cache: %v", err)
	}

	log.Printf("Seeded %d groups, %d users, %d posts, %d follows, %d comments",
		sum.Groups, sum.Users, sum.Posts, sum.Follows, sum.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
