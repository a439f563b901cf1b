package seed

import (
	"context"
	"fmt"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options controls how much random content Run generates.
type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	CommentsPerPost int
	MaxDays         int
	SkipBcrypt      bool
	RandSeed        int64
}

// DefaultOptions is what cmd/seed uses when no flags are given.
func DefaultOptions() Options {
	return Options{Users: 20, PostsPerUser: 8, FollowsPerUser: 4, CommentsPerPost: 2, MaxDays: 90}
}

// Summary counts the rows created by Run.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Follows  int
	Comments int
}

// Seeder populates a database with fixture groups and fake social content.
type Seeder struct {
	db      *gorm.DB
	follows repository.FollowRepository
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder. follows may be nil to use the SQL follow store.
func NewSeeder(db *gorm.DB, follows repository.FollowRepository, opts Options) *Seeder {
	if follows == nil {
		follows = repository.NewFollowRepository(db)
	}
	return &Seeder{
		db:      db,
		follows: follows,
		factory: NewFactory(opts.RandSeed, opts.MaxDays, opts.SkipBcrypt),
		opts:    opts,
	}
}

// Groups upserts fixture groups by slug and returns them with ids.
func (s *Seeder) Groups(ctx context.Context, fixture *Fixture) ([]*models.Group, error) {
	groups := make([]*models.Group, 0, len(fixture.Groups))
	for _, item := range fixture.Groups {
		group := item.model()
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(group).Error
		if err != nil {
			return nil, fmt.Errorf("upsert group %q: %w", item.Slug, err)
		}
		var stored models.Group
		if err := s.db.WithContext(ctx).Where("slug = ?", item.Slug).First(&stored).Error; err != nil {
			return nil, err
		}
		groups = append(groups, &stored)
	}
	return groups, nil
}

// Run seeds fixture groups, then users, posts, follows and comments.
func (s *Seeder) Run(ctx context.Context, fixture *Fixture) (Summary, error) {
	var sum Summary

	groups, err := s.Groups(ctx, fixture)
	if err != nil {
		return sum, err
	}
	sum.Groups = len(groups)

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user, err := s.factory.BuildUser()
		if err != nil {
			return sum, err
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	sum.Users = len(users)

	var posts []*models.Post
	for _, author := range users {
		for i := 0; i < s.opts.PostsPerUser; i++ {
			var group *models.Group
			// roughly a third of posts stay outside any group
			if len(groups) > 0 && s.factory.rand.Intn(3) != 0 {
				group = groups[s.factory.rand.Intn(len(groups))]
			}
			posts = append(posts, s.factory.BuildPost(author, group))
		}
	}
	if len(posts) > 0 {
		if err := s.db.WithContext(ctx).Omit("Author", "Group").CreateInBatches(posts, 100).Error; err != nil {
			return sum, fmt.Errorf("create posts: %w", err)
		}
	}
	sum.Posts = len(posts)

	for i, follower := range users {
		for _, j := range s.factory.pick(len(users), s.opts.FollowsPerUser, i) {
			created, err := s.follows.Follow(ctx, follower.ID, users[j].ID)
			if err != nil {
				return sum, fmt.Errorf("follow %d -> %d: %w", follower.ID, users[j].ID, err)
			}
			if created {
				sum.Follows++
			}
		}
	}

	if len(users) > 0 {
		var comments []*models.Comment
		for _, post := range posts {
			for i := 0; i < s.opts.CommentsPerPost; i++ {
				author := users[s.factory.rand.Intn(len(users))]
				comments = append(comments, s.factory.BuildComment(post, author))
			}
		}
		if len(comments) > 0 {
			if err := s.db.WithContext(ctx).Omit("Author", "Post").CreateInBatches(comments, 100).Error; err != nil {
				return sum, fmt.Errorf("create comments: %w", err)
			}
		}
		sum.Comments = len(comments)
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		"groups", sum.Groups, "users", sum.Users, "posts", sum.Posts,
		"follows", sum.Follows, "comments", sum.Comments)
	return sum, nil
}

// ClearAll deletes content in dependency order. Groups are kept unless withGroups is set.
func (s *Seeder) ClearAll(ctx context.Context, withGroups bool) error {
	tables := []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}}
	if withGroups {
		tables = append(tables, &models.Group{})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
