// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password every seeded user can log in with.
const DefaultPassword = "password123"

// Factory builds domain entities with fake but plausible content.
type Factory struct {
	faker      *gofakeit.Faker
	rand       *rand.Rand
	maxDays    int
	skipBcrypt bool
	now        func() time.Time
	seq        int
}

// NewFactory returns a Factory. A zero seed uses the current time.
func NewFactory(seed int64, maxDays int, skipBcrypt bool) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker:      gofakeit.New(seed),
		rand:       rand.New(rand.NewSource(seed)),
		maxDays:    maxDays,
		skipBcrypt: skipBcrypt,
		now:        time.Now,
	}
}

// BuildUser returns an unsaved user with a unique username.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.faker.Username(), f.seq),
		Email:     f.faker.Email(),
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
	}

	if f.skipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author, optionally in group,
// published at a random moment within the factory's day window.
func (f *Factory) BuildPost(author *models.User, group *models.Group) *models.Post {
	back := time.Duration(f.rand.Intn(f.maxDays))*24*time.Hour +
		time.Duration(f.rand.Intn(24))*time.Hour +
		time.Duration(f.rand.Intn(60))*time.Minute
	post := &models.Post{
		Text:      f.faker.Paragraph(1, f.rand.Intn(4)+1, 12, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.now().Add(-back).UTC(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	return post
}

// BuildComment returns an unsaved comment on post, written after it.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	postID := post.ID
	return &models.Comment{
		PostID:    &postID,
		AuthorID:  author.ID,
		Text:      f.faker.Sentence(f.rand.Intn(12) + 3),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rand.Intn(72)+1) * time.Hour),
	}
}

// pick returns n distinct indexes from [0, size), never including skip.
func (f *Factory) pick(size, n, skip int) []int {
	candidates := make([]int, 0, size)
	for i := 0; i < size; i++ {
		if i != skip {
			candidates = append(candidates, i)
		}
	}
	f.rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}
