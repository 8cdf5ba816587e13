package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"prosphere/internal/models"
	"prosphere/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestUserPrefix marks users created by the seeders.
const TestUserPrefix = "test_"

var postTags = []string{"hiring", "golang", "design", "career", "startups", "remote", "ai", "opensource", "speaking", "mentoring"}

// Factory builds domain entities and persists them through a Store.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	store repository.Store
	opts  Options
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero opts.RandSeed seeds from the clock.
func NewFactory(store repository.Store, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{store: store, opts: opts, faker: gofakeit.New(seed)}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// BuildUser constructs a user with a test_ id without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	lat, lng := f.faker.Latitude(), f.faker.Longitude()
	availability := models.Availabilities[f.faker.Number(0, len(models.Availabilities)-1)]
	first, last := f.faker.FirstName(), f.faker.LastName()

	user := &models.User{
		ClerkUserID:  TestUserPrefix + strings.ReplaceAll(f.faker.UUID(), "-", "")[:12],
		FirstName:    first,
		LastName:     last,
		Email:        strings.ToLower(fmt.Sprintf("%s.%s.%d@test.prosphere.dev", first, last, f.faker.Number(100, 999))),
		Headline:     f.faker.JobTitle(),
		Bio:          f.faker.Sentence(16),
		ImageURL:     "https://i.pravatar.cc/150?u=" + f.faker.UUID(),
		Availability: &availability,
		Location: &models.Location{
			City:        f.faker.City(),
			Country:     f.faker.Country(),
			CountryCode: strings.ToUpper(f.faker.CountryAbr()),
			Latitude:    &lat,
			Longitude:   &lng,
		},
		Theme:       models.ThemeSystem,
		SocialLinks: map[string]string{"website": f.faker.URL()},
	}
	if f.faker.Bool() {
		user.Rate = decimal.NewNullDecimal(decimal.NewFromFloat(f.faker.Price(25, 250)).Round(2))
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost constructs a post by authorID with a created_at spread over the
// last MaxDays days.
func (f *Factory) BuildPost(authorID string, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		Content:   truncateRunes(f.faker.Paragraph(1, 3, 12, " "), models.MaxPostContentLength),
		AuthorID:  authorID,
		IsPublic:  f.faker.Number(1, 10) > 2,
		Images:    []string{},
		Tags:      []string{},
		CreatedAt: time.Now().Add(-back),
	}
	for i := f.faker.Number(0, 2); i > 0; i-- {
		post.Images = append(post.Images, fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()))
	}
	for i := f.faker.Number(0, 3); i > 0; i-- {
		tag := f.faker.RandomString(postTags)
		if !contains(post.Tags, tag) {
			post.Tags = append(post.Tags, tag)
		}
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost builds and persists a post.
func (f *Factory) CreatePost(ctx context.Context, authorID string, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(authorID, overrides...)
	if err := f.store.Posts().Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment on post, optionally replying to parent.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, authorID string, parent *uuid.UUID) (*models.Comment, error) {
	c := &models.Comment{
		PostID:          post.ID,
		AuthorID:        authorID,
		Content:         truncateRunes(f.faker.Sentence(f.faker.Number(4, 20)), models.MaxCommentContentLength),
		ParentCommentID: parent,
		CreatedAt:       post.CreatedAt.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute),
	}
	c.UpdatedAt = c.CreatedAt
	if err := f.store.Comments().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateReaction persists a random reaction of userID on post.
func (f *Factory) CreateReaction(ctx context.Context, post *models.Post, userID string) (*models.Reaction, error) {
	r := &models.Reaction{
		PostID: post.ID,
		UserID: userID,
		Type:   models.ReactionTypes[f.faker.Number(0, len(models.ReactionTypes)-1)],
	}
	if err := f.store.Reactions().Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
