package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"prosphere/internal/models"
	"prosphere/internal/repository"
	"prosphere/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterests_Taxonomy(t *testing.T) {
	interests, err := Interests()
	require.NoError(t, err)
	require.NotEmpty(t, interests)

	ids := map[string]bool{}
	for _, i := range interests {
		assert.NotEmpty(t, i.Category, i.ID)
		assert.Contains(t, []string{"low", "medium", "high"}, i.Popularity, i.ID)
		assert.False(t, ids[i.ID], "duplicate id %s", i.ID)
		ids[i.ID] = true
	}
	assert.True(t, ids["machine-learning"])
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Machine Learning": "machine-learning",
		"Data & AI":        "data-ai",
		"  UX Research ":   "ux-research",
		"DevOps":           "devops",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestLoadTestUsers(t *testing.T) {
	users, err := LoadTestUsers("")
	require.NoError(t, err)
	require.NotEmpty(t, users)
	for _, u := range users {
		assert.True(t, strings.HasPrefix(u.ID, TestUserPrefix), u.ID)
	}
	require.NotNil(t, users[0].Location)
	assert.Equal(t, "GB", users[0].Location.CountryCode)

	missing, err := LoadTestUsers(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err, "a missing file falls back to the built-in list")
	assert.Len(t, missing, len(users))

	bad := filepath.Join(t.TempDir(), "users.yml")
	require.NoError(t, os.WriteFile(bad, []byte("users:\n  - id: real_user\n"), 0o600))
	_, err = LoadTestUsers(bad)
	assert.Error(t, err)
}

func TestCompareTestUsers(t *testing.T) {
	report := CompareTestUsers(
		[]TestUser{{ID: "test_a"}, {ID: "test_b"}},
		[]models.User{{ClerkUserID: "test_b"}, {ClerkUserID: "test_z"}},
	)
	assert.Equal(t, []string{"test_a"}, report.Missing)
	assert.Equal(t, []string{"test_z"}, report.Extra)
	assert.Equal(t, []string{"test_b", "test_z"}, report.Present)
}

func TestFactory_BuildPost(t *testing.T) {
	f := NewFactory(nil, Options{MaxDays: 30, RandSeed: 42})
	for i := 0; i < 50; i++ {
		p := f.BuildPost("test_author")
		assert.LessOrEqual(t, utf8.RuneCountInString(p.Content), models.MaxPostContentLength)
		assert.NotEmpty(t, strings.TrimSpace(p.Content))
		assert.LessOrEqual(t, len(p.Images), models.MaxPostImages)
		assert.NotNil(t, p.Tags)
		assert.False(t, p.CreatedAt.IsZero())
	}

	u := f.BuildUser(func(u *models.User) { u.FirstName = "Override" })
	assert.True(t, strings.HasPrefix(u.ClerkUserID, TestUserPrefix))
	assert.Equal(t, "Override", u.FirstName)
	require.NotNil(t, u.Availability)
	assert.True(t, u.Availability.Valid())
}

func TestSeed(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	sum, err := Seed(ctx, store, Options{NumUsers: 5, NumPosts: 10, RandSeed: 7})
	require.NoError(t, err)

	taxonomy, _ := Interests()
	fileUsers, _ := LoadTestUsers("")
	assert.Equal(t, len(taxonomy), sum.Interests)
	assert.Equal(t, 5+len(fileUsers), sum.Users)
	assert.Equal(t, 10, sum.Posts)

	var posts, reactions, comments int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Reaction{}).Count(&reactions).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(sum.Posts), posts)
	assert.Equal(t, int64(sum.Reactions), reactions)
	assert.Equal(t, int64(sum.Comments), comments)

	ids, err := store.Users().InterestIDs(ctx, "test_ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"machine-learning", "technical-writing"}, ids)

	again, err := Seed(ctx, store, Options{RandSeed: 8})
	require.NoError(t, err)
	assert.Zero(t, again.Interests, "taxonomy is inserted once")
	assert.Zero(t, again.Users, "file users are inserted once")
}
