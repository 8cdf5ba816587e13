package repository

import (
	"context"
	"testing"

	"prosphere/internal/models"
	"prosphere/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInterestRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	n, err := repo.CreateBatch(ctx, []models.Interest{
		{ID: "go", Name: "Go", Popularity: "high", Category: "Engineering"},
		{ID: "design", Name: "Product Design", Popularity: "medium", Category: "Creative"},
		{ID: "ml", Name: "Machine Learning", Popularity: "high", Category: "Engineering"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.CreateBatch(ctx, []models.Interest{{ID: "go", Name: "Go", Popularity: "high", Category: "Engineering"}})
	require.NoError(t, err)
	assert.Zero(t, n, "existing ids are skipped")

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "design", all[0].ID, "ordered by category then name")

	found, err := repo.Search(ctx, "LEARN", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ml", found[0].ID)

	byIDs, err := repo.GetByIDs(ctx, []string{"go", "nope"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	require.NoError(t, repo.Update(ctx, "go", map[string]interface{}{"popularity": "very high"}))
	got, err := repo.GetByID(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "very high", got.Popularity)

	testutil.CreateUser(t, db, "u1", "Ada", "Lovelace")
	require.NoError(t, users.LinkInterests(ctx, "u1", []string{"go"}))
	require.NoError(t, repo.Delete(ctx, "go"))
	ids, _ := users.InterestIDs(ctx, "u1")
	assert.Empty(t, ids, "links are removed with the interest")

	assert.True(t, models.IsNotFound(repo.Delete(ctx, "go")))
}
