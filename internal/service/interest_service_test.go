package service

import (
	"context"
	"testing"

	"prosphere/internal/models"
	"prosphere/internal/repository"
	"prosphere/internal/seed"
	"prosphere/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestService_CRUD(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewInterestService(repository.NewStore(db))
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInterestInput{Name: " Go ", Popularity: "high", Category: "Engineering"})
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "Go", created.Name)

	_, err = svc.Create(ctx, CreateInterestInput{Name: "Rust"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	updated, err := svc.Update(ctx, UpdateInterestInput{ID: created.ID, Popularity: ptr("medium")})
	require.NoError(t, err)
	assert.Equal(t, "medium", updated.Popularity)
	assert.Equal(t, "Go", updated.Name)

	_, err = svc.Update(ctx, UpdateInterestInput{ID: "missing", Name: ptr("x")})
	assert.True(t, models.IsNotFound(err))

	_, err = svc.Update(ctx, UpdateInterestInput{ID: created.ID, Name: ptr("")})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	byIDs, err := svc.GetByIDs(ctx, []string{created.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	testutil.CreateUser(t, db, "u1", "Ada", "Lovelace")
	require.NoError(t, repository.NewStore(db).Users().LinkInterests(ctx, "u1", []string{created.ID}))

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.NoError(t, svc.Delete(ctx, created.ID), "deleting twice succeeds")
	assert.Zero(t, countRows(t, db, &models.UserInterest{}, "interest_id = ?", created.ID))
}

func TestInterestService_Search(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewInterestService(repository.NewStore(db))
	ctx := context.Background()
	testutil.CreateInterest(t, db, "ml", "Machine Learning", "Data & AI")
	testutil.CreateInterest(t, db, "ds", "Data Science", "Data & AI")
	testutil.CreateInterest(t, db, "pct", "100% Remote", "Community")

	got, err := svc.Search(ctx, "  DATA ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Data Science", got[0].Name)

	got, err = svc.Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, got, 1, "LIKE wildcards are literal")
	assert.Equal(t, "pct", got[0].ID)

	got, err = svc.Search(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Data Science", "Machine Learning"}, []string{got[0].Name, got[1].Name})

	empty, err := svc.Search(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInterestService_Seed(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewInterestService(repository.NewStore(db))
	ctx := context.Background()

	taxonomy, err := seed.Interests()
	require.NoError(t, err)

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(taxonomy), n)

	n, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding a populated table is a no-op")

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(taxonomy))
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		assert.True(t, prev.Category < cur.Category || (prev.Category == cur.Category && prev.Name <= cur.Name))
	}
}
