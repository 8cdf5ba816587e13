package service

import (
	"context"
	"errors"
	"testing"

	"prosphere/internal/cache"
	"prosphere/internal/identity"
	"prosphere/internal/models"
	"prosphere/internal/repository"
	"prosphere/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type userFixture struct {
	svc *UserService
	db  *gorm.DB
	idp *testutil.IdentityStub
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

func newUserFixture(t *testing.T) userFixture {
	t.Helper()
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	idp := testutil.NewIdentityStub()
	return userFixture{
		svc: NewUserService(repository.NewStore(db), idp, rdb, "org_admin"),
		db:  db,
		idp: idp,
		mr:  mr,
		rdb: rdb,
	}
}

func TestUserService_Get_CachesProfile(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Ada", "Lovelace")
	testutil.CreateInterest(t, f.db, "go", "Go", "Engineering")
	require.NoError(t, f.svc.LinkInterests(ctx, "user_1", []string{"go"}))

	got, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Interests, 1)
	assert.True(t, f.mr.Exists(cache.UserKey("user_1")))

	require.NoError(t, f.db.Model(&models.User{}).Where("clerk_user_id = ?", "user_1").Update("first_name", "Changed").Error)
	cached, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", cached.FirstName, "served from cache")

	missing, err := f.svc.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, f.mr.Exists(cache.UserKey("nobody")))
}

func TestUserService_GetOrSync(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.idp.AddUser("user_new", "Grace", "Hopper", "grace@example.com")

	got, err := f.svc.GetOrSync(ctx, "user_new")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, "grace@example.com", got.Email)
	assert.Equal(t, models.ThemeSystem, got.Theme)
	assert.Equal(t, map[string]string{}, got.SocialLinks)

	calls := f.idp.Calls
	_, err = f.svc.GetOrSync(ctx, "user_new")
	require.NoError(t, err)
	assert.Equal(t, calls, f.idp.Calls, "local row is used once synced")

	ghost, err := f.svc.GetOrSync(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)
}

func TestUserService_SyncFromProvider_Errors(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.svc.SyncFromProvider(ctx, "ghost")
	assert.True(t, models.IsNotFound(err))

	f.idp.Err = errors.New("provider down")
	_, err = f.svc.SyncFromProvider(ctx, "ghost")
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	noIDP := NewUserService(repository.NewStore(f.db), nil, nil, "")
	_, err = noIDP.SyncFromProvider(ctx, "x")
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}

func TestUserService_SyncFromProvider_RefreshesExisting(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Old", "Name")
	require.NoError(t, f.db.Model(&models.User{}).Where("clerk_user_id = ?", "user_1").Update("headline", "Engineer").Error)
	f.idp.AddUser("user_1", "New", "Name", "")

	got, err := f.svc.SyncFromProvider(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.FirstName)
	assert.Equal(t, "Engineer", got.Headline, "local-only fields survive a sync")
}

func TestUserService_Create(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, &models.User{ClerkUserID: "user_c", FirstName: "Cy", Email: "cy@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.ThemeSystem, created.Theme)

	_, err = f.svc.Create(ctx, &models.User{ClerkUserID: "user_c", FirstName: "Cy", Email: "other@example.com"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	_, err = f.svc.Create(ctx, &models.User{ClerkUserID: "user_d", FirstName: "D", Email: "not-an-email"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = f.svc.Create(ctx, &models.User{FirstName: "Nobody"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestUserService_Update(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Ada", "Lovelace")
	testutil.CreateInterest(t, f.db, "go", "Go", "Engineering")
	testutil.CreateInterest(t, f.db, "ml", "Machine Learning", "Data & AI")
	testutil.CreateInterest(t, f.db, "ux", "UX", "Design")
	require.NoError(t, f.svc.LinkInterests(ctx, "user_1", []string{"go", "ml"}))
	_, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)

	availability := models.AvailabilityFreelance
	rate := decimal.RequireFromString("95.50")
	updated, err := f.svc.Update(ctx, UpdateProfileInput{
		UserID:       "user_1",
		Headline:     ptr("Analyst"),
		Availability: &availability,
		Rate:         &rate,
		Location:     &models.Location{City: "London", CountryCode: "GB"},
		SocialLinks:  map[string]string{"github": "https://github.com/ada"},
		InterestIDs:  &[]string{"ml", "ux"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Analyst", updated.Headline)
	require.NotNil(t, updated.Availability)
	assert.Equal(t, models.AvailabilityFreelance, *updated.Availability)
	assert.True(t, updated.Rate.Decimal.Equal(rate))
	assert.Equal(t, "London", updated.Location.City)
	assert.Equal(t, "https://github.com/ada", updated.SocialLinks["github"])

	ids, err := repository.NewStore(f.db).Users().InterestIDs(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ml", "ux"}, ids)
	assert.False(t, f.mr.Exists(cache.UserKey("user_1")), "update invalidates the cache")
}

func TestUserService_Update_Invalid(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Ada", "Lovelace")

	tests := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"empty first name", UpdateProfileInput{UserID: "user_1", FirstName: ptr(" ")}},
		{"bad website", UpdateProfileInput{UserID: "user_1", Website: ptr("nope")}},
		{"bad theme", UpdateProfileInput{UserID: "user_1", Theme: ptr(models.Theme("NEON"))}},
		{"negative rate", UpdateProfileInput{UserID: "user_1", Rate: ptr(decimal.NewFromInt(-1))}},
		{"unknown interest", UpdateProfileInput{UserID: "user_1", InterestIDs: &[]string{"missing"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}

	got, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
}

func TestUserService_Update_SyncsMissingUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.idp.AddUser("user_late", "Late", "Comer", "late@example.com")

	updated, err := f.svc.Update(ctx, UpdateProfileInput{UserID: "user_late", Bio: ptr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Late", updated.FirstName)
	assert.Equal(t, "hello", updated.Bio)

	_, err = f.svc.Update(ctx, UpdateProfileInput{UserID: "ghost", Bio: ptr("x")})
	assert.True(t, models.IsNotFound(err))
}

func TestUserService_Delete(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Ada", "Lovelace")
	testutil.CreateInterest(t, f.db, "go", "Go", "Engineering")
	require.NoError(t, f.svc.LinkInterests(ctx, "user_1", []string{"go"}))

	require.NoError(t, f.svc.Delete(ctx, "user_1"))
	assert.Zero(t, countRows(t, f.db, &models.UserInterest{}, "clerk_user_id = ?", "user_1"))
	assert.True(t, models.IsNotFound(f.svc.Delete(ctx, "user_1")))
}

func TestUserService_SeedUsers(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "test_1", "T", "One")
	testutil.CreateUser(t, f.db, "test_2", "T", "Two")
	testutil.CreateUser(t, f.db, "testX", "Not", "Seeded")
	_, err := f.svc.Get(ctx, "test_1")
	require.NoError(t, err)

	listed, err := f.svc.ListTestUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	n, err := f.svc.DeleteSeedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, f.mr.Exists(cache.UserKey("test_1")))

	ok, err := f.svc.Exists(ctx, "testX")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserService_Profiles(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "u1", "Ada", "Lovelace")
	testutil.CreateUser(t, f.db, "u2", "Alan", "Turing")

	all, total, err := f.svc.GetAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	profiles, err := f.svc.GetPublicProfiles(ctx, []string{"u2", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Alan", profiles[0].FirstName)

	none, err := f.svc.GetPublicProfiles(ctx, []string{"ghost"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	info, err := f.svc.GetContactInfo(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestUserService_Search_Validation(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "u1", "Ada", "Lovelace")

	tests := []struct {
		name string
		in   UserSearchInput
	}{
		{"partial geo", UserSearchInput{Lat: ptr(1.0), Lng: ptr(2.0)}},
		{"lat out of range", UserSearchInput{Lat: ptr(91.0), Lng: ptr(0.0), RadiusKm: ptr(10.0)}},
		{"radius zero", UserSearchInput{Lat: ptr(0.0), Lng: ptr(0.0), RadiusKm: ptr(0.0)}},
		{"radius too big", UserSearchInput{Lat: ptr(0.0), Lng: ptr(0.0), RadiusKm: ptr(20001.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Search(ctx, tt.in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}

	found, err := f.svc.Search(ctx, UserSearchInput{Query: "  ada lovelace ", Limit: 500})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "u1", found[0].ClerkUserID)
}

func TestUserService_ApplyWebhookEvent(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "user_1", "Ada", "Lovelace")
	_, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)

	first := "Augusta"
	emailID := "e1"
	err = f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{
		Type: identity.EventUserUpdated,
		Data: identity.ProviderUser{
			ID:                    "user_1",
			FirstName:             &first,
			PrimaryEmailAddressID: &emailID,
			EmailAddresses:        []identity.EmailAddress{{ID: "e1", EmailAddress: "ada@example.com"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.UserKey("user_1")))

	got, err := f.svc.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Augusta", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName, "absent values untouched")
	assert.Equal(t, "ada@example.com", got.Email)

	require.NoError(t, f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{
		Type: identity.EventUserCreated,
		Data: identity.ProviderUser{ID: "stranger", FirstName: &first},
	}))
	ok, err := f.svc.Exists(ctx, "stranger")
	require.NoError(t, err)
	assert.False(t, ok, "unknown users are ignored")

	require.NoError(t, f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{Type: "session.created", Data: identity.ProviderUser{ID: "user_1"}}))

	err = f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{Type: identity.EventUserUpdated})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	require.NoError(t, f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{Type: identity.EventUserDeleted, Data: identity.ProviderUser{ID: "user_1"}}))
	ok, err = f.svc.Exists(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.svc.ApplyWebhookEvent(ctx, identity.WebhookEvent{Type: identity.EventUserDeleted, Data: identity.ProviderUser{ID: "user_1"}}))
}

func TestUserService_IsAdmin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.idp.AddMember("org_admin", "boss")

	ok, err := f.svc.IsAdmin(ctx, "boss")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.mr.Exists(cache.AdminKey("org_admin", "boss")))

	calls := f.idp.Calls
	ok, err = f.svc.IsAdmin(ctx, "boss")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, calls, f.idp.Calls, "membership is cached")

	ok, err = f.svc.IsAdmin(ctx, "pleb")
	require.NoError(t, err)
	assert.False(t, ok)

	f.idp.Err = errors.New("provider down")
	_, err = f.svc.IsAdmin(ctx, "someone")
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	noOrg := NewUserService(repository.NewStore(f.db), f.idp, f.rdb, "")
	ok, err = noOrg.IsAdmin(ctx, "boss")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiffIDs(t *testing.T) {
	removed, added := diffIDs([]string{"a", "b", "c"}, []string{"c", " d ", "a", "d", ""})
	assert.Equal(t, []string{"b"}, removed)
	assert.Equal(t, []string{"d"}, added)
}
