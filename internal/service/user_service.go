package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"prosphere/internal/cache"
	"prosphere/internal/identity"
	"prosphere/internal/middleware"
	"prosphere/internal/models"
	"prosphere/internal/observability"
	"prosphere/internal/repository"
	"prosphere/internal/seed"
	"prosphere/internal/validation"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxRadiusKm        = 20000
)

type UserService struct {
	store    repository.Store
	identity identity.Client
	rdb      *redis.Client
	orgID    string
}

// UpdateProfileInput carries a partial profile update; nil fields are left untouched.
type UpdateProfileInput struct {
	UserID       string
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	ImageURL     *string
	Headline     *string
	Bio          *string
	Website      *string
	Availability *models.Availability
	Rate         *decimal.Decimal
	Location     *models.Location
	SocialLinks  map[string]string
	Theme        *models.Theme
	InterestIDs  *[]string
}

type UserSearchInput struct {
	Query    string
	City     string
	State    string
	Country  string
	Lat      *float64
	Lng      *float64
	RadiusKm *float64
	Limit    int
	Offset   int
}

// NewUserService wires the user use cases. idp and rdb may be nil; without
// them provider sync is unavailable and profiles are read uncached.
func NewUserService(store repository.Store, idp identity.Client, rdb *redis.Client, orgID string) *UserService {
	return &UserService{store: store, identity: idp, rdb: rdb, orgID: orgID}
}

// Get returns the profile with interests, or nil when the user does not exist.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := cache.CacheAside(ctx, s.rdb, "user", cache.UserKey(id), &user, cache.UserTTL, func() (bool, error) {
		u, err := s.store.Users().GetByID(ctx, id)
		if models.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		user = *u
		return true, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// GetOrSync returns the local profile, pulling it from the identity provider
// when it has not been synced yet. It returns nil when neither side knows the user.
func (s *UserService) GetOrSync(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil || user != nil || s.identity == nil {
		return user, err
	}
	user, err = s.SyncFromProvider(ctx, id)
	if models.IsNotFound(err) {
		return nil, nil
	}
	return user, err
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if strings.TrimSpace(user.ClerkUserID) == "" {
		return nil, models.NewValidationError("clerk_user_id is required")
	}
	if err := validation.ValidateProfile(user); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if user.Theme == "" {
		user.Theme = models.ThemeSystem
	}
	if user.SocialLinks == nil {
		user.SocialLinks = map[string]string{}
	}

	var created *models.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		var err error
		created, err = tx.Users().GetByID(ctx, user.ClerkUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// providerFields maps the provider profile onto user columns. Fields the
// provider did not send are left out.
func providerFields(pu *identity.ProviderUser) map[string]interface{} {
	fields := map[string]interface{}{}
	if pu.FirstName != nil {
		fields["first_name"] = *pu.FirstName
	}
	if pu.LastName != nil {
		fields["last_name"] = *pu.LastName
	}
	if pu.ImageURL != nil {
		fields["image_url"] = *pu.ImageURL
	}
	if email, ok := pu.PrimaryEmail(); ok {
		fields["email"] = email
	}
	if phone, ok := pu.PrimaryPhone(); ok {
		fields["phone"] = phone
	}
	return fields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SyncFromProvider creates or refreshes the local row from the identity provider.
func (s *UserService) SyncFromProvider(ctx context.Context, id string) (*models.User, error) {
	if s.identity == nil {
		return nil, models.NewInternalError(errors.New("identity provider is not configured"))
	}
	pu, err := s.identity.GetUser(ctx, id)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, models.NewNotFoundError("User", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var synced *models.User
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		exists, err := tx.Users().Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			if err := tx.Users().Update(ctx, id, providerFields(pu)); err != nil {
				return err
			}
		} else {
			email, _ := pu.PrimaryEmail()
			phone, _ := pu.PrimaryPhone()
			user := &models.User{
				ClerkUserID: id,
				FirstName:   deref(pu.FirstName),
				LastName:    deref(pu.LastName),
				Email:       email,
				Phone:       phone,
				ImageURL:    deref(pu.ImageURL),
				Theme:       models.ThemeSystem,
				SocialLinks: map[string]string{},
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return err
			}
		}
		synced, err = tx.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, s.rdb, id)
	return synced, nil
}

func profileFields(in UpdateProfileInput) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	probe := models.User{}

	setText := func(column string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		if required && strings.TrimSpace(*v) == "" {
			return models.NewValidationError(column + " cannot be empty")
		}
		fields[column] = *v
		return nil
	}
	if err := setText("first_name", in.FirstName, true); err != nil {
		return nil, err
	}
	if err := setText("last_name", in.LastName, false); err != nil {
		return nil, err
	}
	for column, v := range map[string]*string{
		"email": in.Email, "phone": in.Phone, "image_url": in.ImageURL,
		"headline": in.Headline, "bio": in.Bio, "website": in.Website,
	} {
		_ = setText(column, v, false)
	}
	if in.Email != nil {
		probe.Email = *in.Email
	}
	if in.Website != nil {
		probe.Website = *in.Website
	}
	if in.Availability != nil {
		probe.Availability = in.Availability
		fields["availability"] = string(*in.Availability)
	}
	if in.Rate != nil {
		probe.Rate = decimal.NewNullDecimal(*in.Rate)
		fields["rate"] = probe.Rate
	}
	if in.Location != nil {
		probe.Location = in.Location
		fields["location"] = models.JSONValue(in.Location)
	}
	if in.SocialLinks != nil {
		fields["social_links"] = models.JSONValue(in.SocialLinks)
	}
	if in.Theme != nil {
		probe.Theme = *in.Theme
		fields["theme"] = string(*in.Theme)
	}

	if err := validation.ValidateProfile(&probe); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return fields, nil
}

func diffIDs(current, wanted []string) (removed, added []string) {
	have := make(map[string]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		if id = strings.TrimSpace(id); id == "" || want[id] {
			continue
		}
		want[id] = true
		if !have[id] {
			added = append(added, id)
		}
	}
	for _, id := range current {
		if !want[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	return removed, added
}

// Update applies a partial profile update. A user that has not been synced
// yet is pulled from the identity provider first.
func (s *UserService) Update(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields, err := profileFields(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.Users().Exists(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if _, err := s.SyncFromProvider(ctx, in.UserID); err != nil {
			return nil, err
		}
	}

	var updated *models.User
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Update(ctx, in.UserID, fields); err != nil {
			return err
		}
		if in.InterestIDs != nil {
			current, err := tx.Users().InterestIDs(ctx, in.UserID)
			if err != nil {
				return err
			}
			removed, added := diffIDs(current, *in.InterestIDs)
			if len(removed) > 0 {
				if err := tx.Users().UnlinkInterests(ctx, in.UserID, removed); err != nil {
					return err
				}
			}
			if len(added) > 0 {
				known, err := tx.Interests().GetByIDs(ctx, added)
				if err != nil {
					return err
				}
				if len(known) != len(added) {
					return models.NewValidationError("One or more interest ids do not exist")
				}
				if err := tx.Users().LinkInterests(ctx, in.UserID, added); err != nil {
					return err
				}
			}
		}
		updated, err = tx.Users().GetByID(ctx, in.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, s.rdb, in.UserID)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().UnlinkInterests(ctx, id, nil); err != nil {
			return err
		}
		n, err := tx.Users().Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateUser(ctx, s.rdb, id)
	return nil
}

// DeleteSeedUsers removes every seeded user and returns how many were deleted.
func (s *UserService) DeleteSeedUsers(ctx context.Context) (int64, error) {
	seeded, err := s.store.Users().ListByPrefix(ctx, seed.TestUserPrefix)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		n, err = tx.Users().DeleteByPrefix(ctx, seed.TestUserPrefix)
		return err
	})
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(seeded))
	for _, u := range seeded {
		keys = append(keys, cache.UserKey(u.ClerkUserID))
	}
	cache.Invalidate(ctx, s.rdb, keys...)
	return n, nil
}

func (s *UserService) ListTestUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().ListByPrefix(ctx, seed.TestUserPrefix)
}

func publicProfiles(users []models.User) []models.PublicProfile {
	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

func (s *UserService) GetAll(ctx context.Context, limit, offset int) ([]models.PublicProfile, int64, error) {
	users, total, err := s.store.Users().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return publicProfiles(users), total, nil
}

func (s *UserService) GetPublicProfiles(ctx context.Context, ids []string) ([]models.PublicProfile, error) {
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return publicProfiles(users), nil
}

// GetContactInfo returns the user's email and phone, or nil when the user does not exist.
func (s *UserService) GetContactInfo(ctx context.Context, id string) (*models.ContactInfo, error) {
	info, err := s.store.Users().GetContactInfo(ctx, id)
	if models.IsNotFound(err) {
		return nil, nil
	}
	return info, err
}

func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.Users().Exists(ctx, id)
}

func (s *UserService) LinkInterests(ctx context.Context, id string, interestIDs []string) error {
	if err := s.store.Users().LinkInterests(ctx, id, interestIDs); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, s.rdb, id)
	return nil
}

func (s *UserService) UnlinkInterests(ctx context.Context, id string, interestIDs []string) error {
	if err := s.store.Users().UnlinkInterests(ctx, id, interestIDs); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, s.rdb, id)
	return nil
}

func (s *UserService) Search(ctx context.Context, in UserSearchInput) ([]models.PublicProfile, error) {
	q := repository.UserSearch{
		Name:    strings.TrimSpace(in.Query),
		City:    strings.TrimSpace(in.City),
		State:   strings.TrimSpace(in.State),
		Country: strings.TrimSpace(in.Country),
		Limit:   in.Limit,
		Offset:  in.Offset,
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if in.Lat != nil || in.Lng != nil || in.RadiusKm != nil {
		if in.Lat == nil || in.Lng == nil || in.RadiusKm == nil {
			return nil, models.NewValidationError("lat, lng and radiusKm must be given together")
		}
		if *in.Lat < -90 || *in.Lat > 90 || *in.Lng < -180 || *in.Lng > 180 {
			return nil, models.NewValidationError("lat or lng out of range")
		}
		if *in.RadiusKm <= 0 || *in.RadiusKm > maxRadiusKm {
			return nil, models.NewValidationError("radiusKm must be between 0 and 20000")
		}
		q.Lat, q.Lng, q.RadiusKm = in.Lat, in.Lng, in.RadiusKm
	}

	users, err := s.store.Users().Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return publicProfiles(users), nil
}

// ApplyWebhookEvent mirrors a provider event onto the local user table.
// Events for users that were never synced locally are ignored.
func (s *UserService) ApplyWebhookEvent(ctx context.Context, evt identity.WebhookEvent) error {
	result := "applied"
	defer func() {
		observability.WebhookEvents.WithLabelValues(evt.Type, result).Inc()
	}()

	id := evt.Data.ID
	if id == "" {
		result = "invalid"
		return models.NewValidationError("webhook payload has no user id")
	}

	switch evt.Type {
	case identity.EventUserCreated, identity.EventUserUpdated:
		fields := providerFields(&evt.Data)
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			exists, err := tx.Users().Exists(ctx, id)
			if err != nil || !exists {
				if err == nil {
					result = "ignored"
				}
				return err
			}
			return tx.Users().Update(ctx, id, fields)
		})
		if err != nil {
			result = "error"
			return err
		}
	case identity.EventUserDeleted:
		err := s.Delete(ctx, id)
		if models.IsNotFound(err) {
			result = "ignored"
			return nil
		}
		if err != nil {
			result = "error"
			return err
		}
	default:
		result = "ignored"
		return nil
	}

	cache.InvalidateUser(ctx, s.rdb, id)
	middleware.Logger.InfoContext(ctx, "Applied identity webhook", "type", evt.Type, "clerk_user_id", id, "result", result)
	return nil
}

// IsAdmin reports organization membership in the admin org. Lookups are cached.
func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	if s.orgID == "" || s.identity == nil || id == "" {
		return false, nil
	}
	var member bool
	_, err := cache.CacheAside(ctx, s.rdb, "admin", cache.AdminKey(s.orgID, id), &member, cache.AdminTTL, func() (bool, error) {
		ok, err := s.identity.IsOrganizationMember(ctx, s.orgID, id)
		if err != nil {
			return false, err
		}
		member = ok
		return true, nil
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return member, nil
}

// SeedTestUsers creates the test users that do not exist yet and returns how many were inserted.
func (s *UserService) SeedTestUsers(ctx context.Context, users []seed.TestUser) (int, error) {
	n, err := seed.SeedTestUsers(ctx, s.store, users)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(users))
	for _, u := range users {
		keys = append(keys, cache.UserKey(u.ID))
	}
	cache.Invalidate(ctx, s.rdb, keys...)
	return n, nil
}

// CheckTestUsers compares the seeded users in the database against expected.
func (s *UserService) CheckTestUsers(ctx context.Context, expected []seed.TestUser) (seed.TestUserReport, error) {
	present, err := s.ListTestUsers(ctx)
	if err != nil {
		return seed.TestUserReport{}, err
	}
	return seed.CompareTestUsers(expected, present), nil
}
