package repository

import (
	"context"
	"math"
	"sort"
	"strings"

	"prosphere/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserSearch holds the filters of a user search. Empty fields are ignored.
type UserSearch struct {
	Name     string
	City     string
	State    string
	Country  string
	Lat      *float64
	Lng      *float64
	RadiusKm *float64
	Limit    int
	Offset   int
}

// UserRepository defines the interface for user operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	ListByPrefix(ctx context.Context, prefix string) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	GetContactInfo(ctx context.Context, id string) (*models.ContactInfo, error)
	Search(ctx context.Context, q UserSearch) ([]models.User, error)
	InterestIDs(ctx context.Context, userID string) ([]string, error)
	LinkInterests(ctx context.Context, userID string, interestIDs []string) error
	UnlinkInterests(ctx context.Context, userID string, interestIDs []string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Interests").Where("clerk_user_id = ?", id).First(&user).Error
	if err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Preload("Interests").
		Where("clerk_user_id IN ?", ids).
		Order("first_name ASC, last_name ASC").
		Find(&users).Error
	return users, mapError(err, "User", ids)
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("clerk_user_id = ?", id).Count(&count).Error
	if err != nil {
		return false, mapError(err, "User", id)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
	return mapError(err, "User", user.ClerkUserID)
}

func (r *userRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("clerk_user_id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("clerk_user_id = ?", id).Delete(&models.User{})
	return res.RowsAffected, mapError(res.Error, "User", id)
}

func (r *userRepository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	pattern := escapeLike(prefix) + "%"
	err := r.db.WithContext(ctx).
		Where(`clerk_user_id IN (?)`, r.db.Model(&models.User{}).Select("clerk_user_id").Where(`clerk_user_id LIKE ? ESCAPE '\'`, pattern)).
		Delete(&models.UserInterest{}).Error
	if err != nil {
		return 0, mapError(err, "User", prefix)
	}
	res := r.db.WithContext(ctx).Where(`clerk_user_id LIKE ? ESCAPE '\'`, pattern).Delete(&models.User{})
	return res.RowsAffected, mapError(res.Error, "User", prefix)
}

func (r *userRepository) ListByPrefix(ctx context.Context, prefix string) ([]models.User, error) {
	users := []models.User{}
	err := r.db.WithContext(ctx).
		Where(`clerk_user_id LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("clerk_user_id ASC").
		Find(&users).Error
	return users, mapError(err, "User", prefix)
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "User", nil)
	}

	users := []models.User{}
	q := r.db.WithContext(ctx).Preload("Interests").Order("created_at DESC, clerk_user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, mapError(err, "User", nil)
	}
	return users, total, nil
}

func (r *userRepository) GetContactInfo(ctx context.Context, id string) (*models.ContactInfo, error) {
	var info models.ContactInfo
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("email", "phone").
		Where("clerk_user_id = ?", id).
		Take(&info).Error
	if err != nil {
		return nil, mapError(err, "User", id)
	}
	return &info, nil
}

const earthRadiusKm = 6371.0

// Search filters users by name and location. Every user-supplied value is bound
// as a parameter. Radius searches prefilter on a bounding box in SQL and apply
// the great-circle distance afterwards, so they work on any dialect.
func (r *userRepository) Search(ctx context.Context, s UserSearch) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Preload("Interests")

	if name := strings.TrimSpace(s.Name); name != "" {
		pattern := containsPattern(name)
		q = q.Where(
			r.db.Where(likeClause("first_name"), pattern).
				Or(likeClause("last_name"), pattern).
				Or(likeClause("first_name || ' ' || last_name"), pattern),
		)
	}
	if s.City != "" {
		q = q.Where(likeClause("location ->> 'city'"), containsPattern(s.City))
	}
	if s.State != "" {
		q = q.Where(likeClause("location ->> 'state'"), containsPattern(s.State))
	}
	if s.Country != "" {
		q = q.Where(
			r.db.Where(likeClause("location ->> 'country'"), containsPattern(s.Country)).
				Or("location ->> 'country_code' = ?", strings.ToUpper(strings.TrimSpace(s.Country))),
		)
	}

	radius := s.Lat != nil && s.Lng != nil && s.RadiusKm != nil
	if radius {
		latDelta := *s.RadiusKm / 111.0
		lngDelta := *s.RadiusKm / (111.0 * math.Max(math.Cos(*s.Lat*math.Pi/180), 0.01))
		q = q.Where("CAST(location ->> 'latitude' AS DOUBLE PRECISION) BETWEEN ? AND ?", *s.Lat-latDelta, *s.Lat+latDelta).
			Where("CAST(location ->> 'longitude' AS DOUBLE PRECISION) BETWEEN ? AND ?", *s.Lng-lngDelta, *s.Lng+lngDelta)
	}

	q = q.Order("first_name ASC, last_name ASC")
	if !radius {
		if s.Limit > 0 {
			q = q.Limit(s.Limit)
		}
		if s.Offset > 0 {
			q = q.Offset(s.Offset)
		}
	}

	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, mapError(err, "User", nil)
	}
	if !radius {
		return users, nil
	}

	type ranked struct {
		user models.User
		km   float64
	}
	var inRange []ranked
	for _, u := range users {
		if u.Location == nil || u.Location.Latitude == nil || u.Location.Longitude == nil {
			continue
		}
		km := HaversineKm(*s.Lat, *s.Lng, *u.Location.Latitude, *u.Location.Longitude)
		if km <= *s.RadiusKm {
			inRange = append(inRange, ranked{user: u, km: km})
		}
	}
	sort.SliceStable(inRange, func(i, j int) bool { return inRange[i].km < inRange[j].km })

	out := []models.User{}
	for i, rk := range inRange {
		if i < s.Offset {
			continue
		}
		if s.Limit > 0 && len(out) >= s.Limit {
			break
		}
		out = append(out, rk.user)
	}
	return out, nil
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func (r *userRepository) InterestIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.UserInterest{}).
		Where("clerk_user_id = ?", userID).
		Order("interest_id ASC").
		Pluck("interest_id", &ids).Error
	return ids, mapError(err, "User", userID)
}

func (r *userRepository) LinkInterests(ctx context.Context, userID string, interestIDs []string) error {
	if len(interestIDs) == 0 {
		return nil
	}
	links := make([]models.UserInterest, 0, len(interestIDs))
	for _, id := range interestIDs {
		links = append(links, models.UserInterest{ClerkUserID: userID, InterestID: id})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	return mapError(err, "Interest", interestIDs)
}

// UnlinkInterests removes the given links; an empty list removes every link of the user.
func (r *userRepository) UnlinkInterests(ctx context.Context, userID string, interestIDs []string) error {
	q := r.db.WithContext(ctx).Where("clerk_user_id = ?", userID)
	if len(interestIDs) > 0 {
		q = q.Where("interest_id IN ?", interestIDs)
	}
	return mapError(q.Delete(&models.UserInterest{}).Error, "User", userID)
}
