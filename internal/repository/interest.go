package repository

import (
	"context"

	"prosphere/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterestRepository defines the interface for interest operations
type InterestRepository interface {
	GetByID(ctx context.Context, id string) (*models.Interest, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Interest, error)
	List(ctx context.Context) ([]models.Interest, error)
	Search(ctx context.Context, term string, limit int) ([]models.Interest, error)
	Create(ctx context.Context, interest *models.Interest) error
	CreateBatch(ctx context.Context, interests []models.Interest) (int64, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type interestRepository struct {
	db *gorm.DB
}

// NewInterestRepository creates a new InterestRepository
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db}
}

func (r *interestRepository) GetByID(ctx context.Context, id string) (*models.Interest, error) {
	var interest models.Interest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&interest).Error; err != nil {
		return nil, mapError(err, "Interest", id)
	}
	return &interest, nil
}

func (r *interestRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Interest, error) {
	interests := []models.Interest{}
	if len(ids) == 0 {
		return interests, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&interests).Error
	return interests, mapError(err, "Interest", ids)
}

func (r *interestRepository) List(ctx context.Context) ([]models.Interest, error) {
	interests := []models.Interest{}
	err := r.db.WithContext(ctx).Order("category ASC, name ASC").Find(&interests).Error
	return interests, mapError(err, "Interest", nil)
}

func (r *interestRepository) Search(ctx context.Context, term string, limit int) ([]models.Interest, error) {
	interests := []models.Interest{}
	q := r.db.WithContext(ctx).
		Where(likeClause("name"), containsPattern(term)).
		Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return interests, mapError(q.Find(&interests).Error, "Interest", term)
}

func (r *interestRepository) Create(ctx context.Context, interest *models.Interest) error {
	return mapError(r.db.WithContext(ctx).Create(interest).Error, "Interest", interest.ID)
}

// CreateBatch inserts interests, skipping ids that already exist. It returns the number inserted.
func (r *interestRepository) CreateBatch(ctx context.Context, interests []models.Interest) (int64, error) {
	if len(interests) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(interests, 100)
	return res.RowsAffected, mapError(res.Error, "Interest", nil)
}

func (r *interestRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Interest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapError(res.Error, "Interest", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Interest", id)
	}
	return nil
}

// Delete removes the interest and every user link to it.
func (r *interestRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("interest_id = ?", id).Delete(&models.UserInterest{}).Error; err != nil {
			return mapError(err, "Interest", id)
		}
		res := tx.Where("id = ?", id).Delete(&models.Interest{})
		if res.Error != nil {
			return mapError(res.Error, "Interest", id)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Interest", id)
		}
		return nil
	})
}

func (r *interestRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Interest{}).Count(&count).Error
	return count, mapError(err, "Interest", nil)
}
