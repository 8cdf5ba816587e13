package service

import (
	"context"
	"strings"

	"prosphere/internal/models"
	"prosphere/internal/repository"
	"prosphere/internal/seed"

	"github.com/google/uuid"
)

const maxInterestSearchResults = 50

type InterestService struct {
	store repository.Store
}

type CreateInterestInput struct {
	Name       string
	Popularity string
	Category   string
}

type UpdateInterestInput struct {
	ID         string
	Name       *string
	Popularity *string
	Category   *string
}

func NewInterestService(store repository.Store) *InterestService {
	return &InterestService{store: store}
}

func (s *InterestService) GetByIDs(ctx context.Context, ids []string) ([]models.Interest, error) {
	return s.store.Interests().GetByIDs(ctx, ids)
}

func (s *InterestService) GetAll(ctx context.Context) ([]models.Interest, error) {
	return s.store.Interests().List(ctx)
}

func (s *InterestService) Create(ctx context.Context, in CreateInterestInput) (*models.Interest, error) {
	interest := &models.Interest{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Popularity: strings.TrimSpace(in.Popularity),
		Category:   strings.TrimSpace(in.Category),
	}
	if interest.Name == "" || interest.Popularity == "" || interest.Category == "" {
		return nil, models.NewValidationError("name, popularity and category are required")
	}
	if err := s.store.Interests().Create(ctx, interest); err != nil {
		return nil, err
	}
	return interest, nil
}

func (s *InterestService) Update(ctx context.Context, in UpdateInterestInput) (*models.Interest, error) {
	if in.ID == "" {
		return nil, models.NewValidationError("id is required")
	}
	fields := map[string]interface{}{}
	for column, v := range map[string]*string{"name": in.Name, "popularity": in.Popularity, "category": in.Category} {
		if v == nil {
			continue
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return nil, models.NewValidationError(column + " cannot be empty")
		}
		fields[column] = trimmed
	}

	var updated *models.Interest
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Interests().GetByID(ctx, in.ID); err != nil {
			return err
		}
		if err := tx.Interests().Update(ctx, in.ID, fields); err != nil {
			return err
		}
		var err error
		updated, err = tx.Interests().GetByID(ctx, in.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the interest and its user links. Deleting a missing interest succeeds.
func (s *InterestService) Delete(ctx context.Context, id string) error {
	err := s.store.Interests().Delete(ctx, id)
	if models.IsNotFound(err) {
		return nil
	}
	return err
}

func (s *InterestService) Search(ctx context.Context, q string) ([]models.Interest, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Interest{}, nil
	}
	return s.store.Interests().Search(ctx, q, maxInterestSearchResults)
}

// Seed loads the built-in taxonomy when the table is empty and returns the
// number of interests inserted.
func (s *InterestService) Seed(ctx context.Context) (int, error) {
	count, err := s.store.Interests().Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	return seed.SeedInterests(ctx, s.store)
}
