package repository

import (
	"context"

	"prosphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction operations
type ReactionRepository interface {
	Create(ctx context.Context, reaction *models.Reaction) error
	DeleteByUserAndPost(ctx context.Context, userID string, postID uuid.UUID) (int64, error)
	DeleteByPost(ctx context.Context, postID uuid.UUID) error
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Create inserts a reaction. A second reaction by the same user on the same post is a CONFLICT.
func (r *reactionRepository) Create(ctx context.Context, reaction *models.Reaction) error {
	err := r.db.WithContext(ctx).Omit("User").Create(reaction).Error
	return mapError(err, "Reaction", reaction.PostID)
}

func (r *reactionRepository) DeleteByUserAndPost(ctx context.Context, userID string, postID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND clerk_user_id = ?", postID, userID).
		Delete(&models.Reaction{})
	return res.RowsAffected, mapError(res.Error, "Reaction", postID)
}

func (r *reactionRepository) DeleteByPost(ctx context.Context, postID uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Reaction{}).Error
	return mapError(err, "Reaction", postID)
}

func (r *reactionRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Reaction, error) {
	reactions := []models.Reaction{}
	err := r.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, mapError(err, "Reaction", postID)
}
