package repository

import (
	"context"

	"prosphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedQuery selects a page of the post feed.
type FeedQuery struct {
	Limit      int
	Offset     int
	OnlyPublic bool
}

// PostRepository defines the interface for post operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	ListFeed(ctx context.Context, q FeedQuery) ([]models.Post, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func commentsAscending(db *gorm.DB) *gorm.DB {
	return db.Order("post_comments.created_at ASC")
}

// withDetails preloads the author, the comments with their authors, and the reactions.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Comments", commentsAscending).
		Preload("Comments.Author").
		Preload("Reactions")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
	return mapError(err, "Post", post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Scopes(withDetails).Where("posts.id = ?", id).First(&post).Error
	if err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, mapError(err, "Post", id)
	}
	return count > 0, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.db.WithContext(ctx).Scopes(withDetails).
		Where("posts.clerk_user_id = ?", authorID).
		Order("posts.created_at DESC").
		Find(&posts).Error
	return posts, mapError(err, "Post", authorID)
}

func (r *postRepository) ListFeed(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	posts := []models.Post{}
	query := r.db.WithContext(ctx).Scopes(withDetails).Order("posts.created_at DESC")
	if q.OnlyPublic {
		query = query.Where("posts.is_public = ?", true)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	return posts, mapError(query.Find(&posts).Error, "Post", nil)
}

func (r *postRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return mapError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
