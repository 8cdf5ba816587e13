// Package service implements the application's use cases on top of the repositories.
package service

import (
	"context"
	"strings"
	"time"

	"prosphere/internal/models"
	"prosphere/internal/observability"
	"prosphere/internal/repository"
	"prosphere/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const defaultFeedLimit = 20

type PostService struct {
	store repository.Store
}

type FeedInput struct {
	Limit       int
	Offset      int
	ClerkUserID string
	// OnlyPublic defaults to true when nil.
	OnlyPublic *bool
}

type CreatePostInput struct {
	AuthorID string
	Content  string
	IsPublic *bool
	Images   []string
	Tags     []string
	Location *models.Location
}

// UpdatePostInput carries a partial update; nil fields are left untouched.
type UpdatePostInput struct {
	PostID   uuid.UUID
	Content  *string
	IsPublic *bool
	Images   *[]string
	Tags     *[]string
	Location *models.Location
}

type AddReactionInput struct {
	PostID uuid.UUID
	UserID string
	Type   models.ReactionType
}

type AddCommentInput struct {
	PostID          uuid.UUID
	AuthorID        string
	Content         string
	ParentCommentID *uuid.UUID
}

type UpdateCommentInput struct {
	CommentID uuid.UUID
	Content   string
}

func NewPostService(store repository.Store) *PostService {
	return &PostService{store: store}
}

// GetByID returns the post with its aggregates, or nil when it does not exist.
// The user reaction is the one left by the post's own author.
func (s *PostService) GetByID(ctx context.Context, id uuid.UUID) (*models.PostView, error) {
	post, err := s.findPost(ctx, id)
	if err != nil || post == nil {
		return nil, err
	}
	view := models.NewPostView(*post, post.AuthorID)
	return &view, nil
}

// GetByIDForViewer is GetByID with the user reaction taken from viewerID.
func (s *PostService) GetByIDForViewer(ctx context.Context, id uuid.UUID, viewerID string) (*models.PostView, error) {
	post, err := s.findPost(ctx, id)
	if err != nil || post == nil {
		return nil, err
	}
	view := models.NewPostView(*post, viewerID)
	return &view, nil
}

func (s *PostService) findPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if models.IsNotFound(err) {
		return nil, nil
	}
	return post, err
}

func (s *PostService) GetByUser(ctx context.Context, clerkUserID string) ([]models.PostView, error) {
	posts, err := s.store.Posts().ListByAuthor(ctx, clerkUserID)
	if err != nil {
		return nil, err
	}
	return toViews(posts, clerkUserID), nil
}

func (s *PostService) GetFeed(ctx context.Context, in FeedInput) ([]models.PostView, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	onlyPublic := in.OnlyPublic == nil || *in.OnlyPublic

	posts, err := s.store.Posts().ListFeed(ctx, repository.FeedQuery{
		Limit:      limit,
		Offset:     offset,
		OnlyPublic: onlyPublic,
	})
	if err != nil {
		return nil, err
	}
	return toViews(posts, in.ClerkUserID), nil
}

func toViews(posts []models.Post, reactorID string) []models.PostView {
	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.NewPostView(p, reactorID))
	}
	return views
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.PostView, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Create", attribute.String("user.id", in.AuthorID))
	defer span.End()

	if err := validation.ValidatePostContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImages(in.Images); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateLocation(in.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		Content:  in.Content,
		AuthorID: in.AuthorID,
		IsPublic: in.IsPublic == nil || *in.IsPublic,
		Images:   in.Images,
		Location: in.Location,
		Tags:     normalizeTags(in.Tags),
	}
	if post.Images == nil {
		post.Images = []string{}
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		return tx.Posts().Create(ctx, post)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.PostsCreated.Inc()

	return s.GetByID(ctx, post.ID)
}

func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.PostView, error) {
	fields := map[string]interface{}{"updated_at": time.Now()}
	if in.Content != nil {
		if err := validation.ValidatePostContent(*in.Content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["content"] = *in.Content
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if in.Images != nil {
		if err := validation.ValidateImages(*in.Images); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		images := *in.Images
		if images == nil {
			images = []string{}
		}
		fields["images"] = models.JSONValue(images)
	}
	if in.Tags != nil {
		fields["tags"] = models.JSONValue(normalizeTags(*in.Tags))
	}
	if in.Location != nil {
		if err := validation.ValidateLocation(in.Location); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["location"] = models.JSONValue(in.Location)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := requirePost(ctx, tx, in.PostID); err != nil {
			return err
		}
		return tx.Posts().Update(ctx, in.PostID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, in.PostID)
}

func requirePost(ctx context.Context, tx repository.Store, id uuid.UUID) error {
	ok, err := tx.Posts().Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete removes the post together with its reactions and comments.
func (s *PostService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := requirePost(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Reactions().DeleteByPost(ctx, id); err != nil {
			return err
		}
		if err := tx.Comments().DeleteByPost(ctx, id); err != nil {
			return err
		}
		return tx.Posts().Delete(ctx, id)
	})
}

// AddReaction replaces the caller's reaction on the post: any existing one is
// deleted and the new one inserted in the same transaction.
func (s *PostService) AddReaction(ctx context.Context, in AddReactionInput) (*models.Reaction, error) {
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Invalid reaction type")
	}

	reaction := &models.Reaction{PostID: in.PostID, UserID: in.UserID, Type: in.Type}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := requirePost(ctx, tx, in.PostID); err != nil {
			return err
		}
		if _, err := tx.Reactions().DeleteByUserAndPost(ctx, in.UserID, in.PostID); err != nil {
			return err
		}
		return tx.Reactions().Create(ctx, reaction)
	})
	if err != nil {
		return nil, err
	}
	observability.Reactions.WithLabelValues("add").Inc()
	return reaction, nil
}

// RemoveReaction deletes the caller's reaction if there is one.
func (s *PostService) RemoveReaction(ctx context.Context, userID string, postID uuid.UUID) error {
	n, err := s.store.Reactions().DeleteByUserAndPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if n > 0 {
		observability.Reactions.WithLabelValues("remove").Inc()
	}
	return nil
}

func (s *PostService) GetReactions(ctx context.Context, postID uuid.UUID) ([]models.Reaction, error) {
	return s.store.Reactions().ListByPost(ctx, postID)
}

func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if err := validation.ValidateCommentContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		AuthorID:        in.AuthorID,
		Content:         in.Content,
		ParentCommentID: in.ParentCommentID,
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := requirePost(ctx, tx, in.PostID); err != nil {
			return err
		}
		if in.ParentCommentID != nil {
			parent, err := tx.Comments().GetByID(ctx, *in.ParentCommentID)
			if models.IsNotFound(err) {
				return &models.AppError{Code: models.CodeNotFound, Message: "Parent comment not found"}
			}
			if err != nil {
				return err
			}
			if parent.PostID != in.PostID {
				return models.NewValidationError("Parent comment does not belong to this post")
			}
		}
		return tx.Comments().Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	observability.Comments.WithLabelValues("add").Inc()
	return s.store.Comments().GetByID(ctx, comment.ID)
}

func (s *PostService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validation.ValidateCommentContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Comments().GetByID(ctx, in.CommentID); err != nil {
			return err
		}
		return tx.Comments().UpdateContent(ctx, in.CommentID, in.Content)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Comments().GetByID(ctx, in.CommentID)
}

// DeleteComment removes the comment and its direct replies. Deeper replies
// are kept.
func (s *PostService) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Comments().GetByID(ctx, commentID); err != nil {
			return err
		}
		if _, err := tx.Comments().DeleteByParent(ctx, commentID); err != nil {
			return err
		}
		return tx.Comments().Delete(ctx, commentID)
	})
	if err != nil {
		return err
	}
	observability.Comments.WithLabelValues("delete").Inc()
	return nil
}

// DeleteCommentTree removes the comment and every reply below it.
func (s *PostService) DeleteCommentTree(ctx context.Context, commentID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Comments().GetByID(ctx, commentID); err != nil {
			return err
		}

		seen := map[uuid.UUID]bool{commentID: true}
		var descendants []uuid.UUID
		frontier := []uuid.UUID{commentID}
		for len(frontier) > 0 {
			children, err := tx.Comments().ListChildIDs(ctx, frontier)
			if err != nil {
				return err
			}
			frontier = frontier[:0]
			for _, id := range children {
				if seen[id] {
					continue
				}
				seen[id] = true
				descendants = append(descendants, id)
				frontier = append(frontier, id)
			}
		}

		if _, err := tx.Comments().DeleteByIDs(ctx, descendants); err != nil {
			return err
		}
		return tx.Comments().Delete(ctx, commentID)
	})
	if err != nil {
		return err
	}
	observability.Comments.WithLabelValues("delete").Inc()
	return nil
}

func (s *PostService) GetComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.store.Comments().ListByPost(ctx, postID)
}

func (s *PostService) GetComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	return s.store.Comments().GetByID(ctx, commentID)
}
