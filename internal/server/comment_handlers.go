package server

import (
	"prosphere/internal/featureflags"
	"prosphere/internal/middleware"
	"prosphere/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetComments handles GET /api/posts/:postId/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	comments, err := s.postService.GetComments(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// AddComment handles POST /api/posts/:postId/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	var req struct {
		Content         string     `json:"content"`
		ParentCommentID *uuid.UUID `json:"parent_comment_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := s.postService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:          postID,
		AuthorID:        middleware.UserID(c),
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/posts/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := parseUUID(c, "commentId")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.UserContext()
	comment, err := s.postService.GetComment(ctx, commentID)
	if err != nil {
		return respondError(c, err)
	}
	if comment.AuthorID != middleware.UserID(c) {
		return forbidden(c, "You can only update your own comments")
	}

	updated, err := s.postService.UpdateComment(ctx, service.UpdateCommentInput{
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment handles DELETE /api/posts/comments/:commentId
// The comment author and the author of the post may delete a comment.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseUUID(c, "commentId")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	userID := middleware.UserID(c)
	comment, err := s.postService.GetComment(ctx, commentID)
	if err != nil {
		return respondError(c, err)
	}
	if comment.AuthorID != userID {
		post, err := s.postService.GetByID(ctx, comment.PostID)
		if err != nil {
			return respondError(c, err)
		}
		if post == nil || post.AuthorID != userID {
			return forbidden(c, "You can only delete your own comments or comments on your posts")
		}
	}

	if s.featureFlags.Enabled(featureflags.CommentSubtreeDelete, userID) {
		err = s.postService.DeleteCommentTree(ctx, commentID)
	} else {
		err = s.postService.DeleteComment(ctx, commentID)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": commentID, "deleted": true})
}
