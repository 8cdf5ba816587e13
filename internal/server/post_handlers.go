package server

import (
	"strconv"

	"prosphere/internal/featureflags"
	"prosphere/internal/middleware"
	"prosphere/internal/models"
	"prosphere/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content  string           `json:"content"`
	IsPublic *bool            `json:"is_public"`
	Images   []string         `json:"images"`
	Tags     []string         `json:"tags"`
	Location *models.Location `json:"location"`
}

type updatePostRequest struct {
	Content  *string          `json:"content"`
	IsPublic *bool            `json:"is_public"`
	Images   *[]string        `json:"images"`
	Tags     *[]string        `json:"tags"`
	Location *models.Location `json:"location"`
}

// GetFeed handles GET /api/posts/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	in := service.FeedInput{
		Limit:       page.Limit,
		Offset:      page.Offset,
		ClerkUserID: middleware.UserID(c),
	}
	if raw := c.Query("onlyPublic"); raw != "" {
		onlyPublic, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "onlyPublic must be true or false")
		}
		in.OnlyPublic = &onlyPublic
	}

	posts, err := s.postService.GetFeed(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /api/posts/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	var post *models.PostView
	viewer := middleware.UserID(c)
	if viewer != "" && s.featureFlags.Enabled(featureflags.ViewerReactionOnDetail, viewer) {
		post, err = s.postService.GetByIDForViewer(ctx, id, viewer)
	} else {
		post, err = s.postService.GetByID(ctx, id)
	}
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return respondError(c, models.NewNotFoundError("Post", id))
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		AuthorID: middleware.UserID(c),
		Content:  req.Content,
		IsPublic: req.IsPublic,
		Images:   req.Images,
		Tags:     req.Tags,
		Location: req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// requireOwnPost loads the post and checks that the caller wrote it. On
// failure the response is written and errResponseWritten returned.
func (s *Server) requireOwnPost(c *fiber.Ctx, param, action string) (*models.PostView, error) {
	id, err := parseUUID(c, param)
	if err != nil {
		return nil, err
	}
	post, err := s.postService.GetByID(c.UserContext(), id)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	if post == nil {
		_ = respondError(c, models.NewNotFoundError("Post", id))
		return nil, errResponseWritten
	}
	if post.AuthorID != middleware.UserID(c) {
		_ = forbidden(c, "You can only "+action+" your own posts")
		return nil, errResponseWritten
	}
	return post, nil
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	post, err := s.requireOwnPost(c, "id", "update")
	if err != nil {
		return nil
	}

	updated, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		PostID:   post.ID,
		Content:  req.Content,
		IsPublic: req.IsPublic,
		Images:   req.Images,
		Tags:     req.Tags,
		Location: req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	post, err := s.requireOwnPost(c, "id", "delete")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), post.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": post.ID, "deleted": true})
}

// GetReactions handles GET /api/posts/:postId/reactions
func (s *Server) GetReactions(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	reactions, err := s.postService.GetReactions(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reactions)
}

// AddReaction handles POST /api/posts/:postId/reactions
// Any earlier reaction of the caller on the post is replaced.
func (s *Server) AddReaction(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	var req struct {
		Type models.ReactionType `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	reaction, err := s.postService.AddReaction(c.UserContext(), service.AddReactionInput{
		PostID: postID,
		UserID: middleware.UserID(c),
		Type:   req.Type,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reaction)
}

// RemoveReaction handles DELETE /api/posts/:postId/reactions
func (s *Server) RemoveReaction(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.RemoveReaction(c.UserContext(), middleware.UserID(c), postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"removed": true})
}
