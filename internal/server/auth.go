package server

import (
	"errors"

	"prosphere/internal/identity"
	"prosphere/internal/middleware"
	"prosphere/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) authenticate(c *fiber.Ctx) (*identity.Session, error) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return nil, err
	}
	if s.tokens == nil {
		return nil, errors.New("token verification is not configured")
	}
	return s.tokens.Verify(token)
}

// setCaller stores the verified caller in locals and in the user context.
// A token issued for the admin organization marks the caller as admin.
func (s *Server) setCaller(c *fiber.Ctx, sess *identity.Session) {
	admin := s.config.ClerkOrgID != "" && sess.OrgID == s.config.ClerkOrgID
	c.Locals(middleware.LocalUserID, sess.UserID)
	c.Locals(middleware.LocalIsAdmin, admin)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), sess.UserID))
}

// AuthRequired rejects requests without a valid bearer session token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.authenticate(c)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, middleware.ErrMissingAuthHeader) {
				msg = "Authorization required"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		s.setCaller(c, sess)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess, err := s.authenticate(c); err == nil {
			s.setCaller(c, sess)
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.IsAdmin(c) {
			return c.Next()
		}
		admin, err := s.userService.IsAdmin(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		c.Locals(middleware.LocalIsAdmin, true)
		return c.Next()
	}
}
