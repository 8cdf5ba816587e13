package server

import (
	"strings"

	"prosphere/internal/middleware"
	"prosphere/internal/models"
	"prosphere/internal/seed"
	"prosphere/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const maxPublicProfileIDs = 100

type updateProfileRequest struct {
	FirstName    *string              `json:"first_name"`
	LastName     *string              `json:"last_name"`
	Email        *string              `json:"email"`
	Phone        *string              `json:"phone"`
	ImageURL     *string              `json:"image_url"`
	Headline     *string              `json:"headline"`
	Bio          *string              `json:"bio"`
	Website      *string              `json:"website"`
	Availability *models.Availability `json:"availability"`
	Rate         *decimal.Decimal     `json:"rate"`
	Location     *models.Location     `json:"location"`
	SocialLinks  map[string]string    `json:"social_links"`
	Theme        *models.Theme        `json:"theme"`
	InterestIDs  *[]string            `json:"interest_ids"`
}

// GetMyProfile handles GET /api/users/me
// A caller that has not been synced yet is pulled from the identity provider.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	user, err := s.userService.GetOrSync(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewNotFoundError("User", userID))
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.Update(c.UserContext(), service.UpdateProfileInput{
		UserID:       middleware.UserID(c),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		ImageURL:     req.ImageURL,
		Headline:     req.Headline,
		Bio:          req.Bio,
		Website:      req.Website,
		Availability: req.Availability,
		Rate:         req.Rate,
		Location:     req.Location,
		SocialLinks:  req.SocialLinks,
		Theme:        req.Theme,
		InterestIDs:  req.InterestIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyContactInfo handles GET /api/users/me/contact
func (s *Server) GetMyContactInfo(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	info, err := s.userService.GetContactInfo(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if info == nil {
		return respondError(c, models.NewNotFoundError("User", userID))
	}
	return c.JSON(info)
}

// GetUserProfile handles GET /api/users/id/:id
// Callers get their own full profile and the public profile of anyone else.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id := c.Params("id")
	user, err := s.userService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewNotFoundError("User", id))
	}
	if id == middleware.UserID(c) {
		return c.JSON(user)
	}
	return c.JSON(user.Public())
}

// GetAllUsers handles GET /api/users/all
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, total, err := s.userService.GetAll(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": total})
}

// SearchUsers handles GET /api/users/search
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	lat, err := optionalFloat(c, "lat")
	if err != nil {
		return nil
	}
	lng, err := optionalFloat(c, "lng")
	if err != nil {
		return nil
	}
	radius, err := optionalFloat(c, "radiusKm")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 20)
	users, err := s.userService.Search(c.UserContext(), service.UserSearchInput{
		Query:    c.Query("q"),
		City:     c.Query("city"),
		State:    c.Query("state"),
		Country:  c.Query("country"),
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radius,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetPublicProfiles handles POST /api/users/public-profiles
func (s *Server) GetPublicProfiles(c *fiber.Ctx) error {
	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.UserIDs) > maxPublicProfileIDs {
		return badRequest(c, "At most 100 user ids can be requested")
	}
	if len(req.UserIDs) == 0 {
		return c.JSON([]models.PublicProfile{})
	}

	profiles, err := s.userService.GetPublicProfiles(c.UserContext(), req.UserIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profiles)
}

func (s *Server) loadTestUsers(c *fiber.Ctx) ([]seed.TestUser, error) {
	users, err := seed.LoadTestUsers(s.config.SeedUsersFile)
	if err != nil {
		_ = respondError(c, models.NewInternalError(err))
		return nil, errResponseWritten
	}
	return users, nil
}

// SeedTestUsers handles POST /api/users/seed
// The interest taxonomy is seeded first so test users can link to it.
func (s *Server) SeedTestUsers(c *fiber.Ctx) error {
	users, err := s.loadTestUsers(c)
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	if _, err := s.interestService.Seed(ctx); err != nil {
		return respondError(c, err)
	}
	created, err := s.userService.SeedTestUsers(ctx, users)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Test users seeded",
		"count":   created,
	})
}

// DeleteTestUsers handles DELETE /api/users/seed
func (s *Server) DeleteTestUsers(c *fiber.Ctx) error {
	n, err := s.userService.DeleteSeedUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Test users deleted",
		"count":   n,
	})
}

// CheckTestUsers handles GET /api/users/test-check
func (s *Server) CheckTestUsers(c *fiber.Ctx) error {
	users, err := s.loadTestUsers(c)
	if err != nil {
		return nil
	}
	report, err := s.userService.CheckTestUsers(c.UserContext(), users)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":     len(report.Missing) == 0 && len(report.Extra) == 0,
		"report": report,
	})
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
