package server

import (
	"prosphere/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetInterests handles GET /api/interests/all
func (s *Server) GetInterests(c *fiber.Ctx) error {
	interests, err := s.interestService.GetAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interests)
}

// SearchInterests handles GET /api/interests/search?q=...
func (s *Server) SearchInterests(c *fiber.Ctx) error {
	interests, err := s.interestService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interests)
}

// GetInterestsByIDs handles GET /api/interests/ids?ids=a,b
func (s *Server) GetInterestsByIDs(c *fiber.Ctx) error {
	ids := splitIDs(c.Query("ids"))
	if len(ids) == 0 {
		return badRequest(c, "ids is required")
	}
	interests, err := s.interestService.GetByIDs(c.UserContext(), ids)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interests)
}

// CreateInterest handles POST /api/interests
func (s *Server) CreateInterest(c *fiber.Ctx) error {
	var req struct {
		Name       string `json:"name"`
		Popularity string `json:"popularity"`
		Category   string `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	interest, err := s.interestService.Create(c.UserContext(), service.CreateInterestInput{
		Name:       req.Name,
		Popularity: req.Popularity,
		Category:   req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(interest)
}

// UpdateInterest handles PUT /api/interests
func (s *Server) UpdateInterest(c *fiber.Ctx) error {
	var req struct {
		ID         string  `json:"id"`
		Name       *string `json:"name"`
		Popularity *string `json:"popularity"`
		Category   *string `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	interest, err := s.interestService.Update(c.UserContext(), service.UpdateInterestInput{
		ID:         req.ID,
		Name:       req.Name,
		Popularity: req.Popularity,
		Category:   req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interest)
}

// DeleteInterest handles DELETE /api/interests/:id
func (s *Server) DeleteInterest(c *fiber.Ctx) error {
	if err := s.interestService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SeedInterests handles POST /api/interests/seed
func (s *Server) SeedInterests(c *fiber.Ctx) error {
	n, err := s.interestService.Seed(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Interests seeded", "count": n})
}
