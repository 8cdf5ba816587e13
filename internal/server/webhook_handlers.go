package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"prosphere/internal/identity"
	"prosphere/internal/middleware"
	"prosphere/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClerkWebhook handles POST /api/users/clerk-webhook
// The request is authenticated by its svix signature.
func (s *Server) ClerkWebhook(c *fiber.Ctx) error {
	if s.webhooks == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Webhook verification is not configured",
		})
	}

	headers := http.Header{}
	for _, name := range []string{identity.HeaderWebhookID, identity.HeaderWebhookTimestamp, identity.HeaderWebhookSignature} {
		headers.Set(name, c.Get(name))
	}
	body := c.Body()
	if err := s.webhooks.Verify(headers, body); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "rejected identity webhook", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid webhook signature"))
	}

	var evt identity.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return badRequest(c, "Invalid webhook payload")
	}
	if err := s.userService.ApplyWebhookEvent(c.UserContext(), evt); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
