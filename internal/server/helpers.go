package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"prosphere/internal/middleware"
	"prosphere/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten tells the handler that a helper already wrote the error
// response. Handlers return nil in that case so the ErrorHandler leaves it alone.
var errResponseWritten = errors.New("response already written")

// Pagination is a parsed limit/offset pair.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset. A missing or non-positive limit
// means defaultLimit, and limits above maxPaginationLimit are capped.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	return Pagination{
		Limit:  min(limit, maxPaginationLimit),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
}

// parseUUID reads the route parameter param as a UUID, answering 400
// "Invalid <param>" when it is not one.
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = badRequest(c, "Invalid "+humanizeParam(param))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// optionalFloat parses a float query parameter. A missing parameter yields nil.
func optionalFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		_ = badRequest(c, "Invalid "+name)
		return nil, errResponseWritten
	}
	return &v, nil
}

// humanizeParam turns a route parameter name into the label used in error
// messages: "id" is "ID" and "parentCommentId" is "parent comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String() + " ID"
}

// respondError writes err with the status its code maps to. Server-side
// failures are logged with the request id; the client only sees a generic message.
func respondError(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msg))
}

func forbidden(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(msg))
}
