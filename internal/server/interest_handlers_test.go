package server

import (
	"net/http"
	"testing"

	"prosphere/internal/models"
	"prosphere/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestRoutes(t *testing.T) {
	ts := newTestServer(t, "")
	testutil.CreateInterest(t, ts.db, "go", "Go", "Engineering")
	testutil.CreateInterest(t, ts.db, "ux", "UX Research", "Design")
	admin := sessionToken(t, "admin", testAdminOrg)

	status, raw := ts.do(t, http.MethodGet, "/api/interests/all", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.Interest](t, raw), 2)

	_, raw = ts.do(t, http.MethodGet, "/api/interests/search?q=research", nil, "")
	found := decode[[]models.Interest](t, raw)
	require.Len(t, found, 1)
	assert.Equal(t, "ux", found[0].ID)

	_, raw = ts.do(t, http.MethodGet, "/api/interests/ids?ids=go,missing", nil, "")
	assert.Len(t, decode[[]models.Interest](t, raw), 1)

	status, _ = ts.do(t, http.MethodGet, "/api/interests/ids", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPost, "/api/interests", fiber.Map{"name": "Rust"}, sessionToken(t, "user_1", ""))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw = ts.do(t, http.MethodPost, "/api/interests", fiber.Map{
		"name": "Rust", "popularity": "low", "category": "Engineering",
	}, admin)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	created := decode[models.Interest](t, raw)

	rename := "Rust Lang"
	status, raw = ts.do(t, http.MethodPut, "/api/interests", fiber.Map{"id": created.ID, "name": rename}, admin)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, rename, decode[models.Interest](t, raw).Name)

	status, _ = ts.do(t, http.MethodDelete, "/api/interests/"+created.ID, nil, admin)
	assert.Equal(t, fiber.StatusNoContent, status)

	// the taxonomy is only loaded into an empty table
	status, raw = ts.do(t, http.MethodPost, "/api/interests/seed", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, decode[map[string]any](t, raw)["count"])
}
