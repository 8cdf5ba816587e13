package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"prosphere/internal/config"
	"prosphere/internal/identity"
	"prosphere/internal/models"
	"prosphere/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookRequest(t *testing.T, body []byte, sign func(id string, ts time.Time) string) *http.Request {
	t.Helper()
	now := time.Now()
	req := httptest.NewRequest(http.MethodPost, "/api/users/clerk-webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.HeaderWebhookID, "msg_1")
	req.Header.Set(identity.HeaderWebhookTimestamp, strconv.FormatInt(now.Unix(), 10))
	req.Header.Set(identity.HeaderWebhookSignature, sign("msg_1", now))
	return req
}

func TestClerkWebhook(t *testing.T) {
	ts := newTestServer(t, "")
	verifier, err := identity.NewWebhookVerifier(testWebhookSecret)
	require.NoError(t, err)
	testutil.CreateUser(t, ts.db, "user_1", "Ada", "Lovelace")

	first := "Augusta"
	payload, err := json.Marshal(identity.WebhookEvent{
		Type:   identity.EventUserUpdated,
		Object: "event",
		Data:   identity.ProviderUser{ID: "user_1", FirstName: &first},
	})
	require.NoError(t, err)

	t.Run("bad signature", func(t *testing.T) {
		req := webhookRequest(t, payload, func(string, time.Time) string { return "v1,AAAA" })
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("signed update", func(t *testing.T) {
		req := webhookRequest(t, payload, func(id string, at time.Time) string {
			sig, err := verifier.Sign(id, at, payload)
			require.NoError(t, err)
			return sig
		})
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var u models.User
		require.NoError(t, ts.db.First(&u, "clerk_user_id = ?", "user_1").Error)
		assert.Equal(t, "Augusta", u.FirstName)
	})

	t.Run("signed delete", func(t *testing.T) {
		body, err := json.Marshal(identity.WebhookEvent{
			Type: identity.EventUserDeleted,
			Data: identity.ProviderUser{ID: "user_1", Deleted: true},
		})
		require.NoError(t, err)
		req := webhookRequest(t, body, func(id string, at time.Time) string {
			sig, err := verifier.Sign(id, at, body)
			require.NoError(t, err)
			return sig
		})
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var n int64
		require.NoError(t, ts.db.Model(&models.User{}).Where("clerk_user_id = ?", "user_1").Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("signed but malformed", func(t *testing.T) {
		body := []byte("{not json")
		req := webhookRequest(t, body, func(id string, at time.Time) string {
			sig, err := verifier.Sign(id, at, body)
			require.NoError(t, err)
			return sig
		})
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestClerkWebhook_NotConfigured(t *testing.T) {
	s, err := NewServerWithDeps(&config.Config{JWTSecret: testJWTSecret}, testutil.NewDB(t), nil, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/users/clerk-webhook", bytes.NewReader([]byte("{}")))
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
