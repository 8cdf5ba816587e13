package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Webhook header names (svix).
const (
	HeaderWebhookID        = "svix-id"
	HeaderWebhookTimestamp = "svix-timestamp"
	HeaderWebhookSignature = "svix-signature"
)

// webhookTolerance matches the window svix enforces on svix-timestamp.
const webhookTolerance = 5 * time.Minute

var (
	ErrMissingHeaders   = errors.New("identity: missing webhook headers")
	ErrInvalidTimestamp = errors.New("identity: webhook timestamp outside tolerance")
	ErrInvalidSignature = errors.New("identity: no matching webhook signature")
)

// WebhookVerifier checks svix signatures on provider webhooks.
type WebhookVerifier struct {
	wh *svix.Webhook
}

// NewWebhookVerifier takes the "whsec_<base64>" signing secret from the
// provider dashboard.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if strings.TrimPrefix(secret, "whsec_") == "" {
		return nil, errors.New("identity: empty webhook secret")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("identity: webhook secret: %w", err)
	}
	return &WebhookVerifier{wh: wh}, nil
}

// Sign returns the svix-signature value for a message. Used by tests and
// local tooling to produce deliveries.
func (v *WebhookVerifier) Sign(id string, ts time.Time, body []byte) (string, error) {
	return v.wh.Sign(id, ts, body)
}

// Verify checks body against the svix headers. Failures wrap one of
// ErrMissingHeaders, ErrInvalidTimestamp or ErrInvalidSignature.
func (v *WebhookVerifier) Verify(headers http.Header, body []byte) error {
	if headers.Get(HeaderWebhookID) == "" || headers.Get(HeaderWebhookTimestamp) == "" || headers.Get(HeaderWebhookSignature) == "" {
		return ErrMissingHeaders
	}
	err := v.wh.Verify(body, headers)
	if err == nil {
		return nil
	}
	if !freshTimestamp(headers.Get(HeaderWebhookTimestamp), time.Now()) {
		return fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
}

// freshTimestamp only classifies a rejected delivery; svix makes the decision.
func freshTimestamp(raw string, now time.Time) bool {
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	d := now.Sub(time.Unix(unix, 0))
	return d <= webhookTolerance && d >= -webhookTolerance
}
