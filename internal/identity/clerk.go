package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prosphere/internal/observability"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 10 * time.Second
	membershipPageSize = 100
)

// ClerkConfig configures a ClerkClient. An empty BaseURL means the SDK's
// default API host.
type ClerkConfig struct {
	SecretKey  string
	BaseURL    string
	RPS        float64
	Burst      int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ClerkClient calls the Clerk backend API through the Clerk SDK. Outbound
// requests share one token bucket so bursts of profile syncs cannot exceed
// the API quota.
type ClerkClient struct {
	users   *clerkuser.Client
	limiter *rate.Limiter
}

// NewClerkClient creates a client from cfg, filling in defaults.
func NewClerkClient(cfg ClerkConfig) *ClerkClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sdk := &clerk.ClientConfig{}
	sdk.Key = clerk.String(cfg.SecretKey)
	sdk.HTTPClient = httpClient
	// the SDK appends the API version itself
	if base := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1"); base != "" {
		sdk.URL = clerk.String(base)
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &ClerkClient{
		users:   clerkuser.NewClient(sdk),
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
	}
}

// GetUser fetches a user by id.
func (c *ClerkClient) GetUser(ctx context.Context, id string) (*ProviderUser, error) {
	var u *clerk.User
	err := c.call(ctx, "get_user", func(ctx context.Context) (err error) {
		u, err = c.users.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromClerkUser(u), nil
}

// IsOrganizationMember reports whether userID belongs to orgID. Memberships
// are paged through until the organization is found.
func (c *ClerkClient) IsOrganizationMember(ctx context.Context, orgID, userID string) (bool, error) {
	if orgID == "" || userID == "" {
		return false, nil
	}
	for offset := int64(0); ; offset += membershipPageSize {
		params := &clerkuser.ListOrganizationMembershipsParams{}
		params.Limit = clerk.Int64(membershipPageSize)
		params.Offset = clerk.Int64(offset)

		var page *clerk.OrganizationMembershipList
		err := c.call(ctx, "list_memberships", func(ctx context.Context) (err error) {
			page, err = c.users.ListOrganizationMemberships(ctx, userID, params)
			return err
		})
		switch {
		case errors.Is(err, ErrUserNotFound):
			return false, nil
		case err != nil:
			return false, err
		}

		for _, m := range page.OrganizationMemberships {
			if m != nil && m.Organization != nil && m.Organization.ID == orgID {
				return true, nil
			}
		}
		n := int64(len(page.OrganizationMemberships))
		if n == 0 || offset+n >= page.TotalCount {
			return false, nil
		}
	}
}

// call runs one SDK request behind the rate limiter, inside a client span,
// and maps provider errors.
func (c *ClerkClient) call(ctx context.Context, endpoint string, do func(context.Context) error) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "clerk", endpoint)
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrUserNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "error"
			span.SetError(err)
		}
		observability.IdentityRequests.WithLabelValues(endpoint, outcome).Inc()
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("clerk %s: rate limiter: %w", endpoint, err)
	}

	err = do(ctx)
	var apiErr *clerk.APIErrorResponse
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		span.AddAttributes(attribute.Int("http.status_code", apiErr.HTTPStatusCode))
		if isNotFound(apiErr) {
			return ErrUserNotFound
		}
		return fmt.Errorf("clerk %s: status %d: %w", endpoint, apiErr.HTTPStatusCode, err)
	default:
		return fmt.Errorf("clerk %s: %w", endpoint, err)
	}
}

func isNotFound(e *clerk.APIErrorResponse) bool {
	if e.HTTPStatusCode == http.StatusNotFound {
		return true
	}
	for _, item := range e.Errors {
		if item.Code == "resource_not_found" {
			return true
		}
	}
	return false
}

func fromClerkUser(u *clerk.User) *ProviderUser {
	out := &ProviderUser{
		ID:                    u.ID,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		ImageURL:              u.ImageURL,
		PrimaryEmailAddressID: u.PrimaryEmailAddressID,
		PrimaryPhoneNumberID:  u.PrimaryPhoneNumberID,
	}
	for _, e := range u.EmailAddresses {
		if e != nil {
			out.EmailAddresses = append(out.EmailAddresses, EmailAddress{ID: e.ID, EmailAddress: e.EmailAddress})
		}
	}
	for _, p := range u.PhoneNumbers {
		if p != nil {
			out.PhoneNumbers = append(out.PhoneNumbers, PhoneNumber{ID: p.ID, PhoneNumber: p.PhoneNumber})
		}
	}
	return out
}
