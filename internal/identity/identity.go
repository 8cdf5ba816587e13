// Package identity integrates with the external identity provider (Clerk):
// its REST API, its signed webhooks, and its session tokens.
package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when the provider has no user with the requested id.
var ErrUserNotFound = errors.New("identity: user not found")

// Client is the subset of the provider API the application uses.
type Client interface {
	GetUser(ctx context.Context, id string) (*ProviderUser, error)
	IsOrganizationMember(ctx context.Context, orgID, userID string) (bool, error)
}

// EmailAddress is one of a provider user's email addresses.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PhoneNumber is one of a provider user's phone numbers.
type PhoneNumber struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

// ProviderUser is a user as returned by the provider API and carried in webhook
// payloads. Nil pointers mean the provider did not send the field.
type ProviderUser struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              *string        `json:"image_url"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	PrimaryPhoneNumberID  *string        `json:"primary_phone_number_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PhoneNumbers          []PhoneNumber  `json:"phone_numbers"`
	Deleted               bool           `json:"deleted,omitempty"`
}

// PrimaryEmail returns the primary email address and whether one is set.
func (u *ProviderUser) PrimaryEmail() (string, bool) {
	if u.PrimaryEmailAddressID == nil {
		return "", false
	}
	for _, e := range u.EmailAddresses {
		if e.ID == *u.PrimaryEmailAddressID {
			return e.EmailAddress, true
		}
	}
	return "", false
}

// PrimaryPhone returns the primary phone number and whether one is set.
func (u *ProviderUser) PrimaryPhone() (string, bool) {
	if u.PrimaryPhoneNumberID == nil {
		return "", false
	}
	for _, p := range u.PhoneNumbers {
		if p.ID == *u.PrimaryPhoneNumberID {
			return p.PhoneNumber, true
		}
	}
	return "", false
}

// Webhook event types handled by the application.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// WebhookEvent is the envelope of a provider webhook.
type WebhookEvent struct {
	Type   string       `json:"type"`
	Object string       `json:"object"`
	Data   ProviderUser `json:"data"`
}
