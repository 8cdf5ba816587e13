// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Theme is the UI theme preference stored per user.
type Theme string

const (
	ThemeLight  Theme = "LIGHT"
	ThemeDark   Theme = "DARK"
	ThemeSystem Theme = "SYSTEM"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Availability describes the kind of work a user is open to.
type Availability string

const (
	AvailabilityFullTime     Availability = "full_time"
	AvailabilityPartTime     Availability = "part_time"
	AvailabilityFreelance    Availability = "freelance"
	AvailabilityVolunteer    Availability = "volunteer"
	AvailabilityStudent      Availability = "student"
	AvailabilityInternship   Availability = "internship"
	AvailabilityContract     Availability = "contract"
	AvailabilitySelfEmployed Availability = "self_employed"
	AvailabilityOther        Availability = "other"
)

// Availabilities lists every accepted Availability value.
var Availabilities = []Availability{
	AvailabilityFullTime, AvailabilityPartTime, AvailabilityFreelance,
	AvailabilityVolunteer, AvailabilityStudent, AvailabilityInternship,
	AvailabilityContract, AvailabilitySelfEmployed, AvailabilityOther,
}

// Valid reports whether a is a known availability.
func (a Availability) Valid() bool {
	for _, v := range Availabilities {
		if a == v {
			return true
		}
	}
	return false
}

// Location is a geocoded place attached to users and posts.
type Location struct {
	FormattedAddress string   `json:"formatted_address,omitempty" yaml:"formatted_address,omitempty"`
	City             string   `json:"city,omitempty" yaml:"city,omitempty"`
	State            string   `json:"state,omitempty" yaml:"state,omitempty"`
	Country          string   `json:"country,omitempty" yaml:"country,omitempty"`
	CountryCode      string   `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// User is a profile keyed by the identity provider's user id.
type User struct {
	ClerkUserID  string              `gorm:"column:clerk_user_id;primaryKey;size:255" json:"clerk_user_id"`
	FirstName    string              `gorm:"not null;index;index:idx_users_full_name,priority:1" json:"first_name"`
	LastName     string              `gorm:"not null;index;index:idx_users_full_name,priority:2" json:"last_name"`
	Email        string              `gorm:"not null;default:''" json:"email"`
	Phone        string              `gorm:"not null;default:'';index" json:"phone,omitempty"`
	Availability *Availability       `gorm:"type:enum_users_availability" json:"availability,omitempty"`
	Rate         decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"rate"`
	ImageURL     string              `gorm:"not null;default:''" json:"image_url,omitempty"`
	Headline     string              `gorm:"not null;default:''" json:"headline,omitempty"`
	Bio          string              `gorm:"type:text;not null;default:''" json:"bio,omitempty"`
	Location     *Location           `gorm:"serializer:json;type:jsonb" json:"location,omitempty"`
	Website      string              `gorm:"not null;default:''" json:"website,omitempty"`
	SocialLinks  map[string]string   `gorm:"serializer:json;type:jsonb" json:"social_links"`
	Theme        Theme               `gorm:"type:enum_users_theme;not null;default:'SYSTEM'" json:"theme"`
	Interests    []Interest          `gorm:"many2many:user_interests;foreignKey:ClerkUserID;joinForeignKey:ClerkUserID;references:ID;joinReferences:InterestID" json:"interests,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ShortProfile is the reduced user projection embedded in posts, comments and reactions.
type ShortProfile struct {
	ClerkUserID  string              `gorm:"column:clerk_user_id;primaryKey" json:"clerk_user_id"`
	FirstName    string              `json:"first_name"`
	LastName     string              `json:"last_name"`
	ImageURL     string              `json:"image_url,omitempty"`
	Headline     string              `json:"headline,omitempty"`
	Availability *Availability       `json:"availability,omitempty"`
	Rate         decimal.NullDecimal `json:"rate"`
}

// TableName maps ShortProfile onto the users table. It is never migrated on its own.
func (ShortProfile) TableName() string {
	return "users"
}

// PublicProfile is a user as seen by other users.
type PublicProfile struct {
	ClerkUserID  string              `json:"clerk_user_id"`
	FirstName    string              `json:"first_name"`
	LastName     string              `json:"last_name"`
	Availability *Availability       `json:"availability,omitempty"`
	Rate         decimal.NullDecimal `json:"rate"`
	ImageURL     string              `json:"image_url,omitempty"`
	Headline     string              `json:"headline,omitempty"`
	Bio          string              `json:"bio,omitempty"`
	Location     *Location           `json:"location,omitempty"`
	Website      string              `json:"website,omitempty"`
	SocialLinks  map[string]string   `json:"social_links"`
	Interests    []Interest          `json:"interests"`
}

// Public strips contact details and preferences from u.
func (u *User) Public() PublicProfile {
	interests := u.Interests
	if interests == nil {
		interests = []Interest{}
	}
	return PublicProfile{
		ClerkUserID:  u.ClerkUserID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Availability: u.Availability,
		Rate:         u.Rate,
		ImageURL:     u.ImageURL,
		Headline:     u.Headline,
		Bio:          u.Bio,
		Location:     u.Location,
		Website:      u.Website,
		SocialLinks:  u.SocialLinks,
		Interests:    interests,
	}
}

// Short projects u onto a ShortProfile.
func (u *User) Short() ShortProfile {
	return ShortProfile{
		ClerkUserID:  u.ClerkUserID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ImageURL:     u.ImageURL,
		Headline:     u.Headline,
		Availability: u.Availability,
		Rate:         u.Rate,
	}
}

// ContactInfo holds the private contact fields of a user.
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
