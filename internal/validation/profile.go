package validation

import (
	"fmt"

	"prosphere/internal/models"
)

// ValidateProfile checks a user's optional profile fields.
func ValidateProfile(u *models.User) error {
	if u.Email != "" {
		if err := ValidateEmail(u.Email); err != nil {
			return err
		}
	}
	if u.Website != "" {
		if err := ValidateURL(u.Website); err != nil {
			return fmt.Errorf("invalid website: %w", err)
		}
	}
	if u.Availability != nil && !u.Availability.Valid() {
		return fmt.Errorf("invalid availability %q", *u.Availability)
	}
	if u.Theme != "" && !u.Theme.Valid() {
		return fmt.Errorf("invalid theme %q", u.Theme)
	}
	if u.Rate.Valid && u.Rate.Decimal.IsNegative() {
		return fmt.Errorf("rate cannot be negative")
	}
	return ValidateLocation(u.Location)
}
