// Package validation holds input checks shared by the services.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"prosphere/internal/models"
)

var (
	countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)
	emailRegex       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidatePostContent checks post text length.
func ValidatePostContent(content string) error {
	return validateText("Post content", content, models.MaxPostContentLength)
}

// ValidateCommentContent checks comment text length.
func ValidateCommentContent(content string) error {
	return validateText("Comment content", content, models.MaxCommentContentLength)
}

func validateText(label, content string, max int) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%s is required", label)
	}
	if utf8.RuneCountInString(content) > max {
		return fmt.Errorf("%s must be at most %d characters", label, max)
	}
	return nil
}

// ValidateImages checks the image list attached to a post.
func ValidateImages(images []string) error {
	if len(images) > models.MaxPostImages {
		return fmt.Errorf("a post can have at most %d images", models.MaxPostImages)
	}
	for _, img := range images {
		if err := ValidateURL(img); err != nil {
			return fmt.Errorf("invalid image url %q", img)
		}
	}
	return nil
}

// ValidateURL accepts absolute http(s) URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) url")
	}
	return nil
}

// ValidateEmail performs a shallow format check.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidateLocation checks a location value. A nil location is valid.
func ValidateLocation(loc *models.Location) error {
	if loc == nil {
		return nil
	}
	if strings.TrimSpace(loc.City) == "" && strings.TrimSpace(loc.FormattedAddress) == "" {
		return fmt.Errorf("location requires a city or a formatted address")
	}
	if loc.Latitude != nil && (*loc.Latitude < -90 || *loc.Latitude > 90) {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if loc.Longitude != nil && (*loc.Longitude < -180 || *loc.Longitude > 180) {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	if loc.CountryCode != "" && !countryCodeRegex.MatchString(loc.CountryCode) {
		return fmt.Errorf("country code must be two uppercase letters")
	}
	return nil
}
