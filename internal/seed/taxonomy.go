// Package seed provides database seeding utilities for development and testing.
package seed

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"prosphere/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed interests.yml
var interestsYAML []byte

type taxonomy struct {
	Categories []struct {
		Name      string `yaml:"name"`
		Interests []struct {
			Name       string `yaml:"name"`
			Popularity string `yaml:"popularity"`
		} `yaml:"interests"`
	} `yaml:"categories"`
}

// Interests returns the built-in interest taxonomy. Ids are slugs of the
// interest names so they are stable across environments.
func Interests() ([]models.Interest, error) {
	var tx taxonomy
	if err := yaml.Unmarshal(interestsYAML, &tx); err != nil {
		return nil, fmt.Errorf("parse interest taxonomy: %w", err)
	}

	var out []models.Interest
	seen := map[string]bool{}
	for _, c := range tx.Categories {
		for _, i := range c.Interests {
			id := Slug(i.Name)
			if seen[id] {
				return nil, fmt.Errorf("duplicate interest %q", id)
			}
			seen[id] = true
			out = append(out, models.Interest{
				ID:         id,
				Name:       i.Name,
				Popularity: i.Popularity,
				Category:   c.Name,
			})
		}
	}
	return out, nil
}

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
