// Package parser turns catalog pages into records, categories and listing links.
package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-catalog-crawler/models"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
	innerWhitespace = regexp.MustCompile(`\s+`)
)

// ValidateRecord ensures the fields the exporter relies on are present.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.PageURL) == "" {
		return fmt.Errorf("record missing page url")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title for %s", r.PageURL)
	}
	return nil
}

// SanitizeName replaces every character outside [A-Za-z0-9_] with an underscore.
// The result has one character per input character.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ResolveURL resolves ref against base. Absolute references come back unchanged.
func ResolveURL(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return "", fmt.Errorf("resolve %q: nil base url", ref)
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

func cleanText(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}
