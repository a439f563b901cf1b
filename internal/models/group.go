package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	GroupTitleMaxLen       = 200
	GroupSlugMaxLen        = 50
	GroupDescriptionMaxLen = 400
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Group is reference data that posts can be filed under.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"size:400;not null" json:"description"`
}

// Validate checks field bounds and slug shape before the group is stored.
func (g *Group) Validate() error {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		return NewValidationError("Group title is required")
	}
	if utf8.RuneCountInString(title) > GroupTitleMaxLen {
		return NewValidationError("Group title too long (max 200 characters)")
	}
	if !IsValidSlug(g.Slug) {
		return NewValidationError("Group slug must contain only letters, digits, hyphens and underscores")
	}
	if utf8.RuneCountInString(g.Slug) > GroupSlugMaxLen {
		return NewValidationError("Group slug too long (max 50 characters)")
	}
	if strings.TrimSpace(g.Description) == "" {
		return NewValidationError("Group description is required")
	}
	if utf8.RuneCountInString(g.Description) > GroupDescriptionMaxLen {
		return NewValidationError("Group description too long (max 400 characters)")
	}
	return nil
}

// IsValidSlug reports whether s is a non-empty URL-safe identifier.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
