package seed

import (
	_ "embed"
	"fmt"
	"os"

	"yatube/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yml
var defaultFixture []byte

// Fixture lists reference data loaded before random content is generated.
type Fixture struct {
	Groups []GroupFixture `yaml:"groups"`
}

type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

func (g GroupFixture) model() *models.Group {
	return &models.Group{Title: g.Title, Slug: g.Slug, Description: g.Description}
}

// DefaultFixture returns the groups shipped with the seeder.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

// LoadFixture reads a fixture file from disk.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes YAML and validates every group in it.
func ParseFixture(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	seen := make(map[string]bool, len(f.Groups))
	for i, g := range f.Groups {
		if err := g.model().Validate(); err != nil {
			return nil, fmt.Errorf("group %d (%q): %w", i, g.Slug, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %d: duplicate slug %q", i, g.Slug)
		}
		seen[g.Slug] = true
	}
	return &f, nil
}
