package service

import (
	_ "embed"
	"fmt"
	"strings"

	"opcdiary/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/directory.yaml
var directoryYAML []byte

// Directory is the fixed set of simulated counterparties: communities and
// demo founders that can be visited and followed but never act themselves.
type Directory struct {
	entries []models.Group
}

// LoadDirectory decodes the embedded directory.
func LoadDirectory() (*Directory, error) {
	var entries []models.Group
	if err := yaml.Unmarshal(directoryYAML, &entries); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	return &Directory{entries: entries}, nil
}

// NewDirectory builds a directory from explicit entries.
func NewDirectory(entries ...models.Group) *Directory {
	return &Directory{entries: entries}
}

// All returns every entry in fixture order.
func (d *Directory) All() []models.Group {
	if d == nil {
		return nil
	}
	out := make([]models.Group, len(d.entries))
	copy(out, d.entries)
	return out
}

// Search returns the entries whose name contains q, case-insensitively.
func (d *Directory) Search(q string) []models.Group {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []models.Group
	for _, g := range d.All() {
		if q == "" || strings.Contains(strings.ToLower(g.Name), q) {
			out = append(out, g)
		}
	}
	return out
}

// Lookup finds an entry by exact name.
func (d *Directory) Lookup(name string) (models.Group, bool) {
	if d == nil {
		return models.Group{}, false
	}
	for _, g := range d.entries {
		if g.Name == name {
			return g, true
		}
	}
	return models.Group{}, false
}

// Reserves reports whether name matches a directory entry ignoring case and
// surrounding space.
func (d *Directory) Reserves(name string) bool {
	if d == nil {
		return false
	}
	for _, g := range d.entries {
		if models.SameName(g.Name, name) {
			return true
		}
	}
	return false
}

// IsSimulated reports whether name belongs to the directory.
func (d *Directory) IsSimulated(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}

// Profile fabricates the public card shown when visiting g.
func (d *Directory) Profile(g models.Group) models.UserProfile {
	p := models.UserProfile{
		CompanyName: g.Name,
		Description: g.Description,
		DevTime:     "1 Year",
		Audience:    "10K",
		Valuation:   "$5M",
		ProjectURL:  "https://example.com",
		Title:       "Founder",
	}
	// Group avatars are colour swatches, not images.
	if !strings.HasPrefix(g.Avatar, "#") {
		p.Avatar = g.Avatar
	}
	if g.Type == models.GroupTypeGroup {
		p.Title = "Clan Leader"
	}
	return p
}
