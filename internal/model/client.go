// internal/model/client.go
package model

import (
	"sort"
	"strings"
	"time"
)

type Client struct {
	ID         string     `db:"id" json:"id"`
	CoachID    string     `db:"coach_id" json:"coach_id"`
	Name       string     `db:"name" json:"name"`
	Phone      string     `db:"phone_number" json:"phone_number"`
	Categories []string   `db:"categories" json:"categories"`
	Timezone   string     `db:"timezone" json:"timezone"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// FirstName is the first whitespace-separated word of Name.
func (c Client) FirstName() string {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HasCategory reports whether the client is tagged with name (case-insensitive).
func (c Client) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, name) {
			return true
		}
	}
	return false
}

// NormalizeCategories trims, drops empties and duplicates, and sorts the tags.
func NormalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type Category struct {
	ID      int    `db:"id" json:"id"`
	CoachID string `db:"coach_id" json:"coach_id"`
	Name    string `db:"name" json:"name"`
}
