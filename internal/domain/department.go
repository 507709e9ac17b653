package domain

import (
	"strings"
	"time"
)

// DepartmentUnspecified is the sentinel returned when no department can be
// resolved for a tag.
const DepartmentUnspecified = "unspecified"

// Department is one registry entry: a department and the set of device tags
// registered to it. Identity is the Key, derived from the display name by
// NormalizeKey, so lookups stay stable when the display name is re-cased or
// re-spaced. Tags are trimmed, non-empty, and deduplicated.
type Department struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether tag is a member of the department's registered set.
// Matching is exact and case-sensitive; callers trim before asking.
func (d Department) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeKey derives the registry key from a department display name:
// lowercased, trimmed, runs of whitespace collapsed to single hyphens.
// Returns "" for names that are empty or whitespace-only.
func NormalizeKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
