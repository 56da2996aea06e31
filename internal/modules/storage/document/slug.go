package document

import (
	"regexp"
	"strconv"
	"strings"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveSlug builds the base slug from course metadata: lowercased, every
// run outside [a-z0-9] collapsed to a single dash, edges trimmed. An empty
// derivation falls back to "syllabus".
func DeriveSlug(courseCode, instructor, quarter string, year int) string {
	parts := []string{courseCode, instructor, quarter}
	if year != 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	joined := strings.ToLower(strings.Join(parts, " "))

	slug := slugSeparators.ReplaceAllString(joined, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "syllabus"
	}
	return slug
}

// nextAvailableSlug disambiguates against taken slugs by appending -2, -3, …
// until unused. Deterministic given the same taken set.
func nextAvailableSlug(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}
