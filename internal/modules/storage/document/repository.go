package document

import "github.com/syllabind/core/internal/models"

// Repository persists syllabus records. Implementations must enforce slug
// uniqueness and preserve insertion order in All.
type Repository interface {
	// Append adds a record. ErrDuplicateSlug when the slug is taken.
	Append(record *models.SyllabusModel) error
	// Find returns the record for slug, or nil when absent.
	Find(slug string) (*models.SyllabusModel, error)
	// All returns every record in insertion order.
	All() ([]models.SyllabusModel, error)
	// Remove deletes the records with the given slugs. Unknown slugs are
	// ignored.
	Remove(slugs []string) error
}
