package document

import (
	"errors"
	"time"

	"github.com/syllabind/core/internal/models"
)

// CreateSyllabusDTO carries the upload form fields. Only the course code
// is required; everything else is free-form display metadata.
type CreateSyllabusDTO struct {
	CourseCode string `form:"course_code" json:"course_code" binding:"required"`
	Title      string `form:"title"       json:"title"`
	Instructor string `form:"instructor"  json:"instructor"`
	Quarter    string `form:"quarter"     json:"quarter"`
	Year       int    `form:"year"        json:"year"`
}

type syllabusResponse struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Filename   string    `json:"filename"`
	CourseCode string    `json:"course_code"`
	Title      string    `json:"title"`
	Instructor string    `json:"instructor"`
	Quarter    string    `json:"quarter"`
	Year       int       `json:"year,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toResponse(record *models.SyllabusModel) syllabusResponse {
	return syllabusResponse{
		ID:         record.ID,
		Slug:       record.Slug,
		Filename:   record.Filename,
		CourseCode: record.CourseCode,
		Title:      record.Title,
		Instructor: record.Instructor,
		Quarter:    record.Quarter,
		Year:       record.Year,
		UploadedAt: record.CreatedAt,
	}
}

var (
	ErrCourseCodeRequired = errors.New("course_code is required")
	ErrDuplicateSlug      = errors.New("slug already exists")
	ErrEmptyUpload        = errors.New("uploaded file is empty")
)
