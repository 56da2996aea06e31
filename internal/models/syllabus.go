package models

// SyllabusModel is one uploaded course syllabus. Records are append-only:
// they are created at upload time and only ever removed when the backing
// PDF disappears from disk.
type SyllabusModel struct {
	Base
	Slug       string `json:"slug"        gorm:"uniqueIndex;not null"`
	Filename   string `json:"filename"    gorm:"not null"`
	CourseCode string `json:"course_code" gorm:"not null"`
	Title      string `json:"title"`
	Instructor string `json:"instructor"`
	Quarter    string `json:"quarter"`
	Year       int    `json:"year"`
}

func (SyllabusModel) TableName() string { return "syllabi" }

// Label returns the human-readable name shown in listings.
func (s SyllabusModel) Label() string {
	if s.Title != "" {
		return s.CourseCode + " · " + s.Title
	}
	return s.CourseCode
}
