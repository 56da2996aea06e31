package document

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/syllabind/core/internal/models"
	"go.uber.org/zap"
)

// Service owns the syllabus index and the stored PDF files.
type Service struct {
	repo       Repository
	uploadsDir string
	logger     *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, uploadsDir string, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, uploadsDir: uploadsDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assigns a slug, stores the PDF under uploads and appends the
// record to the index. The slug is immutable once assigned.
func (s *Service) Create(dto CreateSyllabusDTO, pdf []byte) (*models.SyllabusModel, error) {
	if strings.TrimSpace(dto.CourseCode) == "" {
		return nil, ErrCourseCodeRequired
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyUpload
	}

	records, err := s.repo.All()
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(records))
	for _, record := range records {
		taken[record.Slug] = true
	}

	base := DeriveSlug(dto.CourseCode, dto.Instructor, dto.Quarter, dto.Year)
	slug := nextAvailableSlug(base, taken)

	now := time.Now()
	record := &models.SyllabusModel{
		Base: models.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Slug:       slug,
		Filename:   slug + ".pdf",
		CourseCode: strings.TrimSpace(dto.CourseCode),
		Title:      strings.TrimSpace(dto.Title),
		Instructor: strings.TrimSpace(dto.Instructor),
		Quarter:    strings.TrimSpace(dto.Quarter),
		Year:       dto.Year,
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return nil, err
	}
	path := s.PDFPath(record)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return nil, err
	}

	if err := s.repo.Append(record); err != nil {
		// Leave no orphan file behind when the index write loses a race.
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("syllabus stored",
		zap.String("slug", record.Slug),
		zap.String("course", record.CourseCode),
		zap.Int("bytes", len(pdf)))
	return record, nil
}

// Find returns the record for slug, or nil when absent.
func (s *Service) Find(slug string) (*models.SyllabusModel, error) {
	return s.repo.Find(strings.TrimSpace(slug))
}

// List returns records matching query (course code, title, instructor,
// quarter, year or slug substring, case-insensitive), newest upload first,
// pruning stale records first.
func (s *Service) List(query string) ([]models.SyllabusModel, error) {
	if _, err := s.PruneMissing(); err != nil {
		s.logger.Warn("index prune failed", zap.Error(err))
	}

	records, err := s.repo.All()
	if err != nil {
		return nil, err
	}

	// The repo hands back insertion order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records, nil
	}

	matched := make([]models.SyllabusModel, 0, len(records))
	for _, record := range records {
		fields := []string{
			record.Slug, record.CourseCode, record.Title, record.Instructor, record.Quarter,
		}
		if record.Year != 0 {
			fields = append(fields, strconv.Itoa(record.Year))
		}
		haystack := strings.ToLower(strings.Join(fields, " "))
		if strings.Contains(haystack, needle) {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// PruneMissing drops every record whose backing PDF no longer exists and
// reports how many were removed. Nothing is rewritten when all files are
// present.
func (s *Service) PruneMissing() (int, error) {
	records, err := s.repo.All()
	if err != nil {
		return 0, err
	}

	var missing []string
	for _, record := range records {
		if _, err := os.Stat(s.PDFPath(&record)); os.IsNotExist(err) {
			missing = append(missing, record.Slug)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := s.repo.Remove(missing); err != nil {
		return 0, err
	}
	s.logger.Info("pruned syllabi with missing files", zap.Strings("slugs", missing))
	return len(missing), nil
}

// PDFPath resolves the absolute path of a record's stored PDF.
func (s *Service) PDFPath(record *models.SyllabusModel) string {
	return filepath.Join(s.uploadsDir, record.Filename)
}

// Ping reports whether the index backend is reachable.
func (s *Service) Ping() error {
	_, err := s.repo.All()
	return err
}

// UploadsDir exposes the storage directory for health checks.
func (s *Service) UploadsDir() string {
	return s.uploadsDir
}
