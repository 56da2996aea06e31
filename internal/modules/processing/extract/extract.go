package extract

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Service turns stored syllabus PDFs into bounded plain text.
type Service struct {
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(opts ...ServiceOption) *Service {
	s := &Service{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract reads up to maxChars characters of text from the PDF at path.
// Pages are concatenated with a blank line between them and reading stops
// once the budget is reached. Extraction is best-effort: a corrupt, scanned
// or otherwise unreadable file yields an empty string, never an error.
func (s *Service) Extract(path string, maxChars int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("pdf extraction panicked", zap.String("path", path), zap.Any("panic", r))
			text = ""
		}
	}()

	if maxChars <= 0 {
		return ""
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("pdf unreadable", zap.String("path", path), zap.Error(err))
		return ""
	}

	text, err = readPDF(content, maxChars)
	if err != nil {
		s.logger.Warn("pdf extraction failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return text
}

func readPDF(content []byte, maxChars int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	acc := newBoundedText(maxChars)
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		if !acc.add(pageText) {
			break
		}
	}
	return acc.text(), nil
}

// boundedText accumulates page texts until the character budget is reached.
type boundedText struct {
	parts []string
	total int
	max   int
}

func newBoundedText(max int) *boundedText {
	return &boundedText{max: max}
}

// add appends one page worth of text and reports whether the accumulator
// still has budget left. Whitespace-only pages are skipped.
func (b *boundedText) add(part string) bool {
	if strings.TrimSpace(part) == "" {
		return b.total < b.max
	}
	b.parts = append(b.parts, part)
	b.total += utf8.RuneCountInString(part)
	return b.total < b.max
}

func (b *boundedText) text() string {
	return truncateRunes(strings.Join(b.parts, "\n\n"), b.max)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
