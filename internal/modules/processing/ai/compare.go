package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/syllabind/core/internal/models"
)

// compareMissingEntry stands in for insights that have not been cached yet,
// so a comparison can still run on partial data.
const compareMissingEntry = "(not generated)"

// compareSectionKeys selects which cached insights feed the comparison.
var compareSectionKeys = []string{KeyTLDR, KeyWorkload, KeyGrading}

// Compare composes cached insights for two syllabi into one prompt and asks
// the model for a markdown recommendation. Results are not cached; every
// call generates afresh.
func (s *Service) Compare(ctx context.Context, a, b *models.SyllabusModel) (string, error) {
	provider := selectProvider(s.cfg, s.cfg.CompareModel)
	if provider == nil {
		return "", ErrNoProvider
	}

	systemPrompt, prompt := buildComparePrompt(
		a.CourseCode, s.compareDigest(a.Slug),
		b.CourseCode, s.compareDigest(b.Slug),
	)

	raw, err := s.client.Complete(ctx, provider, systemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// compareDigest stitches the cached insight sections for one syllabus into a
// labeled plain-text block.
func (s *Service) compareDigest(slug string) string {
	var b strings.Builder
	for _, key := range compareSectionKeys {
		text, err := s.cache.Read(slug, key)
		if err != nil {
			text = compareMissingEntry
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", strings.ToUpper(key), text)
	}
	return strings.TrimSpace(b.String())
}
