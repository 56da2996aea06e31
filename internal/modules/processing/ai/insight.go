package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

// TaskTypeInsight tags one generation call for one (slug, key) pair.
const TaskTypeInsight = "insight:generate"

func insightDedupKey(slug, key string) string {
	return slug + ":" + key
}

// Generate runs one model call for a request type over already extracted
// text. Empty text short-circuits to the fallback message without touching
// the model. Structured responses are normalized before they are returned.
func (s *Service) Generate(ctx context.Context, key, sourceText string) (string, error) {
	rt, ok := RequestTypeByKey(key)
	if !ok {
		return "", ErrUnknownRequestType
	}

	if strings.TrimSpace(sourceText) == "" {
		return EmptySourceFallback, nil
	}

	provider := selectProvider(s.cfg, s.cfg.InsightModel)
	if provider == nil {
		return "", ErrNoProvider
	}

	systemPrompt, prompt := buildInsightPrompt(rt, sourceText)
	raw, err := s.client.Complete(ctx, provider, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	if rt.Mode == ModeStructured {
		return recoverStructuredJSON(raw), nil
	}
	return strings.TrimSpace(raw), nil
}

// GetOrGenerate serves an insight from the cache, or generates it on demand
// with a write-through. Concurrent requests for the same entry collapse onto
// a single model call via the task registry.
func (s *Service) GetOrGenerate(ctx context.Context, record *models.SyllabusModel, key string) (*Insight, error) {
	rt, ok := RequestTypeByKey(key)
	if !ok {
		return nil, ErrUnknownRequestType
	}

	if text, err := s.cache.Read(record.Slug, rt.Key); err == nil {
		return s.newInsight(record.Slug, rt, SourceCache, text), nil
	}

	// Precompute may still be running for this entry; piggyback on it
	// instead of firing a duplicate model call.
	if done, ok, err := s.awaitActive(ctx, record.Slug, rt.Key); ok {
		if err != nil {
			return nil, err
		}
		if done != nil {
			return done, nil
		}
		// The in-flight task was cancelled; fall through to a fresh attempt.
	}

	task, created := s.tasks.Enqueue(taskqueue.Spec{
		Type:     TaskTypeInsight,
		Payload:  map[string]string{"slug": record.Slug, "key": rt.Key},
		DedupKey: insightDedupKey(record.Slug, rt.Key),
		GroupKey: record.Slug,
	})
	if !created {
		if done, ok, err := s.awaitActive(ctx, record.Slug, rt.Key); ok {
			if err != nil {
				return nil, err
			}
			if done != nil {
				return done, nil
			}
		}
		// The racing task finished between Enqueue and the wait.
		if text, err := s.cache.Read(record.Slug, rt.Key); err == nil {
			return s.newInsight(record.Slug, rt, SourceGenerated, text), nil
		}
		return nil, errors.New("insight generation did not produce a result")
	}

	s.tasks.SetRunning(task.ID)
	sourceText := s.extractor.Extract(s.docs.PDFPath(record), s.cfg.MaxSourceChars)
	content, err := s.Generate(ctx, rt.Key, sourceText)
	if err != nil {
		s.tasks.Fail(task.ID, err.Error())
		return nil, err
	}

	if err := s.cache.Write(record.Slug, rt.Key, content); err != nil {
		s.logger.Warn("insight cache write failed",
			zap.String("slug", record.Slug),
			zap.String("key", rt.Key),
			zap.Error(err))
	}
	s.tasks.Complete(task.ID, content)

	return s.newInsight(record.Slug, rt, SourceGenerated, content), nil
}

// awaitActive blocks on the in-flight task for a cache entry, if one exists.
// ok reports whether there was a task to wait on. On completion the fresh
// cache entry is returned; a failed task surfaces its error; a cancelled
// task yields (nil, true, nil) so the caller can retry.
func (s *Service) awaitActive(ctx context.Context, slug, key string) (*Insight, bool, error) {
	ch, ok := s.tasks.WaitActive(insightDedupKey(slug, key))
	if !ok {
		return nil, false, nil
	}

	select {
	case <-ctx.Done():
		return nil, true, ctx.Err()
	case done := <-ch:
		switch done.Status {
		case taskqueue.StatusCompleted:
			if text, err := s.cache.Read(slug, key); err == nil {
				rt, _ := RequestTypeByKey(key)
				return s.newInsight(slug, rt, SourceGenerated, text), true, nil
			}
			return nil, true, errors.New("insight finished but cache entry is missing")
		case taskqueue.StatusFailed:
			msg := done.Error
			if msg == "" {
				msg = "insight generation failed"
			}
			return nil, true, errors.New(msg)
		default:
			return nil, true, nil
		}
	}
}

func (s *Service) newInsight(slug string, rt RequestType, source, content string) *Insight {
	return &Insight{
		Slug:    slug,
		Key:     rt.Key,
		Title:   rt.Title,
		Mode:    rt.Mode,
		Source:  source,
		Content: content,
	}
}

// recoverStructuredJSON salvages a JSON document from a model response that
// may be wrapped in markdown fences or prose. On success the payload is
// re-serialized in a stable pretty-printed form; otherwise the trimmed raw
// text is returned so the caller always has something to store and display.
func recoverStructuredJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)

	cleaned := strings.TrimPrefix(trimmed, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return trimmed
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return trimmed
	}

	normalized := canonicalJSON(payload)
	if normalized == "" {
		return trimmed
	}
	return normalized
}

// canonicalJSON pretty-prints with two-space indentation, sorted object keys
// and unescaped non-ASCII text.
func canonicalJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
