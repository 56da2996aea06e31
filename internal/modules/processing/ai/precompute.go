package ai

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

type precomputeJob struct {
	task taskqueue.Task
	rt   RequestType
}

// PrecomputeAsync schedules generation of every catalog insight for a fresh
// upload and returns the task IDs covering each request type. Entries that
// already have an in-flight task are not scheduled twice. The actual work
// runs in the background; the caller's response does not wait for it.
func (s *Service) PrecomputeAsync(record *models.SyllabusModel) []string {
	if record == nil || !s.cfg.Precompute {
		return nil
	}

	types := Catalog()
	ids := make([]string, 0, len(types))
	jobs := make([]precomputeJob, 0, len(types))
	for _, rt := range types {
		task, created := s.tasks.Enqueue(taskqueue.Spec{
			Type:     TaskTypeInsight,
			Payload:  map[string]string{"slug": record.Slug, "key": rt.Key},
			DedupKey: insightDedupKey(record.Slug, rt.Key),
			GroupKey: record.Slug,
		})
		ids = append(ids, task.ID)
		if created {
			jobs = append(jobs, precomputeJob{task: task, rt: rt})
		}
	}

	if len(jobs) > 0 {
		go s.runPrecompute(record, jobs)
	}
	return ids
}

// runPrecompute extracts the PDF text once, then fans the generation calls
// out over a bounded worker pool. One failed call never cancels its
// siblings; every job settles its own task.
func (s *Service) runPrecompute(record *models.SyllabusModel, jobs []precomputeJob) {
	text := s.extractor.Extract(s.docs.PDFPath(record), s.cfg.MaxSourceChars)

	if strings.TrimSpace(text) == "" {
		for _, j := range jobs {
			s.tasks.SetRunning(j.task.ID)
			if err := s.cache.Write(record.Slug, j.rt.Key, EmptySourceFallback); err != nil {
				s.tasks.Fail(j.task.ID, err.Error())
				continue
			}
			s.tasks.Complete(j.task.ID, EmptySourceFallback)
		}
		s.logger.Warn("precompute skipped, no extractable text", zap.String("slug", record.Slug))
		return
	}

	limit := s.cfg.WorkerLimit
	if limit > len(jobs) {
		limit = len(jobs)
	}
	if limit < 1 {
		limit = 1
	}

	var (
		mu       sync.Mutex
		failures []string
	)

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			s.tasks.SetRunning(j.task.ID)

			content, err := s.Generate(context.Background(), j.rt.Key, text)
			if err != nil {
				s.tasks.Fail(j.task.ID, err.Error())
				s.logger.Warn("insight generation failed",
					zap.String("slug", record.Slug),
					zap.String("key", j.rt.Key),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, j.rt.Key)
				mu.Unlock()
				return nil
			}

			if err := s.cache.Write(record.Slug, j.rt.Key, content); err != nil {
				s.tasks.Fail(j.task.ID, err.Error())
				mu.Lock()
				failures = append(failures, j.rt.Key)
				mu.Unlock()
				return nil
			}

			s.tasks.Complete(j.task.ID, content)
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 && s.bark != nil {
		s.bark.ThrottlePush("precompute:"+record.Slug,
			"Insight precompute failed",
			record.Slug+": "+strings.Join(failures, ", "))
	}

	s.logger.Info("insight precompute finished",
		zap.String("slug", record.Slug),
		zap.Int("generated", len(jobs)-len(failures)),
		zap.Int("failed", len(failures)))
}
