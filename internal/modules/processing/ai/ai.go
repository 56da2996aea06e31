// Package ai generates syllabus insights through external language models
// and keeps them in the per-syllabus insight cache.
package ai

import (
	"go.uber.org/zap"

	appcfg "github.com/syllabind/core/internal/config"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/modules/storage/insightcache"
	"github.com/syllabind/core/internal/pkg/bark"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

// TextExtractor yields bounded plain text for a stored PDF.
type TextExtractor interface {
	Extract(path string, maxChars int) string
}

// Service orchestrates extraction, generation and caching of insights.
type Service struct {
	cfg       appcfg.AIConfig
	docs      *document.Service
	cache     *insightcache.Cache
	extractor TextExtractor
	tasks     *taskqueue.Service
	client    ModelClient
	bark      *bark.Service
	logger    *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelClient swaps the provider-backed client, mainly for tests.
func WithModelClient(c ModelClient) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBark enables push notifications for precompute failures.
func WithBark(b *bark.Service) ServiceOption {
	return func(s *Service) { s.bark = b }
}

func NewService(cfg appcfg.AIConfig, docs *document.Service, cache *insightcache.Cache, extractor TextExtractor, tasks *taskqueue.Service, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:       cfg,
		docs:      docs,
		cache:     cache,
		extractor: extractor,
		tasks:     tasks,
		client:    &providerClient{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
