package ai

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/syllabind/core/internal/config"
	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/modules/storage/insightcache"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

type fakeClient struct {
	mu        sync.Mutex
	calls     int
	systems   []string
	prompts   []string
	providers []*appcfg.AIProvider
	reply     func(systemPrompt, prompt string) (string, error)
	block     chan struct{}
}

func (f *fakeClient) Complete(_ context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls++
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, prompt)
	f.providers = append(f.providers, provider)
	reply := f.reply
	f.mu.Unlock()

	if reply != nil {
		return reply(systemPrompt, prompt)
	}
	return "stub reply", nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct{ text string }

func (f fakeExtractor) Extract(string, int) string { return f.text }

func testAIConfig() appcfg.AIConfig {
	return appcfg.AIConfig{
		Providers: []appcfg.AIProvider{{
			ID:           "main",
			Name:         "main",
			Type:         "OpenAI",
			APIKey:       "sk-test",
			DefaultModel: "gpt-4o-mini",
			Enabled:      true,
		}},
		MaxSourceChars: 45000,
		Precompute:     true,
		WorkerLimit:    4,
	}
}

type testEnv struct {
	svc    *Service
	docs   *document.Service
	cache  *insightcache.Cache
	client *fakeClient
	record *models.SyllabusModel
}

func newTestEnv(t *testing.T, client *fakeClient, extractor TextExtractor) *testEnv {
	t.Helper()

	dir := t.TempDir()
	repo := document.NewJSONFileRepository(filepath.Join(dir, "index.json"))
	docs := document.NewService(repo, filepath.Join(dir, "uploads"))
	cache := insightcache.New(filepath.Join(dir, "insights"))

	svc := NewService(testAIConfig(), docs, cache, extractor, taskqueue.NewService(), WithModelClient(client))

	record, err := docs.Create(document.CreateSyllabusDTO{CourseCode: "CS 101", Title: "Intro"}, []byte("%PDF-1.4 stub"))
	require.NoError(t, err)

	return &testEnv{svc: svc, docs: docs, cache: cache, client: client, record: record}
}

func TestRecoverStructuredJSONFromFencedBlock(t *testing.T) {
	got := recoverStructuredJSON("prefix ```json\n{\"a\":1}\n``` suffix")
	assert.Equal(t, "{\n  \"a\": 1\n}", got)
}

func TestRecoverStructuredJSONLeadingFence(t *testing.T) {
	got := recoverStructuredJSON("```json\n{\"b\": 2, \"a\": 1}\n```")
	// Keys come back sorted, so the output is stable across runs.
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}", got)
}

func TestRecoverStructuredJSONNoBraces(t *testing.T) {
	raw := "  the model wrote prose instead  "
	assert.Equal(t, "the model wrote prose instead", recoverStructuredJSON(raw))
}

func TestRecoverStructuredJSONInvalidPayload(t *testing.T) {
	raw := "{not valid json}"
	assert.Equal(t, raw, recoverStructuredJSON(raw))
}

func TestRecoverStructuredJSONKeepsNonASCII(t *testing.T) {
	got := recoverStructuredJSON(`{"note":"héllo wörld"}`)
	assert.Contains(t, got, "héllo wörld")
	assert.NotContains(t, got, `\u`)
}

func TestGenerateUnknownKey(t *testing.T) {
	env := newTestEnv(t, &fakeClient{}, fakeExtractor{text: "content"})

	_, err := env.svc.Generate(context.Background(), "sentiment", "text")
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestGenerateEmptyTextSkipsModel(t *testing.T) {
	client := &fakeClient{}
	env := newTestEnv(t, client, fakeExtractor{})

	got, err := env.svc.Generate(context.Background(), KeyTLDR, "   \n\t ")
	require.NoError(t, err)
	assert.Equal(t, EmptySourceFallback, got)
	assert.Zero(t, client.callCount())
}

func TestGenerateNoProvider(t *testing.T) {
	env := newTestEnv(t, &fakeClient{}, fakeExtractor{text: "content"})
	env.svc.cfg.Providers = nil

	_, err := env.svc.Generate(context.Background(), KeyTLDR, "text")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenerateTextModeTrims(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "\n- light reading\n- one exam\n", nil
	}}
	env := newTestEnv(t, client, fakeExtractor{})

	got, err := env.svc.Generate(context.Background(), KeyTLDR, "syllabus text")
	require.NoError(t, err)
	assert.Equal(t, "- light reading\n- one exam", got)
}

func TestGenerateStructuredModeNormalizes(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "Here you go: ```json\n{\"why_heavy\":\"midterms\",\"heavy_weeks\":[5]}\n```", nil
	}}
	env := newTestEnv(t, client, fakeExtractor{})

	got, err := env.svc.Generate(context.Background(), KeyWorkload, "syllabus text")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"heavy_weeks\": [\n    5\n  ],\n  \"why_heavy\": \"midterms\"\n}", got)
}

func TestGeneratePromptCarriesSourceText(t *testing.T) {
	client := &fakeClient{}
	env := newTestEnv(t, client, fakeExtractor{})

	_, err := env.svc.Generate(context.Background(), KeyGrading, "grading is 60% homework")
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "<<<SYLLABUS\ngrading is 60% homework\nSYLLABUS")
	assert.Contains(t, client.systems[0], "grading_components")
	assert.Contains(t, client.systems[0], "Extract grading breakdown")
}

func TestGetOrGenerateCacheHit(t *testing.T) {
	client := &fakeClient{}
	env := newTestEnv(t, client, fakeExtractor{text: "content"})
	require.NoError(t, env.cache.Write(env.record.Slug, KeyTLDR, "cached bullets"))

	ins, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, ins.Source)
	assert.Equal(t, "cached bullets", ins.Content)
	assert.Equal(t, "TL;DR", ins.Title)
	assert.Zero(t, client.callCount())
}

func TestGetOrGenerateMissGeneratesAndCaches(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "fresh summary", nil
	}}
	env := newTestEnv(t, client, fakeExtractor{text: "extracted syllabus"})

	ins, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ins.Source)
	assert.Equal(t, "fresh summary", ins.Content)

	cached, err := env.cache.Read(env.record.Slug, KeyTLDR)
	require.NoError(t, err)
	assert.Equal(t, "fresh summary", cached)

	// The follow-up read is served from the cache without another call.
	again, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, again.Source)
	assert.Equal(t, 1, client.callCount())
}

func TestGetOrGenerateUnknownKey(t *testing.T) {
	env := newTestEnv(t, &fakeClient{}, fakeExtractor{})

	_, err := env.svc.GetOrGenerate(context.Background(), env.record, "vibes")
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestGetOrGenerateModelFailure(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "", errors.New("upstream exploded")
	}}
	env := newTestEnv(t, client, fakeExtractor{text: "content"})

	_, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.False(t, env.cache.Exists(env.record.Slug, KeyTLDR))

	// The failed task is settled, so a retry runs a fresh call.
	client.reply = nil
	ins, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ins.Source)
}

func TestGetOrGenerateCollapsesConcurrentRequests(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	env := newTestEnv(t, client, fakeExtractor{text: "content"})

	type result struct {
		ins *Insight
		err error
	}
	first := make(chan result, 1)
	go func() {
		ins, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
		first <- result{ins, err}
	}()

	// Wait for the first request to own the in-flight task.
	require.Eventually(t, func() bool {
		task, ok := env.svc.tasks.Active(insightDedupKey(env.record.Slug, KeyTLDR))
		return ok && task.Status == taskqueue.StatusRunning
	}, time.Second, 5*time.Millisecond)

	second := make(chan result, 1)
	go func() {
		ins, err := env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
		second <- result{ins, err}
	}()

	close(client.block)

	for _, ch := range []chan result{first, second} {
		select {
		case r := <-ch:
			require.NoError(t, r.err)
			assert.Equal(t, SourceGenerated, r.ins.Source)
			assert.Equal(t, "stub reply", r.ins.Content)
		case <-time.After(2 * time.Second):
			t.Fatal("request did not finish")
		}
	}

	assert.Equal(t, 1, client.callCount())
}

func TestGetOrGenerateContextCancelledWhileWaiting(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	env := newTestEnv(t, client, fakeExtractor{text: "content"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.svc.GetOrGenerate(context.Background(), env.record, KeyTLDR)
	}()

	require.Eventually(t, func() bool {
		_, ok := env.svc.tasks.Active(insightDedupKey(env.record.Slug, KeyTLDR))
		return ok
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.svc.GetOrGenerate(ctx, env.record, KeyTLDR)
	assert.ErrorIs(t, err, context.Canceled)

	// Let the first request finish before the temp dir is torn down.
	close(client.block)
	<-done
}

func TestCatalogOrderAndLookup(t *testing.T) {
	keys := make([]string, 0, 4)
	for _, rt := range Catalog() {
		keys = append(keys, rt.Key)
	}
	assert.Equal(t, []string{KeyTLDR, KeyWorkload, KeyGrading, KeyPrereqs}, keys)

	rt, ok := RequestTypeByKey(KeyPrereqs)
	require.True(t, ok)
	assert.Equal(t, ModeStructured, rt.Mode)
	assert.NotEmpty(t, rt.Template)

	_, ok = RequestTypeByKey("unknown")
	assert.False(t, ok)
}
