package ai

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlerRouter(t *testing.T, client *fakeClient, extractor TextExtractor) (*gin.Engine, *testEnv) {
	t.Helper()
	env := newTestEnv(t, client, extractor)
	h := NewHandler(env.svc)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v2"), func(c *gin.Context) { c.Next() })
	return r, env
}

func TestGetInsightFromCache(t *testing.T) {
	client := &fakeClient{}
	r, env := newHandlerRouter(t, client, fakeExtractor{text: "unused"})
	require.NoError(t, env.cache.Write(env.record.Slug, KeyWorkload, `{"hours_per_week_estimate": "12"}`))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/workload", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp insightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, env.record.Slug, resp.Slug)
	assert.Equal(t, KeyWorkload, resp.Key)
	assert.Equal(t, SourceCache, resp.Source)
	assert.Equal(t, ModeStructured, resp.Mode)
	assert.Contains(t, resp.HTML, "panel-grid")
	assert.Contains(t, resp.HTML, "12 hours/week")
	require.NotNil(t, resp.Data)
	assert.Equal(t, "12", resp.Data["hours_per_week_estimate"])
	assert.Equal(t, 0, client.callCount())
}

func TestGetInsightGeneratesOnMiss(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "- covers sorting\n- light workload", nil
	}}
	r, env := newHandlerRouter(t, client, fakeExtractor{text: "CS 101 syllabus body"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/tldr", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp insightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SourceGenerated, resp.Source)
	assert.Contains(t, resp.Content, "covers sorting")
	assert.Contains(t, resp.HTML, "<li>")
	assert.Nil(t, resp.Data)

	// A second request is served from the cache without another model call.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/tldr", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SourceCache, resp.Source)
	assert.Equal(t, 1, client.callCount())
}

func TestGetInsightUnknownKey(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/vibes", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown insight type: vibes")
}

func TestGetInsightUnknownSlug(t *testing.T) {
	r, _ := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/missing/tldr", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "syllabus not found")
}

func TestGetInsightModelFailure(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "", errors.New("model exploded")
	}}
	r, env := newHandlerRouter(t, client, fakeExtractor{text: "body"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/tldr", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "model exploded")
}

func TestGetInsightNoProvider(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{text: "body"})
	env.svc.cfg.Providers = nil

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/insights/"+env.record.Slug+"/tldr", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCompareEndpoint(t *testing.T) {
	client := &fakeClient{reply: func(_, _ string) (string, error) {
		return "## Recommendation\n\nTake Class B.", nil
	}}
	r, env := newHandlerRouter(t, client, fakeExtractor{})

	other, err := env.docs.Create(document.CreateSyllabusDTO{CourseCode: "CS 240"}, []byte("%PDF-1.4 stub"))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/compare/"+env.record.Slug+"/"+other.Slug, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp compareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, env.record.Slug, resp.SlugA)
	assert.Equal(t, other.Slug, resp.SlugB)
	assert.Equal(t, "## Recommendation\n\nTake Class B.", resp.Markdown)
	assert.Contains(t, resp.HTML, "<h2")
}

func TestCompareEndpointMissingSyllabus(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/compare/"+env.record.Slug+"/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTasksPaged(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})

	for _, key := range []string{KeyTLDR, KeyWorkload} {
		_, created := env.svc.tasks.Enqueue(taskqueue.Spec{
			Type:     TaskTypeInsight,
			Payload:  map[string]string{"slug": env.record.Slug, "key": key},
			DedupKey: env.record.Slug + ":" + key,
			GroupKey: env.record.Slug,
		})
		require.True(t, created)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/tasks?group="+env.record.Slug, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data       []taskqueue.Task `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.EqualValues(t, 2, resp.Pagination.Total)
}

func TestListTasksFiltersByStatus(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})

	task, _ := env.svc.tasks.Enqueue(taskqueue.Spec{Type: TaskTypeInsight, DedupKey: "a"})
	env.svc.tasks.SetRunning(task.ID)
	env.svc.tasks.Complete(task.ID, "done")
	_, _ = env.svc.tasks.Enqueue(taskqueue.Spec{Type: TaskTypeInsight, DedupKey: "b"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/tasks?status=completed", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []taskqueue.Task `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, task.ID, resp.Data[0].ID)
}

func TestGetTask(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})
	task, _ := env.svc.tasks.Enqueue(taskqueue.Spec{Type: TaskTypeInsight})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/tasks/"+task.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got taskqueue.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, taskqueue.StatusPending, got.Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/tasks/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelTask(t *testing.T) {
	r, env := newHandlerRouter(t, &fakeClient{}, fakeExtractor{})
	task, _ := env.svc.tasks.Enqueue(taskqueue.Spec{Type: TaskTypeInsight})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/tasks/"+task.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	got, ok := env.svc.tasks.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, taskqueue.StatusCancelled, got.Status)

	// Cancelling a task that already reached a terminal state conflicts.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/tasks/"+task.ID, nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/tasks/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
