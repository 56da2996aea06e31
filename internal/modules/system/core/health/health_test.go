package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/pkg/cron"
	"github.com/syllabind/core/internal/pkg/nativelog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testFixture struct {
	router    *gin.Engine
	docs      *document.Service
	sched     *cron.Scheduler
	indexPath string
	logDir    string
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0o755))
	t.Setenv(nativelog.EnvLogDir, logDir)

	indexPath := filepath.Join(dir, "index.json")
	docs := document.NewService(document.NewJSONFileRepository(indexPath), filepath.Join(dir, "uploads"))
	sched := cron.New()

	r := gin.New()
	NewHandler(docs, sched).RegisterRoutes(r.Group("/api/v2"), func(c *gin.Context) { c.Next() })

	return &testFixture{router: r, docs: docs, sched: sched, indexPath: indexPath, logDir: logDir}
}

func TestHealthCheckOK(t *testing.T) {
	fx := newFixture(t)

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Index   bool   `json:"index"`
		Uploads bool   `json:"uploads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Index)
	assert.True(t, resp.Uploads)
}

func TestHealthCheckDegradedIndex(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(fx.indexPath, []byte("{corrupt"), 0o644))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), `"index":false`)
}

func TestCronEndpoints(t *testing.T) {
	fx := newFixture(t)
	ran := make(chan struct{}, 1)
	fx.sched.Register(cron.Job{
		Name:        "prune-index",
		Description: "drop index records whose PDFs are gone",
		Interval:    time.Hour,
		Fn: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/cron", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"prune-index"`)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/health/cron/run/prune-index", nil))
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	require.Eventually(t, func() bool {
		result, err := fx.sched.GetTask("prune-index")
		return err == nil && result.Status == cron.StatusFulfill
	}, 2*time.Second, 10*time.Millisecond)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/cron/task/prune-index", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fulfill"`)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/health/cron/run/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/cron/task/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLogs(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fx.logDir, "stdout_1-2-26.log"), []byte("older"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fx.logDir, "stdout_1-3-26.log"), []byte("newer line"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fx.logDir, "notes.txt"), []byte("skip"), 0o644))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(fx.logDir, "stdout_1-2-26.log"), old, old))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/log/list", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []logItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "stdout_1-3-26.log", resp.Data[0].Filename)
	assert.Equal(t, "stdout_1-2-26.log", resp.Data[1].Filename)
	assert.Equal(t, "10 B", resp.Data[0].Size)
}

func TestReadLog(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fx.logDir, "stdout_1-2-26.log"), []byte("line one\n"), 0o644))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/log?filename=stdout_1-2-26.log", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "line one\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/log", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/health/log?filename=missing.log", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLogRemovesOldFile(t *testing.T) {
	fx := newFixture(t)
	target := filepath.Join(fx.logDir, "stdout_1-2-26.log")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/health/log?filename=stdout_1-2-26.log", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NoFileExists(t, target)
}

func TestDeleteLogTruncatesTodayFile(t *testing.T) {
	fx := newFixture(t)
	today := nativelog.TodayFilename(time.Now())
	target := filepath.Join(fx.logDir, today)
	require.NoError(t, os.WriteFile(target, []byte("active log"), 0o644))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/health/log?filename="+today, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDeleteLogRejectsBadNames(t *testing.T) {
	fx := newFixture(t)

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/health/log?filename=notes.txt", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/health/log", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// streamRecorder guards the recorder body so the test can poll it while
// the handler goroutine is still writing frames.
type streamRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{rec: httptest.NewRecorder()}
}

func (w *streamRecorder) Header() http.Header { return w.rec.Header() }

func (w *streamRecorder) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rec.Write(p)
}

func (w *streamRecorder) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rec.WriteHeader(code)
}

func (w *streamRecorder) Flush() {}

func (w *streamRecorder) body() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rec.Body.String()
}

func TestStreamLogDeliversPublishedLines(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v2/health/log/stream", nil).WithContext(ctx)

	w := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fx.router.ServeHTTP(w, req)
	}()

	// The subscription only exists once the handler runs, so keep
	// publishing until a frame lands in the body.
	require.Eventually(t, func() bool {
		nativelog.Publish("stream probe line")
		return strings.Contains(w.body(), "stream probe line")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop after client disconnect")
	}

	assert.Contains(t, w.body(), "event:log")
	assert.Equal(t, "text/event-stream", w.rec.Header().Get("Content-Type"))
}
