// Package health exposes liveness checks plus admin inspection of the
// scheduler and the native daily log files.
package health

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/pkg/cron"
	"github.com/syllabind/core/internal/pkg/nativelog"
	"github.com/syllabind/core/internal/pkg/response"
)

type Handler struct {
	docs  *document.Service
	sched *cron.Scheduler
}

func NewHandler(docs *document.Service, sched *cron.Scheduler) *Handler {
	return &Handler{docs: docs, sched: sched}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	rg.GET("/health", h.check)

	admin := rg.Group("/health", adminMW)

	cronGroup := admin.Group("/cron")
	cronGroup.GET("", h.listCronJobs)
	cronGroup.POST("/run/:name", h.runCronJob)
	cronGroup.GET("/task/:name", h.cronTask)

	logGroup := admin.Group("/log")
	logGroup.GET("/list", h.listLogs)
	logGroup.GET("", h.readLog)
	logGroup.GET("/stream", h.streamLog)
	logGroup.DELETE("", h.deleteLog)
}

// GET /health. Degraded when the index backend is unreachable or the
// uploads directory cannot be written.
func (h *Handler) check(c *gin.Context) {
	indexOK := h.docs.Ping() == nil
	uploadsOK := dirWritable(h.docs.UploadsDir())

	status := "ok"
	code := http.StatusOK
	if !indexOK || !uploadsOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"index":   indexOK,
		"uploads": uploadsOK,
	})
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

// GET /health/cron  [auth]
func (h *Handler) listCronJobs(c *gin.Context) {
	items := h.sched.List()
	byName := make(map[string]cron.ListItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	response.OK(c, byName)
}

// POST /health/cron/run/:name  [auth]
func (h *Handler) runCronJob(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

// GET /health/cron/task/:name  [auth]
func (h *Handler) cronTask(c *gin.Context) {
	result, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, result)
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// GET /health/log/list  [auth]
func (h *Handler) listLogs(c *gin.Context) {
	entries, err := os.ReadDir(nativelog.ResolveDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.OK(c, []logItem{})
			return
		}
		response.InternalError(c, err)
		return
	}

	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: entry.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Created > items[j].Created
	})
	response.OK(c, items)
}

// GET /health/log?filename=  [auth]
func (h *Handler) readLog(c *gin.Context) {
	filename, err := cleanLogFilename(c.Query("filename"))
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	data, err := os.ReadFile(filepath.Join(nativelog.ResolveDir(), filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.NotFoundMsg(c, "log file not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// GET /health/log/stream  [auth]
//
// Server-sent events. Every line the log writer appends is pushed to the
// subscriber until the client disconnects.
func (h *Handler) streamLog(c *gin.Context) {
	id, lines := nativelog.Subscribe(64)
	defer nativelog.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.SSEvent("log", line)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			c.Writer.Flush()
		}
	}
}

// DELETE /health/log?filename=  [auth]
func (h *Handler) deleteLog(c *gin.Context) {
	filename, err := cleanLogFilename(c.Query("filename"))
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	dir := nativelog.ResolveDir()
	target := filepath.Join(dir, filename)
	today := filepath.Join(dir, nativelog.TodayFilename(time.Now()))

	// Today's file is still being appended to; truncate it instead of
	// unlinking so the writer keeps a stable path.
	if samePath(target, today) {
		if err := os.WriteFile(target, []byte(""), 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
			response.InternalError(c, err)
			return
		}
	} else if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		response.InternalError(c, err)
		return
	}

	response.NoContent(c)
}

func cleanLogFilename(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || !strings.HasSuffix(name, ".log") {
		return "", fmt.Errorf("invalid log filename %q", raw)
	}
	return name, nil
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func samePath(a, b string) bool {
	left := filepath.Clean(a)
	right := filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(left, right)
	}
	return left == right
}
