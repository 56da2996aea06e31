// Package site serves the HTML-facing side of the app: the syllabus
// listing, the upload form, per-syllabus detail pages with lazily
// fetched insight fragments, and the two-syllabus comparison page.
//
// Pages are plain server-rendered strings. The only script is the
// small tab loader on the detail page.
package site

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/modules/processing/ai"
	"github.com/syllabind/core/internal/modules/processing/markdown"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/modules/storage/insightcache"
)

const defaultSiteTitle = "Syllabind"

type Handler struct {
	docs     *document.Service
	insights *ai.Service
	cache    *insightcache.Cache
	title    string
	logger   *zap.Logger
}

type Option func(*Handler)

func WithSiteTitle(title string) Option {
	return func(h *Handler) {
		if strings.TrimSpace(title) != "" {
			h.title = strings.TrimSpace(title)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(docs *document.Service, insights *ai.Service, cache *insightcache.Cache, opts ...Option) *Handler {
	h := &Handler{
		docs:     docs,
		insights: insights,
		cache:    cache,
		title:    defaultSiteTitle,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the HTML routes at the root of the router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.index)                      // GET /
	r.GET("/upload", h.uploadForm)           // GET /upload
	r.POST("/upload", h.uploadSubmit)        // POST /upload
	r.GET("/syllabus/:slug", h.detail)       // GET /syllabus/:slug
	r.GET("/pdf/:slug", h.pdf)               // GET /pdf/:slug
	r.GET("/insight/:slug/:key", h.insight)  // GET /insight/:slug/:key
	r.POST("/cache/clear/:slug", h.clear)    // POST /cache/clear/:slug
	r.GET("/compare/:a/:b", h.compare)       // GET /compare/:a/:b
}

func (h *Handler) html(c *gin.Context, status int, pageTitle, body string) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(status, layout(h.title, pageTitle, body))
}

// fragment writes a bare HTML snippet, not a full page. The detail
// page swaps it into the insight panel.
func (h *Handler) fragment(c *gin.Context, status int, body string) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(status, body)
}

func (h *Handler) index(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	records, err := h.docs.List(query)
	if err != nil {
		h.logger.Error("list syllabi for index page", zap.Error(err))
		h.html(c, http.StatusInternalServerError, "Error",
			errorPageBody("Something broke", "The syllabus index could not be read."))
		return
	}
	h.html(c, http.StatusOK, "", indexPage(records, query))
}

func (h *Handler) uploadForm(c *gin.Context) {
	h.html(c, http.StatusOK, "Upload", uploadPage(""))
}

func (h *Handler) uploadSubmit(c *gin.Context) {
	dto := document.CreateSyllabusDTO{
		CourseCode: strings.TrimSpace(c.PostForm("course_code")),
		Title:      strings.TrimSpace(c.PostForm("title")),
		Instructor: strings.TrimSpace(c.PostForm("instructor")),
		Quarter:    strings.TrimSpace(c.PostForm("quarter")),
	}
	if year, err := strconv.Atoi(strings.TrimSpace(c.PostForm("year"))); err == nil {
		dto.Year = year
	}
	if dto.CourseCode == "" {
		h.html(c, http.StatusBadRequest, "Upload", uploadPage("Course code is required."))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.html(c, http.StatusBadRequest, "Upload", uploadPage("A PDF file is required."))
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		h.html(c, http.StatusBadRequest, "Upload", uploadPage("Only PDF uploads are accepted."))
		return
	}

	src, err := file.Open()
	if err != nil {
		h.html(c, http.StatusInternalServerError, "Upload", uploadPage("The upload could not be read."))
		return
	}
	pdf, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		h.html(c, http.StatusInternalServerError, "Upload", uploadPage("The upload could not be read."))
		return
	}

	record, err := h.docs.Create(dto, pdf)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrCourseCodeRequired):
			h.html(c, http.StatusBadRequest, "Upload", uploadPage("Course code is required."))
		case errors.Is(err, document.ErrEmptyUpload):
			h.html(c, http.StatusBadRequest, "Upload", uploadPage("The uploaded file is empty."))
		default:
			h.logger.Error("store uploaded syllabus", zap.Error(err))
			h.html(c, http.StatusInternalServerError, "Upload", uploadPage("The syllabus could not be stored."))
		}
		return
	}

	// Kick off background generation so the detail page's first tab
	// is usually a cache hit by the time anyone clicks it.
	h.insights.PrecomputeAsync(record)

	c.Redirect(http.StatusSeeOther, "/syllabus/"+record.Slug)
}

func (h *Handler) detail(c *gin.Context) {
	record, ok := h.findOrErrorPage(c, c.Param("slug"))
	if !ok {
		return
	}

	all, err := h.docs.List("")
	if err != nil {
		// The page is still useful without compare links.
		h.logger.Warn("list syllabi for compare links", zap.Error(err))
		all = nil
	}
	others := make([]models.SyllabusModel, 0, len(all))
	for i := range all {
		if all[i].Slug != record.Slug {
			others = append(others, all[i])
		}
	}

	h.html(c, http.StatusOK, record.CourseCode, detailPage(record, others, ai.Catalog()))
}

func (h *Handler) pdf(c *gin.Context) {
	record, ok := h.findOrErrorPage(c, c.Param("slug"))
	if !ok {
		return
	}

	path := h.docs.PDFPath(record)
	if _, err := os.Stat(path); err != nil {
		h.html(c, http.StatusNotFound, "Not found",
			errorPageBody("Not found", "The stored PDF is missing."))
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+record.Filename+`"`)
	c.File(path)
}

func (h *Handler) insight(c *gin.Context) {
	key := c.Param("key")
	if _, ok := ai.RequestTypeByKey(key); !ok {
		h.fragment(c, http.StatusBadRequest, fragmentMessage("Unknown insight type."))
		return
	}

	record, err := h.docs.Find(c.Param("slug"))
	if err != nil {
		h.logger.Error("find syllabus for insight fragment", zap.Error(err))
		h.fragment(c, http.StatusInternalServerError, fragmentMessage("The syllabus index could not be read."))
		return
	}
	if record == nil {
		h.fragment(c, http.StatusNotFound, fragmentMessage("Syllabus not found."))
		return
	}

	ins, err := h.insights.GetOrGenerate(c.Request.Context(), record, key)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNoProvider):
			h.fragment(c, http.StatusServiceUnavailable, fragmentMessage("No AI provider is configured."))
		default:
			h.logger.Warn("insight generation failed",
				zap.String("slug", record.Slug),
				zap.String("key", key),
				zap.Error(err))
			h.fragment(c, http.StatusBadGateway, fragmentMessage("Generation failed: "+err.Error()))
		}
		return
	}

	h.fragment(c, http.StatusOK, insightFragment(ins))
}

func (h *Handler) clear(c *gin.Context) {
	record, ok := h.findOrErrorPage(c, c.Param("slug"))
	if !ok {
		return
	}

	removed, err := h.cache.ClearAll(record.Slug)
	if err != nil {
		h.logger.Error("clear insight cache", zap.String("slug", record.Slug), zap.Error(err))
		h.html(c, http.StatusInternalServerError, "Error",
			errorPageBody("Something broke", "The cached insights could not be removed."))
		return
	}
	h.logger.Info("insight cache cleared",
		zap.String("slug", record.Slug),
		zap.Int("removed", removed))

	c.Redirect(http.StatusSeeOther, "/syllabus/"+record.Slug)
}

func (h *Handler) compare(c *gin.Context) {
	a, ok := h.findOrErrorPage(c, c.Param("a"))
	if !ok {
		return
	}
	b, ok := h.findOrErrorPage(c, c.Param("b"))
	if !ok {
		return
	}

	verdict, err := h.insights.Compare(c.Request.Context(), a, b)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNoProvider):
			h.html(c, http.StatusServiceUnavailable, "Compare",
				errorPageBody("Compare unavailable", "No AI provider is configured."))
		default:
			h.logger.Warn("comparison failed",
				zap.String("slug_a", a.Slug),
				zap.String("slug_b", b.Slug),
				zap.Error(err))
			h.html(c, http.StatusBadGateway, "Compare",
				errorPageBody("Compare failed", "The comparison could not be generated: "+err.Error()))
		}
		return
	}

	h.html(c, http.StatusOK, a.CourseCode+" vs "+b.CourseCode,
		comparePageBody(a, b, markdown.RenderMarkdown(verdict)))
}

// findOrErrorPage resolves a slug and renders the shared error page on
// miss or index failure. It reports whether the caller should proceed.
func (h *Handler) findOrErrorPage(c *gin.Context, slug string) (*models.SyllabusModel, bool) {
	record, err := h.docs.Find(slug)
	if err != nil {
		h.logger.Error("find syllabus", zap.String("slug", slug), zap.Error(err))
		h.html(c, http.StatusInternalServerError, "Error",
			errorPageBody("Something broke", "The syllabus index could not be read."))
		return nil, false
	}
	if record == nil {
		h.html(c, http.StatusNotFound, "Not found",
			errorPageBody("Not found", "No syllabus lives at that address."))
		return nil, false
	}
	return record, true
}
