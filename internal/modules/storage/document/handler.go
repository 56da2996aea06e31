package document

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/pkg/pagination"
	"github.com/syllabind/core/internal/pkg/response"
)

// Precomputer kicks off background insight generation for a fresh upload
// and returns the ids of the scheduled tasks.
type Precomputer interface {
	PrecomputeAsync(record *models.SyllabusModel) []string
}

// InsightCleaner removes every cached insight for a slug.
type InsightCleaner interface {
	ClearAll(slug string) (int, error)
}

type Handler struct {
	svc     *Service
	precomp Precomputer
	cache   InsightCleaner
}

func NewHandler(svc *Service, precomp Precomputer, cache InsightCleaner) *Handler {
	return &Handler{svc: svc, precomp: precomp, cache: cache}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/syllabi")

	g.GET("", h.list)
	g.POST("", h.upload)
	g.GET("/:slug", h.get)
	g.GET("/:slug/file", h.file)

	a := g.Group("", adminMW)
	a.DELETE("/:slug/insights", h.clearInsights)
	a.POST("/:slug/precompute", h.precompute)
}

// GET /syllabi?q=&page=&size=
func (h *Handler) list(c *gin.Context) {
	records, err := h.svc.List(c.Query("q"))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]syllabusResponse, len(records))
	for i := range records {
		out[i] = toResponse(&records[i])
	}
	page, pag := pagination.Slice(out, pagination.FromContext(c))
	response.Paged(c, page, pag)
}

// POST /syllabi — multipart upload: file + course metadata
func (h *Handler) upload(c *gin.Context) {
	var dto CreateSyllabusDTO
	if err := c.ShouldBind(&dto); err != nil {
		response.BadRequest(c, "course_code is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "a PDF file is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.BadRequest(c, "only PDF uploads are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()
	pdf, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	record, err := h.svc.Create(dto, pdf)
	if err != nil {
		switch {
		case errors.Is(err, ErrCourseCodeRequired), errors.Is(err, ErrEmptyUpload):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrDuplicateSlug):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}

	var taskIDs []string
	if h.precomp != nil {
		taskIDs = h.precomp.PrecomputeAsync(record)
	}
	response.Created(c, gin.H{
		"syllabus": toResponse(record),
		"task_ids": taskIDs,
	})
}

// GET /syllabi/:slug
func (h *Handler) get(c *gin.Context) {
	record, err := h.svc.Find(c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if record == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}
	response.OK(c, toResponse(record))
}

// GET /syllabi/:slug/file — stored PDF, displayed inline
func (h *Handler) file(c *gin.Context) {
	record, err := h.svc.Find(c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if record == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}

	path := h.svc.PDFPath(record)
	if _, err := os.Stat(path); err != nil {
		response.NotFoundMsg(c, "stored PDF is missing")
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+record.Filename+`"`)
	c.File(path)
}

// DELETE /syllabi/:slug/insights — drop all cached insights for a slug
func (h *Handler) clearInsights(c *gin.Context) {
	record, err := h.svc.Find(c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if record == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}

	removed := 0
	if h.cache != nil {
		if removed, err = h.cache.ClearAll(record.Slug); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.OK(c, gin.H{"removed": removed})
}

// POST /syllabi/:slug/precompute — re-run background generation
func (h *Handler) precompute(c *gin.Context) {
	record, err := h.svc.Find(c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if record == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}

	var taskIDs []string
	if h.precomp != nil {
		taskIDs = h.precomp.PrecomputeAsync(record)
	}
	response.Accepted(c, gin.H{"task_ids": taskIDs})
}
