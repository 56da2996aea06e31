package ai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syllabind/core/internal/modules/processing/markdown"
	"github.com/syllabind/core/internal/pkg/pagination"
	"github.com/syllabind/core/internal/pkg/response"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	rg.GET("/insights/:slug/:key", h.getInsight)
	rg.GET("/compare/:a/:b", h.compare)

	tasks := rg.Group("/tasks", adminMW)
	tasks.GET("", h.listTasks)
	tasks.GET("/:id", h.getTask)
	tasks.DELETE("/:id", h.cancelTask)
}

type insightResponse struct {
	Slug    string                 `json:"slug"`
	Key     string                 `json:"key"`
	Title   string                 `json:"title"`
	Mode    RequestMode            `json:"mode"`
	Source  string                 `json:"source"`
	Content string                 `json:"content"`
	HTML    string                 `json:"html"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type compareResponse struct {
	SlugA    string `json:"slug_a"`
	SlugB    string `json:"slug_b"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// GET /insights/:slug/:key
func (h *Handler) getInsight(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if _, ok := RequestTypeByKey(key); !ok {
		response.BadRequest(c, "unknown insight type: "+key)
		return
	}

	record, err := h.svc.docs.Find(c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if record == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}

	ins, err := h.svc.GetOrGenerate(c.Request.Context(), record, key)
	if err != nil {
		if errors.Is(err, ErrNoProvider) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.BadGateway(c, err)
		return
	}

	resp := insightResponse{
		Slug:    ins.Slug,
		Key:     ins.Key,
		Title:   ins.Title,
		Mode:    ins.Mode,
		Source:  ins.Source,
		Content: ins.Content,
		HTML:    string(markdown.RenderInsightBody(ins.Key, ins.Content)),
	}
	if ins.Mode == ModeStructured {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(ins.Content), &data); err == nil {
			resp.Data = data
		}
	}
	response.OK(c, resp)
}

// GET /compare/:a/:b
func (h *Handler) compare(c *gin.Context) {
	a, err := h.svc.docs.Find(c.Param("a"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	b, err := h.svc.docs.Find(c.Param("b"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if a == nil || b == nil {
		response.NotFoundMsg(c, "syllabus not found")
		return
	}

	md, err := h.svc.Compare(c.Request.Context(), a, b)
	if err != nil {
		if errors.Is(err, ErrNoProvider) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.BadGateway(c, err)
		return
	}

	response.OK(c, compareResponse{
		SlugA:    a.Slug,
		SlugB:    b.Slug,
		Markdown: md,
		HTML:     string(markdown.RenderMarkdown(md)),
	})
}

// GET /tasks?group=&status=  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	group := strings.TrimSpace(c.Query("group"))
	status := taskqueue.Status(strings.TrimSpace(c.Query("status")))

	all := h.svc.tasks.List(group, status)
	items, pag := pagination.Slice(all, pagination.FromContext(c))
	response.Paged(c, items, pag)
}

// GET /tasks/:id  [auth]
func (h *Handler) getTask(c *gin.Context) {
	task, ok := h.svc.tasks.Get(c.Param("id"))
	if !ok {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// DELETE /tasks/:id  [auth]. Only pending tasks can be cancelled.
func (h *Handler) cancelTask(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.svc.tasks.Get(id); !ok {
		response.NotFound(c)
		return
	}
	if err := h.svc.tasks.Cancel(id); err != nil {
		response.Conflict(c, err.Error())
		return
	}
	response.NoContent(c)
}
