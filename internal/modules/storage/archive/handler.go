package archive

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/syllabind/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/archives", adminMW)

	g.GET("", h.list)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.POST("/upload-to-s3", h.uploadToS3)
	g.DELETE("/:filename", h.deleteOne)
}

// GET /archives  [auth]
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.svc.List())
}

// GET /archives/new  [auth]. Creates a snapshot and streams it back.
func (h *Handler) createAndDownload(c *gin.Context) {
	snap, err := h.svc.CreateSnapshot()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, snap.Filename))
	c.Data(http.StatusOK, "application/zip", snap.Data)
}

// GET /archives/:filename  [auth]
func (h *Handler) download(c *gin.Context) {
	filename, err := cleanFilename(c.Param("filename"))
	if err != nil {
		response.BadRequest(c, "invalid filename")
		return
	}

	data, err := h.svc.Read(filename)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

type s3UploadResult struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url"`
}

// POST /archives/upload-to-s3  [auth]
func (h *Handler) uploadToS3(c *gin.Context) {
	if !h.svc.cfg.S3.Enabled {
		response.UnprocessableEntity(c, "s3 upload is not configured")
		return
	}

	uploader, err := newS3Uploader(h.svc.cfg.S3)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	snap, err := h.svc.CreateSnapshot()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	key := renderObjectKey(h.svc.cfg.S3.PathTemplate, snap.Filename, snap.CreatedAt)
	url, err := uploader.Upload(c.Request.Context(), key, snap.Data, "application/zip")
	if err != nil {
		response.BadGateway(c, err)
		return
	}

	response.OK(c, s3UploadResult{Filename: snap.Filename, Key: key, URL: url})
}

// DELETE /archives/:filename  [auth]
func (h *Handler) deleteOne(c *gin.Context) {
	filename, err := cleanFilename(c.Param("filename"))
	if err != nil {
		response.BadRequest(c, "invalid filename")
		return
	}

	if err := h.svc.Delete(filename); err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
