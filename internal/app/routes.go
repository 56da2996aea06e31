package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/syllabind/core/internal/middleware"
	"github.com/syllabind/core/internal/modules/processing/ai"
	"github.com/syllabind/core/internal/modules/site"
	"github.com/syllabind/core/internal/modules/storage/archive"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/modules/storage/insightcache"
	"github.com/syllabind/core/internal/modules/system/core/health"
	"github.com/syllabind/core/internal/pkg/response"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes(docs *document.Service, cache *insightcache.Cache, aiSvc *ai.Service, archiveSvc *archive.Service) {
	r := a.router
	adminMW := middleware.AdminAuth(a.cfg.AdminToken())

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "syllabind-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/syllabind/core",
		"issues":   "https://github.com/syllabind/core/issues",
	}

	// Versioned API
	api := r.Group(apiPrefix)

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	// Infrastructure
	health.NewHandler(docs, a.sched).RegisterRoutes(api, adminMW)

	// Syllabus storage and insights
	document.NewHandler(docs, aiSvc, cache).RegisterRoutes(api, adminMW)
	ai.NewHandler(aiSvc).RegisterRoutes(api, adminMW)

	// Archives
	archive.NewHandler(archiveSvc).RegisterRoutes(api, adminMW)

	// HTML pages at the root
	site.NewHandler(docs, aiSvc, cache,
		site.WithSiteTitle(a.cfg.Notify.SiteTitle),
		site.WithLogger(a.logger),
	).RegisterRoutes(r)
}
