// Package app wires configuration, the syllabus index, the insight
// pipeline and the HTTP surface into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syllabind/core/internal/config"
	"github.com/syllabind/core/internal/database"
	"github.com/syllabind/core/internal/middleware"
	"github.com/syllabind/core/internal/modules/processing/ai"
	"github.com/syllabind/core/internal/modules/processing/extract"
	"github.com/syllabind/core/internal/modules/storage/archive"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/modules/storage/insightcache"
	"github.com/syllabind/core/internal/pkg/bark"
	pkgcron "github.com/syllabind/core/internal/pkg/cron"
	"github.com/syllabind/core/internal/pkg/taskqueue"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: runtime settings → index backend →
// services → routes. The cron scheduler starts immediately and runs until
// Shutdown.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if _, ok := cfg.AI.FirstEnabledProvider(); !ok {
		return nil, errors.New("no enabled ai provider with an api key; configure at least one under ai.providers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataLayout(); err != nil {
		return nil, fmt.Errorf("prepare data layout: %w", err)
	}

	repo, err := openIndexRepository(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	barkSvc := bark.New(func() (key, serverURL, siteTitle string) {
		return cfg.Notify.BarkKey, cfg.Notify.BarkServer, cfg.Notify.SiteTitle
	})
	router.Use(middleware.OptionalAdmin(cfg.AdminToken()))
	router.Use(middleware.RateLimit(barkSvc))
	router.Use(middleware.Idempotence())

	docs := document.NewService(repo, cfg.UploadsDir(), document.WithLogger(logger))
	cache := insightcache.New(cfg.InsightsDir())
	extractor := extract.NewService(extract.WithLogger(logger))
	tasks := taskqueue.NewService()
	aiSvc := ai.NewService(cfg.AI, docs, cache, extractor, tasks,
		ai.WithLogger(logger), ai.WithBark(barkSvc))
	archiveSvc := archive.NewService(cfg.Archive, archive.Layout{
		IndexPath:   cfg.IndexPath(),
		UploadsDir:  cfg.UploadsDir(),
		InsightsDir: cfg.InsightsDir(),
		ArchiveDir:  cfg.ArchiveDir(),
	}, archive.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	sched := pkgcron.New()
	registerCronJobs(sched, docs, archiveSvc, barkSvc, cfg, logger)
	go sched.Start(ctx)

	app := &App{cfg: cfg, router: router, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(docs, cache, aiSvc, archiveSvc)

	return app, nil
}

// openIndexRepository picks the index backend. jsonfile needs no database;
// sqlite and mysql go through GORM with auto-migration.
func openIndexRepository(cfg *config.AppConfig) (document.Repository, error) {
	if cfg.Index.Driver == config.IndexDriverJSONFile {
		return document.NewJSONFileRepository(cfg.IndexPath()), nil
	}
	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("index database: %w", err)
	}
	return document.NewGormRepository(db), nil
}

func buildCORSConfig(cfg *config.AppConfig) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	return corsConfig
}

// extractOriginHost returns the "host[:port]" portion of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return strings.HasSuffix(host, suffix)
	}
	if strings.HasSuffix(pattern, ":*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(host, prefix)
	}
	return false
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the cron scheduler and other background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
