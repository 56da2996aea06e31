package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syllabind/core/internal/config"
	"github.com/syllabind/core/internal/modules/storage/archive"
	"github.com/syllabind/core/internal/modules/storage/document"
	"github.com/syllabind/core/internal/pkg/bark"
	pkgcron "github.com/syllabind/core/internal/pkg/cron"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, docs *document.Service, archiveSvc *archive.Service, barkSvc *bark.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "prune_missing_files",
		Description: "Drop index records whose stored PDF no longer exists",
		Interval:    6 * time.Hour,
		RunOnStart:  true,
		Fn: func(ctx context.Context) error {
			removed, err := docs.PruneMissing()
			if err != nil {
				cronLogger.Warn("index prune failed", zap.Error(err))
				return err
			}
			if removed > 0 {
				cronLogger.Info("pruned syllabi with missing PDFs", zap.Int("removed", removed))
			}
			return nil
		},
	})

	if !cfg.Archive.Enabled {
		return
	}

	description := "Zip the index, uploads and cached insights into a local archive"
	if cfg.Archive.S3.Enabled {
		description += " and upload it to S3"
	}
	sched.Register(pkgcron.Job{
		Name:        "auto_archive",
		Description: description,
		Interval:    time.Duration(cfg.Archive.IntervalHours) * time.Hour,
		Fn: func(ctx context.Context) error {
			if err := archiveSvc.Run(ctx); err != nil {
				cronLogger.Warn("archive run failed", zap.Error(err))
				barkSvc.ThrottlePush("auto_archive", "Syllabind archive failed", err.Error())
				return err
			}
			return nil
		},
	})
}
