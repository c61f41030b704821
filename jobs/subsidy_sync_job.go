package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/services"
)

type SubsidySyncJob struct {
	SyncService *services.SyncService
	Catalog     *services.Gov24Client
}

func NewSubsidySyncJob(syncService *services.SyncService, catalog *services.Gov24Client) *SubsidySyncJob {
	return &SubsidySyncJob{SyncService: syncService, Catalog: catalog}
}

func (j *SubsidySyncJob) Run() {
	logrus.Info("Starting Subsidy Sync Job")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	stats, err := j.SyncService.Run(ctx)
	if err != nil {
		if errors.Is(err, services.ErrSyncAlreadyRunning) {
			logrus.Warn("Skipping scheduled sync: a run is already in progress")
			return
		}
		logrus.Errorf("Failed to run Subsidy Sync Job: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"total":    stats.Total,
		"new":      stats.New,
		"updated":  stats.Updated,
		"skipped":  stats.Skipped,
		"deleted":  stats.Deleted,
		"duration": stats.Duration,
	}).Info("Subsidy Sync Job completed")

	j.SyncService.Metrics().LogSummary()
	if j.Catalog != nil {
		j.Catalog.Metrics().LogHTTPSummary()
	}
}
