package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

// ErrSyncAlreadyRunning is returned when a reconciliation run is
// triggered while another is still in flight.
var ErrSyncAlreadyRunning = errors.New("sync already in progress")

// SubsidyStore is the storage surface the sync engine needs. The
// concrete implementation is SubsidyService; tests substitute an
// in-memory fake.
type SubsidyStore interface {
	GetByServiceIDs(ctx context.Context, serviceIDs []string) (map[string]*models.Subsidy, error)
	InsertBatch(ctx context.Context, subsidies []*models.Subsidy) (int, error)
	Update(ctx context.Context, subsidy *models.Subsidy) error
	DeleteExpired(ctx context.Context, today time.Time) (int, error)
}

// SyncLogStore appends run audit entries.
type SyncLogStore interface {
	Append(ctx context.Context, log *models.SyncLog) error
}

// ListingInvalidator drops cached listing responses after a run
// mutates the catalog.
type ListingInvalidator interface {
	InvalidateSubsidies()
}

// SyncService reconciles the stored subsidy catalog against the
// upstream feed: paginate, normalize, classify, diff, persist, then
// sweep expired rows and append one audit entry.
type SyncService struct {
	catalog     ServiceCatalogClient
	subsidies   SubsidyStore
	syncLogs    SyncLogStore
	invalidator ListingInvalidator
	pageSize    int
	maxPages    int
	metrics     *shared.ServiceMetrics

	running int32
}

// NewSyncService wires a sync engine. invalidator may be nil when no
// read-path cache is in play (tests, one-shot tools).
func NewSyncService(catalog ServiceCatalogClient, subsidies SubsidyStore, syncLogs SyncLogStore, invalidator ListingInvalidator) *SyncService {
	config := shared.NewDefaultUnifiedConfiguration().Sync

	return &SyncService{
		catalog:     catalog,
		subsidies:   subsidies,
		syncLogs:    syncLogs,
		invalidator: invalidator,
		pageSize:    config.PageSize,
		maxPages:    config.MaxTotalPages,
		metrics:     shared.NewServiceMetrics("SyncService"),
	}
}

// SetPageSize overrides the per-page record count requested upstream.
func (s *SyncService) SetPageSize(pageSize int) {
	if pageSize > 0 {
		s.pageSize = pageSize
	}
}

// IsRunning reports whether a run is currently in flight.
func (s *SyncService) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Metrics exposes the engine's metrics tracker.
func (s *SyncService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Run executes one full reconciliation. Only one run may be in flight
// at a time; a concurrent trigger gets ErrSyncAlreadyRunning without
// touching storage or the audit log.
//
// A page fetch failure stops pagination but keeps the progress of
// earlier pages; the run is recorded as failed only when the failure
// happened before any page completed. Individual persistence failures
// are caught, counted, and summarized in the audit message instead of
// aborting the batch.
func (s *SyncService) Run(ctx context.Context) (*models.SyncStats, error) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return nil, ErrSyncAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	logger := logrus.WithField("component", "SyncService")
	logger.Info("Starting subsidy sync run")

	startTime := time.Now()
	today := TodayMidnight()

	stats := &models.SyncStats{}
	pagesProcessed := 0

	var fetchErr error
	var failureCount int
	var sampleErrors []error
	successOps := 0

	recordFailure := func(err error) {
		failureCount++
		if len(sampleErrors) < 3 {
			sampleErrors = append(sampleErrors, err)
		}
	}

	for page := 1; page <= s.maxPages; page++ {
		listPage, err := s.catalog.FetchServiceListPage(ctx, page, s.pageSize)
		if err != nil {
			fetchErr = err
			logger.WithError(err).WithField("page", page).Error("Page fetch failed, stopping pagination")
			break
		}

		if len(listPage.Records) == 0 {
			break
		}

		incoming, skippedExpired := s.normalizePage(listPage.Records, today)
		stats.Skipped += skippedExpired

		if len(incoming) == 0 {
			pagesProcessed++
			continue
		}

		serviceIDs := make([]string, 0, len(incoming))
		for _, subsidy := range incoming {
			serviceIDs = append(serviceIDs, subsidy.ServiceID)
		}

		existing, err := s.subsidies.GetByServiceIDs(ctx, serviceIDs)
		if err != nil {
			// Without the existing rows the page cannot be diffed;
			// a read failure here is systemic, so stop like a fetch
			// failure and keep prior progress.
			fetchErr = err
			recordFailure(err)
			logger.WithError(err).WithField("page", page).Error("Batch read failed, stopping pagination")
			break
		}

		var toCreate []*models.Subsidy
		var toUpdate []*models.Subsidy

		for _, subsidy := range incoming {
			current := existing[subsidy.ServiceID]
			switch {
			case current == nil:
				toCreate = append(toCreate, subsidy)
			case HasChanged(current, subsidy):
				toUpdate = append(toUpdate, subsidy)
			}
		}

		if len(toCreate) > 0 {
			inserted, err := s.subsidies.InsertBatch(ctx, toCreate)
			if err != nil {
				recordFailure(err)
				logger.WithError(err).WithField("page", page).Warn("Batch insert failed")
			} else {
				stats.New += inserted
				successOps += inserted
			}
		}

		if len(toUpdate) > 0 {
			updated := s.applyUpdates(ctx, toUpdate, recordFailure)
			stats.Updated += updated
			successOps += updated
		}

		pagesProcessed++

		logger.WithFields(logrus.Fields{
			"page":     page,
			"records":  len(listPage.Records),
			"created":  len(toCreate),
			"updated":  len(toUpdate),
			"expired":  skippedExpired,
		}).Debug("Processed catalog page")
	}

	// Storage-wide sweep: also retires rows that vanished from the
	// upstream feed while past their deadline.
	deleted, err := s.subsidies.DeleteExpired(ctx, today)
	if err != nil {
		recordFailure(err)
		logger.WithError(err).Warn("Expired sweep failed")
	} else {
		stats.Deleted = deleted
	}

	stats.Total = stats.New + stats.Updated
	stats.Duration = time.Since(startTime)

	status := models.SyncStatusSuccess
	if fetchErr != nil && pagesProcessed == 0 {
		status = models.SyncStatusFailed
	}

	message := s.buildRunMessage(stats, status, fetchErr, successOps, failureCount, sampleErrors)

	logEntry := &models.SyncLog{
		TotalCount:   stats.Total,
		NewCount:     stats.New,
		UpdatedCount: stats.Updated,
		Status:       status,
		Message:      message,
	}
	if err := s.syncLogs.Append(ctx, logEntry); err != nil {
		logger.WithError(err).Error("Failed to append sync log entry")
	}

	if s.invalidator != nil {
		// Fire-and-forget: stale cache entries expire on their own if
		// this fails.
		s.invalidator.InvalidateSubsidies()
	}

	s.metrics.RecordRequest(status == models.SyncStatusSuccess, stats.Duration)
	s.metrics.SetCustomMetric("last_run_new", int64(stats.New))
	s.metrics.SetCustomMetric("last_run_updated", int64(stats.Updated))
	s.metrics.SetCustomMetric("last_run_deleted", int64(stats.Deleted))

	logger.WithFields(logrus.Fields{
		"status":   status,
		"total":    stats.Total,
		"new":      stats.New,
		"updated":  stats.Updated,
		"skipped":  stats.Skipped,
		"deleted":  stats.Deleted,
		"duration": stats.Duration,
	}).Info("Subsidy sync run finished")

	if status == models.SyncStatusFailed {
		return stats, shared.WrapError(fetchErr, shared.ErrorCategoryUpstream, "SYNC_RUN_FAILED",
			"SyncService", "Run", true)
	}

	return stats, nil
}

// normalizePage maps raw records to canonical subsidies, dropping
// records with no service id and records that are already expired.
// Expired records are never written, even as updates to existing rows.
func (s *SyncService) normalizePage(records []models.RawServiceRecord, today time.Time) ([]*models.Subsidy, int) {
	var incoming []*models.Subsidy
	skippedExpired := 0

	for _, record := range records {
		subsidy := TransformServiceRecord(record)
		if subsidy == nil {
			continue
		}

		if IsExpired(subsidy.EndDate, today) {
			skippedExpired++
			continue
		}

		incoming = append(incoming, subsidy)
	}

	return incoming, skippedExpired
}

// applyUpdates persists a page's updates concurrently. Safe because
// service ids are unique within a page, so no two updates target the
// same row.
func (s *SyncService) applyUpdates(ctx context.Context, toUpdate []*models.Subsidy, recordFailure func(error)) int {
	var waitGroup sync.WaitGroup
	var mutex sync.Mutex
	updated := 0

	for _, subsidy := range toUpdate {
		waitGroup.Add(1)
		go func(subsidy *models.Subsidy) {
			defer waitGroup.Done()

			if err := s.subsidies.Update(ctx, subsidy); err != nil {
				mutex.Lock()
				recordFailure(err)
				mutex.Unlock()
				logrus.WithError(err).WithField("service_id", subsidy.ServiceID).Warn("Subsidy update failed")
				return
			}

			mutex.Lock()
			updated++
			mutex.Unlock()
		}(subsidy)
	}

	waitGroup.Wait()
	return updated
}

func (s *SyncService) buildRunMessage(stats *models.SyncStats, status string, fetchErr error, successOps, failureCount int, sampleErrors []error) string {
	if status == models.SyncStatusFailed {
		return fmt.Sprintf("sync failed before any page completed: %v", fetchErr)
	}

	message := fmt.Sprintf("new %d, updated %d, skipped expired %d, deleted %d",
		stats.New, stats.Updated, stats.Skipped, stats.Deleted)

	if fetchErr != nil {
		message += fmt.Sprintf("; pagination stopped early: %v", fetchErr)
	}

	if failureCount > 0 {
		message += "; persistence: " + shared.BuildBatchErrorSummary(successOps, failureCount, sampleErrors)
	}

	return message
}
