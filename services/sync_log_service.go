package services

import (
	"context"
	"database/sql"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

// SyncLogService is the append-only audit trail of reconciliation runs.
type SyncLogService struct {
	DB *sql.DB
}

// NewSyncLogService creates a new sync log service.
func NewSyncLogService(db *sql.DB) *SyncLogService {
	return &SyncLogService{DB: db}
}

// Append writes one audit row. Rows are never updated or deleted.
func (s *SyncLogService) Append(ctx context.Context, log *models.SyncLog) error {
	query := `
		INSERT INTO sync_logs (total_count, new_count, updated_count, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, synced_at
	`

	err := s.DB.QueryRowContext(ctx, query,
		log.TotalCount, log.NewCount, log.UpdatedCount, log.Status, log.Message,
	).Scan(&log.ID, &log.SyncedAt)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "SYNC_LOG_APPEND_FAILED",
			"SyncLogService", "Append", true)
	}

	return nil
}

// LastRun returns the most recent run regardless of its status, or nil
// when no run has ever been recorded.
func (s *SyncLogService) LastRun(ctx context.Context) (*models.SyncLog, error) {
	query := `
		SELECT id, synced_at, total_count, new_count, updated_count, status, message
		FROM sync_logs
		ORDER BY synced_at DESC
		LIMIT 1
	`

	var log models.SyncLog
	err := s.DB.QueryRowContext(ctx, query).Scan(
		&log.ID, &log.SyncedAt, &log.TotalCount, &log.NewCount,
		&log.UpdatedCount, &log.Status, &log.Message,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "SYNC_LOG_FETCH_FAILED",
			"SyncLogService", "LastRun", true)
	}

	return &log, nil
}

// LastSuccessfulRun returns the most recent run with status success, or
// nil when none exists.
func (s *SyncLogService) LastSuccessfulRun(ctx context.Context) (*models.SyncLog, error) {
	query := `
		SELECT id, synced_at, total_count, new_count, updated_count, status, message
		FROM sync_logs
		WHERE status = $1
		ORDER BY synced_at DESC
		LIMIT 1
	`

	var log models.SyncLog
	err := s.DB.QueryRowContext(ctx, query, models.SyncStatusSuccess).Scan(
		&log.ID, &log.SyncedAt, &log.TotalCount, &log.NewCount,
		&log.UpdatedCount, &log.Status, &log.Message,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "SYNC_LOG_FETCH_FAILED",
			"SyncLogService", "LastSuccessfulRun", true)
	}

	return &log, nil
}
