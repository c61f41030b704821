package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync run outcomes recorded in sync_logs.status.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncLog is one append-only audit row per reconciliation run. Rows are
// never updated or deleted; the latest row is the source of truth for
// "time since last sync".
type SyncLog struct {
	ID           uuid.UUID `json:"id"`
	SyncedAt     time.Time `json:"synced_at"`
	TotalCount   int       `json:"total_count"`
	NewCount     int       `json:"new_count"`
	UpdatedCount int       `json:"updated_count"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

// SyncStats is the aggregate result of one reconciliation run, returned
// to the trigger caller.
type SyncStats struct {
	Total    int           `json:"total"`
	New      int           `json:"new"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Deleted  int           `json:"deleted"`
	Duration time.Duration `json:"-"`
}
