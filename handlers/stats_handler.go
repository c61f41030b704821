package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/hyunwoolee/subsidy-backend/services"
)

type StatsHandler struct {
	DB          *sql.DB
	SyncService *services.SyncService
	Catalog     *services.Gov24Client
	Cached      *services.CachedSubsidyService
}

func NewStatsHandler(db *sql.DB, syncService *services.SyncService, catalog *services.Gov24Client, cached *services.CachedSubsidyService) *StatsHandler {
	return &StatsHandler{
		DB:          db,
		SyncService: syncService,
		Catalog:     catalog,
		Cached:      cached,
	}
}

// GetStats returns operational counters: reconciliation run totals,
// upstream client health, cache occupancy, and connection pool usage.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	metrics := make(map[string]interface{})

	syncSnapshot := h.SyncService.Metrics().GetSnapshot()
	metrics["sync"] = map[string]interface{}{
		"total_runs":           syncSnapshot.TotalRequests,
		"successful_runs":      syncSnapshot.SuccessfulRequests,
		"failed_runs":          syncSnapshot.FailedRequests,
		"success_rate":         syncSnapshot.GetSuccessRate(),
		"average_run_duration": syncSnapshot.AverageProcessingTime.String(),
		"last_run":             syncSnapshot.CustomMetrics,
	}

	upstreamSnapshot := h.Catalog.Metrics().GetSnapshot()
	metrics["upstream"] = map[string]interface{}{
		"total_requests":        upstreamSnapshot.TotalRequests,
		"successful_requests":   upstreamSnapshot.SuccessfulRequests,
		"failed_requests":       upstreamSnapshot.FailedRequests,
		"timeout_requests":      upstreamSnapshot.TimeoutRequests,
		"retry_attempts":        upstreamSnapshot.RetryAttempts,
		"success_rate":          upstreamSnapshot.GetHTTPSuccessRate(),
		"average_response_time": upstreamSnapshot.AverageResponseTime.String(),
		"status_code_counts":    upstreamSnapshot.StatusCodeCounts,
	}

	if h.Cached != nil {
		metrics["cache"] = h.Cached.GetCacheStats()
	}

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["database"] = map[string]interface{}{
			"open_connections": dbStats.OpenConnections,
			"in_use":           dbStats.InUse,
			"idle":             dbStats.Idle,
			"wait_count":       dbStats.WaitCount,
			"wait_duration_ms": dbStats.WaitDuration.Milliseconds(),
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}
