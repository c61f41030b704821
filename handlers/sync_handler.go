package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/services"
)

type SyncHandler struct {
	SyncService    *services.SyncService
	SubsidyService *services.SubsidyService
	SyncLogService *services.SyncLogService
	SecretKey      string
}

func NewSyncHandler(syncService *services.SyncService, subsidyService *services.SubsidyService, syncLogService *services.SyncLogService, secretKey string) *SyncHandler {
	return &SyncHandler{
		SyncService:    syncService,
		SubsidyService: subsidyService,
		SyncLogService: syncLogService,
		SecretKey:      secretKey,
	}
}

// TriggerSync runs a reconciliation. The caller must present the shared
// sync secret as a bearer token; a mismatch is rejected before any work
// begins and writes no audit entry.
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || token == authHeader || token != h.SecretKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid sync token",
		})
	}

	stats, err := h.SyncService.Run(c.Context())
	if err != nil {
		if errors.Is(err, services.ErrSyncAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "a sync run is already in progress",
			})
		}

		logrus.WithError(err).Error("Sync run failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "sync completed",
		"stats": fiber.Map{
			"total":    stats.Total,
			"new":      stats.New,
			"updated":  stats.Updated,
			"skipped":  stats.Skipped,
			"deleted":  stats.Deleted,
			"duration": stats.Duration.String(),
		},
	})
}

// GetSyncStatus reports catalog counts and the most recent run. It is
// unauthenticated: the numbers it exposes are the same ones the public
// listing shows.
func (h *SyncHandler) GetSyncStatus(c *fiber.Ctx) error {
	ctx := c.Context()
	today := services.TodayMidnight()

	totalCount, err := h.SubsidyService.CountAll(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	activeCount, err := h.SubsidyService.CountActive(ctx, today)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	lastRun, err := h.SyncLogService.LastRun(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	var lastSync fiber.Map
	if lastRun != nil {
		lastSync = fiber.Map{
			"syncedAt":   lastRun.SyncedAt,
			"totalCount": lastRun.TotalCount,
			"status":     lastRun.Status,
			"message":    lastRun.Message,
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"totalSubsidies":  totalCount,
			"activeSubsidies": activeCount,
			"expiredCount":    totalCount - activeCount,
			"syncInProgress":  h.SyncService.IsRunning(),
			"lastSync":        lastSync,
		},
	})
}
