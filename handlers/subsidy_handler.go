package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/services"
)

// SubsidyLister is the read surface the listing endpoints consume. The
// concrete implementation is CachedSubsidyService.
type SubsidyLister interface {
	Search(ctx context.Context, filters services.SearchFilters) ([]models.Subsidy, int, error)
	GetByID(ctx context.Context, id string) (*models.Subsidy, error)
}

// SearchTermRecorder records served search queries and ranks them.
type SearchTermRecorder interface {
	RecordSearchAsync(term string)
	Trending(ctx context.Context, limit int) ([]models.SearchTerm, error)
}

// ViewCounter bumps the per-subsidy view counter.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string) error
}

// LastSyncReader exposes the most recent successful reconciliation run.
type LastSyncReader interface {
	LastSuccessfulRun(ctx context.Context) (*models.SyncLog, error)
}

type SubsidyHandler struct {
	Subsidies   SubsidyLister
	Views       ViewCounter
	SearchTerms SearchTermRecorder
	SyncLogs    LastSyncReader
}

func NewSubsidyHandler(subsidies SubsidyLister, views ViewCounter, searchTerms SearchTermRecorder, syncLogs LastSyncReader) *SubsidyHandler {
	return &SubsidyHandler{
		Subsidies:   subsidies,
		Views:       views,
		SearchTerms: searchTerms,
		SyncLogs:    syncLogs,
	}
}

// GetSubsidies returns a filtered, paginated listing of non-expired
// subsidies. Search terms are recorded asynchronously for the trending
// endpoint; a counter failure never blocks the response.
func (h *SubsidyHandler) GetSubsidies(c *fiber.Ctx) error {
	filters := services.SearchFilters{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Region:    c.Query("region"),
		BirthYear: c.Query("age"),
		Gender:    c.Query("gender"),
		Status:    c.Query("status"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 100),
	}

	// Clamp here, not just in storage: the pagination math below and
	// the cache key must see the same effective values Search uses.
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 100
	}

	subsidies, totalCount, err := h.Subsidies.Search(c.Context(), filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	// Count the term only once the search has actually been served, so
	// trending reflects results users saw rather than failed requests.
	if filters.Search != "" {
		h.SearchTerms.RecordSearchAsync(filters.Search)
	}

	if subsidies == nil {
		subsidies = []models.Subsidy{}
	}

	totalPages := (totalCount + filters.Limit - 1) / filters.Limit

	response := fiber.Map{
		"success":    true,
		"count":      len(subsidies),
		"totalCount": totalCount,
		"page":       filters.Page,
		"totalPages": totalPages,
		"data":       subsidies,
	}

	// Freshness marker for the first page only; deeper pages skip the
	// extra query.
	if filters.Page == 1 {
		if lastSync, err := h.SyncLogs.LastSuccessfulRun(c.Context()); err == nil && lastSync != nil {
			response["lastSyncedAt"] = lastSync.SyncedAt
		}
	}

	return c.JSON(response)
}

// GetSubsidyByID returns one subsidy by row id or upstream service id.
// The view counter is bumped in the background.
func (h *SubsidyHandler) GetSubsidyByID(c *fiber.Ctx) error {
	id := c.Params("id")

	subsidy, err := h.Subsidies.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if subsidy == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "subsidy not found",
		})
	}

	go func(id string) {
		if err := h.Views.IncrementViews(context.Background(), id); err != nil {
			logrus.WithError(err).Debug("Failed to increment view count")
		}
	}(id)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subsidy,
	})
}

// GetTrendingSearches returns the most searched terms.
func (h *SubsidyHandler) GetTrendingSearches(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	terms, err := h.SearchTerms.Trending(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if terms == nil {
		terms = []models.SearchTerm{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    terms,
	})
}
