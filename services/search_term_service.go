package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

// SearchTermService accumulates search query counters for the trending
// endpoint.
type SearchTermService struct {
	DB *sql.DB
}

// NewSearchTermService creates a new search term service.
func NewSearchTermService(db *sql.DB) *SearchTermService {
	return &SearchTermService{DB: db}
}

// RecordSearch upserts the counter for a search term. Terms shorter
// than two characters are ignored.
func (s *SearchTermService) RecordSearch(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < 2 {
		return nil
	}

	query := `
		INSERT INTO search_terms (term, count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (term) DO UPDATE SET
			count = search_terms.count + 1,
			updated_at = NOW()
	`

	if _, err := s.DB.ExecContext(ctx, query, term); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "SEARCH_TERM_UPSERT_FAILED",
			"SearchTermService", "RecordSearch", true)
	}

	return nil
}

// RecordSearchAsync records a search term in the background so the
// listing response is never blocked on the counter write. Failures are
// logged and dropped.
func (s *SearchTermService) RecordSearchAsync(term string) {
	go func() {
		if err := s.RecordSearch(context.Background(), term); err != nil {
			logrus.WithError(err).Debug("Failed to record search term")
		}
	}()
}

// Trending returns the most searched terms, highest count first.
func (s *SearchTermService) Trending(ctx context.Context, limit int) ([]models.SearchTerm, error) {
	if limit < 1 {
		limit = 10
	}

	query := `
		SELECT id, term, count, updated_at
		FROM search_terms
		ORDER BY count DESC, updated_at DESC
		LIMIT $1
	`

	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "TRENDING_FETCH_FAILED",
			"SearchTermService", "Trending", true)
	}
	defer rows.Close()

	var terms []models.SearchTerm
	for rows.Next() {
		var term models.SearchTerm
		if err := rows.Scan(&term.ID, &term.Term, &term.Count, &term.UpdatedAt); err != nil {
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_SCAN_FAILED",
				"SearchTermService", "Trending", false)
		}
		terms = append(terms, term)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_ITERATION_FAILED",
			"SearchTermService", "Trending", true)
	}

	return terms, nil
}
