package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

const subsidyColumns = `id, service_id, title, description, category, target, region, amount, period,
	end_date, full_description, requirements, application_method, required_docs,
	contact_info, host_org, service_url, gov24_url, search_url, views, created_at, updated_at`

// SubsidyService is the storage layer for the subsidy catalog.
type SubsidyService struct {
	DB *sql.DB
}

// NewSubsidyService creates a new subsidy storage service.
func NewSubsidyService(db *sql.DB) *SubsidyService {
	return &SubsidyService{DB: db}
}

// SearchFilters are the listing endpoint's query parameters. Zero
// values mean "no filter".
type SearchFilters struct {
	Search    string
	Category  string
	Region    string
	BirthYear string
	Gender    string
	Status    string
	Page      int
	Limit     int
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubsidy(scanner rowScanner) (*models.Subsidy, error) {
	var subsidy models.Subsidy
	err := scanner.Scan(
		&subsidy.ID, &subsidy.ServiceID, &subsidy.Title, &subsidy.Description,
		&subsidy.Category, &subsidy.Target, &subsidy.Region, &subsidy.Amount,
		&subsidy.Period, &subsidy.EndDate, &subsidy.FullDescription,
		&subsidy.Requirements, &subsidy.ApplicationMethod, &subsidy.RequiredDocs,
		&subsidy.ContactInfo, &subsidy.HostOrg, &subsidy.ServiceURL,
		&subsidy.Gov24URL, &subsidy.SearchURL, &subsidy.Views,
		&subsidy.CreatedAt, &subsidy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &subsidy, nil
}

// GetByServiceIDs fetches all stored subsidies for the given upstream
// service ids in a single keyed read, returned as a map for diffing.
func (s *SubsidyService) GetByServiceIDs(ctx context.Context, serviceIDs []string) (map[string]*models.Subsidy, error) {
	existing := make(map[string]*models.Subsidy, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return existing, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM subsidies WHERE service_id = ANY($1)`, subsidyColumns)

	rows, err := s.DB.QueryContext(ctx, query, pq.Array(serviceIDs))
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "BATCH_FETCH_FAILED",
			"SubsidyService", "GetByServiceIDs", true)
	}
	defer rows.Close()

	for rows.Next() {
		subsidy, err := scanSubsidy(rows)
		if err != nil {
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_SCAN_FAILED",
				"SubsidyService", "GetByServiceIDs", false)
		}
		existing[subsidy.ServiceID] = subsidy
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_ITERATION_FAILED",
			"SubsidyService", "GetByServiceIDs", true)
	}

	return existing, nil
}

// InsertBatch inserts new subsidies in one multi-row statement.
// Duplicate service ids are silently skipped, which guards against the
// upstream listing the same service twice within or across pages. The
// returned count is the number of rows actually inserted.
func (s *SubsidyService) InsertBatch(ctx context.Context, subsidies []*models.Subsidy) (int, error) {
	if len(subsidies) == 0 {
		return 0, nil
	}

	var placeholders []string
	var args []interface{}
	argIndex := 1

	for _, subsidy := range subsidies {
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			argIndex, argIndex+1, argIndex+2, argIndex+3, argIndex+4, argIndex+5,
			argIndex+6, argIndex+7, argIndex+8, argIndex+9, argIndex+10, argIndex+11,
			argIndex+12, argIndex+13, argIndex+14, argIndex+15, argIndex+16, argIndex+17,
		))
		argIndex += 18

		args = append(args,
			subsidy.ServiceID, subsidy.Title, subsidy.Description, subsidy.Category,
			subsidy.Target, subsidy.Region, subsidy.Amount, subsidy.Period,
			subsidy.EndDate, subsidy.FullDescription, subsidy.Requirements,
			subsidy.ApplicationMethod, subsidy.RequiredDocs, subsidy.ContactInfo,
			subsidy.HostOrg, subsidy.ServiceURL, subsidy.Gov24URL, subsidy.SearchURL,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO subsidies (
			service_id, title, description, category, target, region, amount, period,
			end_date, full_description, requirements, application_method, required_docs,
			contact_info, host_org, service_url, gov24_url, search_url
		) VALUES %s
		ON CONFLICT (service_id) DO NOTHING
	`, strings.Join(placeholders, ", "))

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "BATCH_INSERT_FAILED",
			"SubsidyService", "InsertBatch", true)
	}

	inserted, _ := result.RowsAffected()
	return int(inserted), nil
}

// Update overwrites the stored row for the subsidy's service id with
// the incoming upstream state.
func (s *SubsidyService) Update(ctx context.Context, subsidy *models.Subsidy) error {
	query := `
		UPDATE subsidies SET
			title = $2, description = $3, category = $4, target = $5, region = $6,
			amount = $7, period = $8, end_date = $9, full_description = $10,
			requirements = $11, application_method = $12, required_docs = $13,
			contact_info = $14, host_org = $15, service_url = $16, gov24_url = $17,
			search_url = $18, updated_at = NOW()
		WHERE service_id = $1
	`

	_, err := s.DB.ExecContext(ctx, query,
		subsidy.ServiceID, subsidy.Title, subsidy.Description, subsidy.Category,
		subsidy.Target, subsidy.Region, subsidy.Amount, subsidy.Period,
		subsidy.EndDate, subsidy.FullDescription, subsidy.Requirements,
		subsidy.ApplicationMethod, subsidy.RequiredDocs, subsidy.ContactInfo,
		subsidy.HostOrg, subsidy.ServiceURL, subsidy.Gov24URL, subsidy.SearchURL,
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "UPDATE_FAILED",
			"SubsidyService", "Update", true)
	}

	return nil
}

// DeleteExpired removes every subsidy whose deadline is strictly before
// today. Standing offers (NULL end_date) are never swept. This is a
// storage-wide sweep, so it also retires listings that disappeared from
// the upstream feed while past their deadline.
func (s *SubsidyService) DeleteExpired(ctx context.Context, today time.Time) (int, error) {
	result, err := s.DB.ExecContext(ctx,
		`DELETE FROM subsidies WHERE end_date IS NOT NULL AND end_date < $1`, today)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "EXPIRED_SWEEP_FAILED",
			"SubsidyService", "DeleteExpired", true)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// CountAll returns the total number of stored subsidies.
func (s *SubsidyService) CountAll(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subsidies`).Scan(&count)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "COUNT_FAILED",
			"SubsidyService", "CountAll", true)
	}
	return count, nil
}

// CountActive returns the number of subsidies that have not expired as
// of today.
func (s *SubsidyService) CountActive(ctx context.Context, today time.Time) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subsidies WHERE end_date IS NULL OR end_date >= $1`, today).Scan(&count)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "COUNT_FAILED",
			"SubsidyService", "CountActive", true)
	}
	return count, nil
}

// GetByID returns one non-expired subsidy by row id or upstream service
// id, or nil when nothing matches.
func (s *SubsidyService) GetByID(ctx context.Context, id string) (*models.Subsidy, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subsidies
		WHERE (id::text = $1 OR service_id = $1)
		  AND (end_date IS NULL OR end_date >= $2)
		LIMIT 1
	`, subsidyColumns)

	subsidy, err := scanSubsidy(s.DB.QueryRowContext(ctx, query, id, TodayMidnight()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "FETCH_FAILED",
			"SubsidyService", "GetByID", true)
	}

	return subsidy, nil
}

// IncrementViews bumps a subsidy's view counter. Callers fire this
// asynchronously; a failure only loses one count.
func (s *SubsidyService) IncrementViews(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE subsidies SET views = views + 1 WHERE id::text = $1 OR service_id = $1`, id)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "VIEW_INCREMENT_FAILED",
			"SubsidyService", "IncrementViews", true)
	}
	return nil
}

// Search returns a filtered, paginated page of non-expired subsidies
// plus the total match count. Results are ordered soonest-deadline
// first with standing offers last, ties broken by recency.
func (s *SubsidyService) Search(ctx context.Context, filters SearchFilters) ([]models.Subsidy, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 100
	}

	where, args := buildSearchConditions(filters)

	countQuery := "SELECT COUNT(*) FROM subsidies WHERE " + where

	var totalCount int
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "SEARCH_COUNT_FAILED",
			"SubsidyService", "Search", true)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM subsidies
		WHERE %s
		ORDER BY end_date ASC NULLS LAST, updated_at DESC
		LIMIT %d OFFSET %d
	`, subsidyColumns, where, filters.Limit, (filters.Page-1)*filters.Limit)

	rows, err := s.DB.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "SEARCH_FAILED",
			"SubsidyService", "Search", true)
	}
	defer rows.Close()

	var subsidies []models.Subsidy
	for rows.Next() {
		subsidy, err := scanSubsidy(rows)
		if err != nil {
			return nil, 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_SCAN_FAILED",
				"SubsidyService", "Search", false)
		}
		subsidies = append(subsidies, *subsidy)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "ROW_ITERATION_FAILED",
			"SubsidyService", "Search", true)
	}

	logrus.WithFields(logrus.Fields{
		"component":   "SubsidyService",
		"search":      filters.Search,
		"category":    filters.Category,
		"region":      filters.Region,
		"page":        filters.Page,
		"total_count": totalCount,
	}).Debug("Subsidy search executed")

	return subsidies, totalCount, nil
}

// buildSearchConditions assembles the WHERE clause and its positional
// arguments for a filtered listing query.
func buildSearchConditions(filters SearchFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	next := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	// Expired listings never appear in search results.
	conditions = append(conditions,
		fmt.Sprintf("(end_date IS NULL OR end_date >= %s)", next(TodayMidnight())))

	if filters.Search != "" {
		pattern := next("%" + filters.Search + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE %s OR description ILIKE %s OR target ILIKE %s)",
			pattern, pattern, pattern))
	}

	if filters.Category != "" && filters.Category != "전체" {
		keywords := KeywordsForCategory(filters.Category)
		if len(keywords) > 0 {
			var likes []string
			for _, keyword := range keywords {
				likes = append(likes, "category ILIKE "+next("%"+keyword+"%"))
			}
			conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
		} else {
			conditions = append(conditions, "category ILIKE "+next("%"+filters.Category+"%"))
		}
	}

	if filters.Region != "" && filters.Region != "전체" {
		if filters.Region == "전국" {
			conditions = append(conditions, "(region = '전국' OR region IS NULL)")
		} else {
			// Match the region itself, or nationwide programs whose
			// hosting organization does not name a different region.
			var excludes []string
			for _, keyword := range excludeKeywordsForRegion(filters.Region) {
				excludes = append(excludes, "category ILIKE "+next("%"+keyword+"%"))
			}
			conditions = append(conditions, fmt.Sprintf(
				"(region ILIKE %s OR ((region = '전국' OR region IS NULL) AND NOT (%s)))",
				next("%"+filters.Region+"%"), strings.Join(excludes, " OR ")))
		}
	}

	if filters.BirthYear != "" {
		if keywords := AgeKeywordsForBirthYear(filters.BirthYear); len(keywords) > 0 {
			likes := []string{"target ILIKE " + next("%전국민%")}
			for _, keyword := range keywords {
				likes = append(likes, "target ILIKE "+next("%"+keyword+"%"))
			}
			conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
		}
	}

	if keywords := GenderKeywords(filters.Gender); len(keywords) > 0 {
		var likes []string
		for _, keyword := range keywords {
			likes = append(likes, "target ILIKE "+next("%"+keyword+"%"))
		}
		conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
	}

	if keywords := StatusKeywords(filters.Status); len(keywords) > 0 {
		var likes []string
		for _, keyword := range keywords {
			likes = append(likes, "target ILIKE "+next("%"+keyword+"%"))
		}
		conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
	}

	return strings.Join(conditions, " AND "), args
}
