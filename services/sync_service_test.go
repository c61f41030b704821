package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunwoolee/subsidy-backend/models"
)

// fakeCatalog serves fixture pages and can fail at a chosen page or
// block to simulate a slow upstream.
type fakeCatalog struct {
	pages      [][]models.RawServiceRecord
	failAtPage int
	blockUntil chan struct{}

	mutex sync.Mutex
	calls int
}

func (f *fakeCatalog) FetchServiceListPage(ctx context.Context, page, perPage int) (*ServiceListPage, error) {
	f.mutex.Lock()
	f.calls++
	f.mutex.Unlock()

	if f.blockUntil != nil {
		<-f.blockUntil
	}

	if f.failAtPage > 0 && page == f.failAtPage {
		return nil, errors.New("upstream unavailable: connection reset")
	}

	if page > len(f.pages) {
		return &ServiceListPage{Page: page, PerPage: perPage}, nil
	}

	records := f.pages[page-1]
	return &ServiceListPage{
		Page:         page,
		PerPage:      perPage,
		CurrentCount: len(records),
		Records:      records,
	}, nil
}

func (f *fakeCatalog) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls
}

// fakeStore is an in-memory SubsidyStore keyed by service id.
type fakeStore struct {
	mutex       sync.Mutex
	rows        map[string]*models.Subsidy
	failUpdates map[string]bool
	insertErr   error
	fetchErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.Subsidy)}
}

func (f *fakeStore) GetByServiceIDs(ctx context.Context, serviceIDs []string) (map[string]*models.Subsidy, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	existing := make(map[string]*models.Subsidy)
	for _, id := range serviceIDs {
		if row, ok := f.rows[id]; ok {
			copied := *row
			existing[id] = &copied
		}
	}
	return existing, nil
}

func (f *fakeStore) InsertBatch(ctx context.Context, subsidies []*models.Subsidy) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.insertErr != nil {
		return 0, f.insertErr
	}

	inserted := 0
	for _, subsidy := range subsidies {
		if _, exists := f.rows[subsidy.ServiceID]; exists {
			continue
		}
		copied := *subsidy
		f.rows[subsidy.ServiceID] = &copied
		inserted++
	}
	return inserted, nil
}

func (f *fakeStore) Update(ctx context.Context, subsidy *models.Subsidy) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.failUpdates[subsidy.ServiceID] {
		return errors.New("update failed: deadlock detected")
	}

	copied := *subsidy
	f.rows[subsidy.ServiceID] = &copied
	return nil
}

func (f *fakeStore) DeleteExpired(ctx context.Context, today time.Time) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	deleted := 0
	for id, row := range f.rows {
		if row.EndDate != nil && row.EndDate.Before(today) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.rows)
}

func (f *fakeStore) get(serviceID string) *models.Subsidy {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.rows[serviceID]
}

// fakeLogStore records appended audit entries.
type fakeLogStore struct {
	mutex   sync.Mutex
	entries []*models.SyncLog
}

func (f *fakeLogStore) Append(ctx context.Context, log *models.SyncLog) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeLogStore) last() *models.SyncLog {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

type fakeInvalidator struct {
	mutex sync.Mutex
	calls int
}

func (f *fakeInvalidator) InvalidateSubsidies() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
}

func futurePeriod() string {
	return time.Now().AddDate(0, 1, 0).Format("2006.01.02") + " 까지"
}

func pastPeriod() string {
	return time.Now().AddDate(0, -2, 0).Format("2006.01.02")
}

func rawRecord(serviceID, title, period string) models.RawServiceRecord {
	return models.RawServiceRecord{
		"서비스ID":   serviceID,
		"서비스명":    title,
		"신청기한내용": period,
		"지원대상":    "전국민",
	}
}

func newTestSyncService(catalog ServiceCatalogClient, store *fakeStore, logs *fakeLogStore, invalidator ListingInvalidator) *SyncService {
	engine := NewSyncService(catalog, store, logs, invalidator)
	engine.SetPageSize(10)
	return engine
}

func TestSyncRunMixedPage(t *testing.T) {
	catalog := &fakeCatalog{pages: [][]models.RawServiceRecord{{
		models.RawServiceRecord{"서비스명": "식별자 없는 레코드"},
		rawRecord("SVC-STANDING", "상시 지원 사업", "상시"),
		rawRecord("SVC-PAST", "종료된 사업", "2024.01.01"),
	}}}
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(catalog, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped, "expired record is skipped on ingest")
	assert.Equal(t, 1, store.count(), "only the standing record is stored")

	stored := store.get("SVC-STANDING")
	require.NotNil(t, stored)
	assert.Nil(t, stored.EndDate)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusSuccess, entry.Status)
	assert.Equal(t, 1, entry.TotalCount)
	assert.Equal(t, 1, entry.NewCount)
}

func TestSyncRunIdempotence(t *testing.T) {
	pages := [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
		rawRecord("SVC-B", "사업 B", futurePeriod()),
	}}
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: pages}, store, logs, nil)

	first, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.New)

	second, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.New, "unchanged feed inserts nothing")
	assert.Equal(t, 0, second.Updated, "unchanged feed updates nothing")
	assert.Equal(t, 2, store.count())
}

func TestSyncRunDetectsUpstreamChange(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
	}}}, store, logs, nil)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	engine = newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A (개정)", "상시"),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, "사업 A (개정)", store.get("SVC-A").Title)
}

func TestSyncRunExpiredNeverWritten(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	// The expired record is new to storage yet must not be inserted.
	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-EXPIRED", "종료된 사업", pastPeriod()),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, store.count())
}

func TestSyncRunPartialPageFailure(t *testing.T) {
	catalog := &fakeCatalog{
		pages: [][]models.RawServiceRecord{
			{rawRecord("SVC-PAGE1", "1페이지 사업", "상시")},
			{rawRecord("SVC-PAGE2", "2페이지 사업", "상시")},
			{rawRecord("SVC-PAGE3", "3페이지 사업", "상시")},
		},
		failAtPage: 3,
	}
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(catalog, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err, "partial progress is still a successful run")
	assert.Equal(t, 2, stats.New, "pages before the failure are kept")
	assert.Equal(t, 2, store.count())
	assert.Nil(t, store.get("SVC-PAGE3"))

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusSuccess, entry.Status)
	assert.Equal(t, 2, entry.NewCount)
	assert.Contains(t, entry.Message, "pagination stopped early")
}

func TestSyncRunFailsBeforeAnyPage(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{failAtPage: 1}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 0, store.count())

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusFailed, entry.Status)
	assert.Equal(t, 0, entry.TotalCount)
}

func TestSyncRunExpirySweep(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	// A stored row passed its deadline and vanished from the feed.
	pastDate := time.Now().AddDate(0, -1, 0)
	store.rows["SVC-GONE"] = &models.Subsidy{
		ServiceID: "SVC-GONE",
		Title:     "사라진 사업",
		EndDate:   &pastDate,
	}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted, "sweep retires rows the feed no longer lists")
	assert.Nil(t, store.get("SVC-GONE"))

	// Post-run invariant: nothing expired remains in storage.
	today := TodayMidnight()
	for id, row := range store.rows {
		assert.False(t, IsExpired(row.EndDate, today), "row %s must not be expired", id)
	}
}

func TestSyncRunBatchReadFailureStopsPagination(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("connection refused")
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.Error(t, err, "a read failure on the first page fails the run")
	assert.Equal(t, 0, stats.New)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusFailed, entry.Status)
}

func TestSyncRunUpdateFailureKeepsBatch(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
		rawRecord("SVC-B", "사업 B", "상시"),
	}}}, store, logs, nil)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	store.failUpdates = map[string]bool{"SVC-A": true}

	engine = newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A (개정)", "상시"),
		rawRecord("SVC-B", "사업 B (개정)", "상시"),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err, "a single failed update does not fail the run")
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, "사업 B (개정)", store.get("SVC-B").Title)
	assert.Equal(t, "사업 A", store.get("SVC-A").Title, "failed update leaves the old row")

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusSuccess, entry.Status)
	assert.Contains(t, entry.Message, "1 failed")
}

func TestSyncRunInsertFailureReportedInMessage(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("insert failed: too many connections")
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
	}}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err, "a failed insert batch is partial success, not a failed run")
	assert.Equal(t, 0, stats.New)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusSuccess, entry.Status)
	assert.Contains(t, entry.Message, "persistence")
}

func TestSyncRunConcurrentTriggerRejected(t *testing.T) {
	release := make(chan struct{})
	catalog := &fakeCatalog{
		pages:      [][]models.RawServiceRecord{{rawRecord("SVC-A", "사업 A", "상시")}},
		blockUntil: release,
	}
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(catalog, store, logs, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.Run(context.Background())
	}()

	// Wait until the first run is inside the page fetch.
	require.Eventually(t, func() bool {
		return catalog.callCount() >= 1
	}, time.Second, 5*time.Millisecond)

	_, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(release)
	<-done

	// Once the first run finishes, new runs are accepted again.
	catalog.blockUntil = nil
	_, err = engine.Run(context.Background())
	assert.NoError(t, err)
}

func TestSyncRunInvalidatesListingCache(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}
	invalidator := &fakeInvalidator{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
	}}}, store, logs, invalidator)
	_, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, invalidator.calls)
}

func TestSyncRunDeduplicatesAcrossPages(t *testing.T) {
	// The upstream occasionally lists the same service on two pages;
	// the second sighting must not create a duplicate row.
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{
		{rawRecord("SVC-DUP", "중복 사업", "상시")},
		{rawRecord("SVC-DUP", "중복 사업", "상시")},
	}}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, store.count())
}

func TestSyncRunEmptyFirstPage(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{}, store, logs, nil)
	stats, err := engine.Run(context.Background())

	require.NoError(t, err, "an empty catalog is a successful no-op run")
	assert.Equal(t, 0, stats.Total)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.SyncStatusSuccess, entry.Status)
}

func TestSyncRunMessageFormat(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogStore{}

	engine := newTestSyncService(&fakeCatalog{pages: [][]models.RawServiceRecord{{
		rawRecord("SVC-A", "사업 A", "상시"),
		rawRecord("SVC-PAST", "종료된 사업", "2024.01.01"),
	}}}, store, logs, nil)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.Equal(t, fmt.Sprintf("new %d, updated %d, skipped expired %d, deleted %d", 1, 0, 1, 0), entry.Message)
}
