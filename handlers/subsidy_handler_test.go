package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/services"
)

type fakeLister struct {
	subsidies  []models.Subsidy
	total      int
	err        error
	gotFilters services.SearchFilters
}

func (f *fakeLister) Search(ctx context.Context, filters services.SearchFilters) ([]models.Subsidy, int, error) {
	f.gotFilters = filters
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.subsidies, f.total, nil
}

func (f *fakeLister) GetByID(ctx context.Context, id string) (*models.Subsidy, error) {
	return nil, f.err
}

type fakeTermRecorder struct {
	mutex sync.Mutex
	terms []string
}

func (f *fakeTermRecorder) RecordSearchAsync(term string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.terms = append(f.terms, term)
}

func (f *fakeTermRecorder) Trending(ctx context.Context, limit int) ([]models.SearchTerm, error) {
	return nil, nil
}

func (f *fakeTermRecorder) recorded() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.terms...)
}

type fakeViewCounter struct{}

func (f *fakeViewCounter) IncrementViews(ctx context.Context, id string) error { return nil }

type fakeLastSync struct{}

func (f *fakeLastSync) LastSuccessfulRun(ctx context.Context) (*models.SyncLog, error) {
	return nil, nil
}

func newListingTestApp(lister *fakeLister, recorder *fakeTermRecorder) *fiber.App {
	app := fiber.New()
	handler := NewSubsidyHandler(lister, &fakeViewCounter{}, recorder, &fakeLastSync{})
	app.Get("/api/v1/subsidies", handler.GetSubsidies)
	return app
}

func decodeBody(t *testing.T, response *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	return decoded
}

func TestGetSubsidiesClampsPageAndLimit(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"zero limit", "/api/v1/subsidies?limit=0"},
		{"negative limit", "/api/v1/subsidies?limit=-5"},
		{"zero page and limit", "/api/v1/subsidies?page=0&limit=0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lister := &fakeLister{
				subsidies: []models.Subsidy{{Title: "청년 월세 지원"}},
				total:     250,
			}
			app := newListingTestApp(lister, &fakeTermRecorder{})

			request := httptest.NewRequest(http.MethodGet, tc.query, nil)
			response, err := app.Test(request)

			require.NoError(t, err)
			require.Equal(t, http.StatusOK, response.StatusCode)

			decoded := decodeBody(t, response)
			assert.Equal(t, float64(1), decoded["page"])
			assert.Equal(t, float64(3), decoded["totalPages"], "250 rows at the default limit of 100")

			assert.Equal(t, 1, lister.gotFilters.Page)
			assert.Equal(t, 100, lister.gotFilters.Limit)
		})
	}
}

func TestGetSubsidiesFailedSearchNotRecorded(t *testing.T) {
	recorder := &fakeTermRecorder{}
	lister := &fakeLister{err: errors.New("connection refused")}
	app := newListingTestApp(lister, recorder)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/subsidies?search=청년", nil)
	response, err := app.Test(request)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
	assert.Empty(t, recorder.recorded(), "failed searches must not inflate trending counts")
}

func TestGetSubsidiesServedSearchRecorded(t *testing.T) {
	recorder := &fakeTermRecorder{}
	lister := &fakeLister{total: 1, subsidies: []models.Subsidy{{Title: "청년 월세 지원"}}}
	app := newListingTestApp(lister, recorder)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/subsidies?search=청년", nil)
	response, err := app.Test(request)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, []string{"청년"}, recorder.recorded())
}
