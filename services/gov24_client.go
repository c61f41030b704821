package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/models"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

const (
	gov24ServiceListPath  = "/serviceList"
	maxServiceListPerPage = 500
)

// ServiceListPage is one page of the upstream service catalog. TotalCount
// is the upstream's reported size of the whole catalog, repeated on
// every page.
type ServiceListPage struct {
	Page         int
	PerPage      int
	TotalCount   int
	CurrentCount int
	Records      []models.RawServiceRecord
}

// ServiceCatalogClient fetches pages of the government service catalog.
// The sync engine depends on this interface so tests can substitute a
// fixture-backed fake.
type ServiceCatalogClient interface {
	FetchServiceListPage(ctx context.Context, page, perPage int) (*ServiceListPage, error)
}

// Gov24Client talks to the odcloud.kr gov24 open-data API.
type Gov24Client struct {
	baseURL       string
	serviceKey    string
	clientFactory *shared.HTTPClientFactory
	rateLimiter   *shared.RequestRateLimiter
	httpTimeout   time.Duration
	maxRetries    int
	metrics       *shared.HTTPMetrics
}

// NewGov24Client creates a catalog client for the given API key.
func NewGov24Client(serviceKey string) *Gov24Client {
	config := shared.NewDefaultUnifiedConfiguration().Upstream

	return &Gov24Client{
		baseURL:       config.BaseURL,
		serviceKey:    serviceKey,
		clientFactory: shared.NewHTTPClientFactory(config.HTTPRequestTimeout),
		rateLimiter:   shared.NewRequestRateLimiter(config.RequestRateLimit),
		httpTimeout:   config.HTTPRequestTimeout,
		maxRetries:    config.MaxRetryAttempts,
		metrics:       shared.NewHTTPMetrics(),
	}
}

// NewGov24ClientWithConfig creates a catalog client with explicit
// upstream configuration.
func NewGov24ClientWithConfig(serviceKey string, config shared.UpstreamConfig) *Gov24Client {
	return &Gov24Client{
		baseURL:       config.BaseURL,
		serviceKey:    serviceKey,
		clientFactory: shared.NewHTTPClientFactory(config.HTTPRequestTimeout),
		rateLimiter:   shared.NewRequestRateLimiter(config.RequestRateLimit),
		httpTimeout:   config.HTTPRequestTimeout,
		maxRetries:    config.MaxRetryAttempts,
		metrics:       shared.NewHTTPMetrics(),
	}
}

// serviceListResponse mirrors the upstream JSON envelope.
type serviceListResponse struct {
	Page         int                       `json:"page"`
	PerPage      int                       `json:"perPage"`
	TotalCount   int                       `json:"totalCount"`
	CurrentCount int                       `json:"currentCount"`
	MatchCount   int                       `json:"matchCount"`
	Data         []models.RawServiceRecord `json:"data"`
}

// FetchServiceListPage fetches one page of the upstream service catalog.
// Pages are 1-based; perPage above the upstream maximum is clamped.
func (c *Gov24Client) FetchServiceListPage(ctx context.Context, page, perPage int) (*ServiceListPage, error) {
	if c.serviceKey == "" {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "MISSING_API_KEY",
			"upstream API key is not configured", "Gov24Client", "FetchServiceListPage", false, nil)
	}

	if page < 1 {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_PAGE",
			fmt.Sprintf("page must be >= 1, got %d", page), "Gov24Client", "FetchServiceListPage", false, nil)
	}

	if perPage < 1 {
		perPage = 100
	}
	if perPage > maxServiceListPerPage {
		perPage = maxServiceListPerPage
	}

	requestURL := fmt.Sprintf("%s%s?page=%d&perPage=%d&serviceKey=%s&returnType=JSON",
		c.baseURL, gov24ServiceListPath, page, perPage, url.QueryEscape(c.serviceKey))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "REQUEST_BUILD_FAILED",
			"Gov24Client", "FetchServiceListPage", false)
	}
	request.Header.Set("Accept", "application/json")

	c.rateLimiter.EnforceRateLimit()

	startTime := time.Now()
	client := c.clientFactory.Client(c.httpTimeout)
	response, err := shared.ExecuteHTTPRequestWithRetry(client, request, c.maxRetries)
	responseTime := time.Since(startTime)

	if err != nil {
		c.metrics.RecordHTTPRequest(false, 0, responseTime, "fetch_failed", ctx.Err() == context.DeadlineExceeded)
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "SERVICE_LIST_FETCH_FAILED",
			"Gov24Client", "FetchServiceListPage", true)
	}
	defer response.Body.Close()

	c.metrics.RecordHTTPRequest(true, response.StatusCode, responseTime, "", false)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "RESPONSE_READ_FAILED",
			"Gov24Client", "FetchServiceListPage", true)
	}

	var envelope serviceListResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryUpstream, "RESPONSE_PARSE_FAILED",
			fmt.Sprintf("failed to parse service list response: %v", err),
			"Gov24Client", "FetchServiceListPage", false, err)
	}

	logrus.WithFields(logrus.Fields{
		"component":     "Gov24Client",
		"page":          page,
		"per_page":      perPage,
		"total_count":   envelope.TotalCount,
		"current_count": len(envelope.Data),
		"response_time": responseTime,
	}).Debug("Fetched service list page")

	return &ServiceListPage{
		Page:         page,
		PerPage:      perPage,
		TotalCount:   envelope.TotalCount,
		CurrentCount: len(envelope.Data),
		Records:      envelope.Data,
	}, nil
}

// Metrics exposes the client's HTTP metrics tracker.
func (c *Gov24Client) Metrics() *shared.HTTPMetrics {
	return c.metrics
}
