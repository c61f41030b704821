package shared

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClientFactory hands out pooled HTTP clients keyed by timeout so
// repeated callers share transports instead of leaking connections.
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory.
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// Client returns a cached HTTP client with connection pooling for the
// given timeout, creating one on first use.
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,

			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	f.mutex.Lock()
	f.clients[clientKey] = client
	f.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"component":  "HTTPClientFactory",
		"timeout":    timeout,
		"client_key": clientKey,
	}).Debug("Created new pooled HTTP client")

	return client
}

// ExecuteHTTPRequestWithRetry executes the request with exponential
// backoff, treating both transport errors and non-200 statuses as
// retryable failures. The caller owns the returned response body.
func ExecuteHTTPRequestWithRetry(client *http.Client, request *http.Request, maxRetryAttempts int) (*http.Response, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"method":    "ExecuteHTTPRequestWithRetry",
		"url":       request.URL.String(),
	})

	var response *http.Response
	var lastErr error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": backoff,
			}).Debug("Retrying HTTP request after backoff")
			time.Sleep(backoff)
		}

		response, lastErr = client.Do(request)
		if lastErr == nil && response.StatusCode == http.StatusOK {
			return response, nil
		}

		if lastErr != nil {
			lastErr = fmt.Errorf("attempt %d failed with network error: %w", attempt+1, lastErr)
			logger.WithError(lastErr).Debug("HTTP request failed with network error")
		} else {
			lastErr = fmt.Errorf("attempt %d failed with HTTP %d: %s", attempt+1, response.StatusCode, http.StatusText(response.StatusCode))
			logger.WithField("status_code", response.StatusCode).Debug("HTTP request failed with non-200 status")
			response.Body.Close()
		}
	}

	totalAttempts := maxRetryAttempts + 1
	logger.WithFields(logrus.Fields{
		"total_attempts": totalAttempts,
		"final_error":    lastErr,
	}).Error("HTTP request failed after all retry attempts")

	return nil, fmt.Errorf("HTTP request failed after %d attempts: %w", totalAttempts, lastErr)
}

// CleanupAllClients closes idle connections on all cached clients.
func (f *HTTPClientFactory) CleanupAllClients() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for key, client := range f.clients {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
		delete(f.clients, key)
	}

	logrus.WithField("component", "HTTPClientFactory").Debug("Cleaned up all cached HTTP clients")
}
