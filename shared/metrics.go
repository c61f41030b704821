package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks performance and success metrics for services
type ServiceMetrics struct {
	ServiceName           string                 `json:"service_name"`
	TotalRequests         int64                  `json:"total_requests"`
	SuccessfulRequests    int64                  `json:"successful_requests"`
	FailedRequests        int64                  `json:"failed_requests"`
	TotalProcessingTime   time.Duration          `json:"total_processing_time"`
	AverageProcessingTime time.Duration          `json:"average_processing_time"`
	LastUpdated           time.Time              `json:"last_updated"`
	CustomMetrics         map[string]interface{} `json:"custom_metrics"`
	mutex                 sync.RWMutex
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		ServiceName:   serviceName,
		LastUpdated:   time.Now(),
		CustomMetrics: make(map[string]interface{}),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	m.TotalProcessingTime += processingTime
	m.AverageProcessingTime = time.Duration(int64(m.TotalProcessingTime) / m.TotalRequests)

	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	m.LastUpdated = time.Now()
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.TotalRequests == 0 {
		return 0.0
	}

	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100.0
}

// SetCustomMetric sets a custom metric value
func (m *ServiceMetrics) SetCustomMetric(key string, value interface{}) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.CustomMetrics[key] = value
	m.LastUpdated = time.Now()
}

// IncrementCustomCounter increments a custom counter metric
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, exists := m.CustomMetrics[key]; exists {
		if counter, ok := current.(int64); ok {
			m.CustomMetrics[key] = counter + 1
		} else {
			m.CustomMetrics[key] = int64(1)
		}
	} else {
		m.CustomMetrics[key] = int64(1)
	}

	m.LastUpdated = time.Now()
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() ServiceMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	customMetricsCopy := make(map[string]interface{})
	for k, v := range m.CustomMetrics {
		customMetricsCopy[k] = v
	}

	return ServiceMetrics{
		ServiceName:           m.ServiceName,
		TotalRequests:         m.TotalRequests,
		SuccessfulRequests:    m.SuccessfulRequests,
		FailedRequests:        m.FailedRequests,
		TotalProcessingTime:   m.TotalProcessingTime,
		AverageProcessingTime: m.AverageProcessingTime,
		LastUpdated:           m.LastUpdated,
		CustomMetrics:         customMetricsCopy,
	}
}

// LogSummary logs a comprehensive metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            snapshot.GetSuccessRate(),
		"average_processing_time": snapshot.AverageProcessingTime,
		"total_processing_time":   snapshot.TotalProcessingTime,
		"last_updated":            snapshot.LastUpdated,
		"custom_metrics":          snapshot.CustomMetrics,
	}).Info("Service metrics summary")
}

// Reset resets all metrics to zero
func (m *ServiceMetrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests = 0
	m.SuccessfulRequests = 0
	m.FailedRequests = 0
	m.TotalProcessingTime = 0
	m.AverageProcessingTime = 0
	m.LastUpdated = time.Now()
	m.CustomMetrics = make(map[string]interface{})

	logrus.WithField("service_name", m.ServiceName).Info("Service metrics reset")
}

// HTTPMetrics tracks HTTP client performance and success rates
type HTTPMetrics struct {
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	TimeoutRequests     int64            `json:"timeout_requests"`
	RetryAttempts       int64            `json:"retry_attempts"`
	TotalResponseTime   time.Duration    `json:"total_response_time"`
	AverageResponseTime time.Duration    `json:"average_response_time"`
	StatusCodeCounts    map[int]int64    `json:"status_code_counts"`
	ErrorCounts         map[string]int64 `json:"error_counts"`
	mutex               sync.RWMutex
}

// NewHTTPMetrics creates a new HTTP metrics tracker
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		StatusCodeCounts: make(map[int]int64),
		ErrorCounts:      make(map[string]int64),
	}
}

// RecordHTTPRequest records an HTTP request with its result
func (hm *HTTPMetrics) RecordHTTPRequest(success bool, statusCode int, responseTime time.Duration, errorType string, isTimeout bool) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.TotalRequests++
	hm.TotalResponseTime += responseTime
	hm.AverageResponseTime = time.Duration(int64(hm.TotalResponseTime) / hm.TotalRequests)

	if success {
		hm.SuccessfulRequests++
	} else {
		hm.FailedRequests++
	}

	if isTimeout {
		hm.TimeoutRequests++
	}

	hm.StatusCodeCounts[statusCode]++

	if errorType != "" {
		hm.ErrorCounts[errorType]++
	}
}

// RecordRetryAttempt records a retry attempt
func (hm *HTTPMetrics) RecordRetryAttempt() {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.RetryAttempts++
}

// GetHTTPSuccessRate returns the HTTP success rate as a percentage
func (hm *HTTPMetrics) GetHTTPSuccessRate() float64 {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	if hm.TotalRequests == 0 {
		return 0.0
	}

	return float64(hm.SuccessfulRequests) / float64(hm.TotalRequests) * 100.0
}

// GetSnapshot returns a thread-safe copy of the HTTP counters.
func (hm *HTTPMetrics) GetSnapshot() HTTPMetrics {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	statusCodeCopy := make(map[int]int64)
	for code, count := range hm.StatusCodeCounts {
		statusCodeCopy[code] = count
	}

	errorCountsCopy := make(map[string]int64)
	for errorType, count := range hm.ErrorCounts {
		errorCountsCopy[errorType] = count
	}

	return HTTPMetrics{
		TotalRequests:       hm.TotalRequests,
		SuccessfulRequests:  hm.SuccessfulRequests,
		FailedRequests:      hm.FailedRequests,
		TimeoutRequests:     hm.TimeoutRequests,
		RetryAttempts:       hm.RetryAttempts,
		TotalResponseTime:   hm.TotalResponseTime,
		AverageResponseTime: hm.AverageResponseTime,
		StatusCodeCounts:    statusCodeCopy,
		ErrorCounts:         errorCountsCopy,
	}
}

// LogHTTPSummary logs comprehensive HTTP metrics
func (hm *HTTPMetrics) LogHTTPSummary() {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	logrus.WithFields(logrus.Fields{
		"total_requests":        hm.TotalRequests,
		"successful_requests":   hm.SuccessfulRequests,
		"failed_requests":       hm.FailedRequests,
		"timeout_requests":      hm.TimeoutRequests,
		"retry_attempts":        hm.RetryAttempts,
		"http_success_rate":     hm.GetHTTPSuccessRate(),
		"average_response_time": hm.AverageResponseTime,
		"total_response_time":   hm.TotalResponseTime,
		"status_code_counts":    hm.StatusCodeCounts,
		"error_counts":          hm.ErrorCounts,
	}).Info("HTTP metrics summary")
}
