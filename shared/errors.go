package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies where in the pipeline an error originated.
type ErrorCategory string

const (
	ErrorCategoryConfiguration  ErrorCategory = "configuration"
	ErrorCategoryUpstream       ErrorCategory = "upstream"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryProcessing     ErrorCategory = "processing"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryConflict       ErrorCategory = "conflict"
)

// ServiceError is the standardized error carried across service
// boundaries. Cause holds the original error for unwrapping and is not
// serialized.
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable.
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// NewServiceError creates a new service error.
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// LogError logs the error with structured fields.
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// WrapError wraps an existing error with service error context. A
// ServiceError passed in keeps its category and only gains the new
// service/operation context.
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	if serviceErr, ok := err.(*ServiceError); ok {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// IsRetryableError checks if an error is retryable, falling back to
// message heuristics for plain errors.
func IsRetryableError(err error) bool {
	if serviceErr, ok := err.(*ServiceError); ok {
		return serviceErr.IsRetryable()
	}

	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "deadlock",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}

// BuildBatchErrorSummary renders a compact summary of a batch of
// persistence failures for inclusion in a sync log message. Only a few
// sample errors are spelled out to keep the message bounded.
func BuildBatchErrorSummary(successCount, failureCount int, sampleErrors []error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d succeeded, %d failed", successCount, failureCount)

	sampleSize := len(sampleErrors)
	if sampleSize > 3 {
		sampleSize = 3
	}
	for i := 0; i < sampleSize; i++ {
		fmt.Fprintf(&b, "; %s", sampleErrors[i].Error())
	}
	if failureCount > sampleSize {
		fmt.Fprintf(&b, "; and %d more", failureCount-sampleSize)
	}

	return b.String()
}
