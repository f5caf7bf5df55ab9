package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Errors that stop the process before the orchestrator starts
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Collaborator failures, local to one cycle
	ErrorCategoryMarketData ErrorCategory = "MARKET_DATA"
	ErrorCategoryWallet     ErrorCategory = "WALLET"
	ErrorCategoryStrategy   ErrorCategory = "STRATEGY"
	ErrorCategoryAdvisory   ErrorCategory = "ADVISORY"
	ErrorCategoryNetwork    ErrorCategory = "NETWORK"
	ErrorCategoryTimeout    ErrorCategory = "TIMEOUT"
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	ErrorCategoryPanic      ErrorCategory = "PANIC"

	// Temporary errors
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the process
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal ||
		e.Category == ErrorCategoryCredentials ||
		e.Category == ErrorCategoryConfiguration
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryFatal, ErrorCategoryCredentials, ErrorCategoryConfiguration, ErrorCategoryValidation:
		return false
	default:
		return true
	}
}

// CategoryOf returns the category of err, or "" when err is nil.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.Category
	}
	return CategorizeError(err, "", "").Category
}

// CategorizeError attempts to categorize a generic error. Errors that are
// already a BotError anywhere in their chain are returned as is.
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "api secret") ||
		strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "unauthorized") {
		return WrapError(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "insufficient") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

func NewMarketDataError(component, operation string, err error) *BotError {
	return wrapKeepingCause(err, ErrorCategoryMarketData, component, operation)
}

func NewWalletError(component, operation string, err error) *BotError {
	return wrapKeepingCause(err, ErrorCategoryWallet, component, operation)
}

func NewStrategyError(component, operation string, err error) *BotError {
	return wrapKeepingCause(err, ErrorCategoryStrategy, component, operation)
}

func NewAdvisoryError(component, operation string, err error) *BotError {
	return wrapKeepingCause(err, ErrorCategoryAdvisory, component, operation)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewPanicError(component, operation string, recovered interface{}) *BotError {
	return NewBotError(ErrorCategoryPanic, component, operation, fmt.Sprintf("panic: %v", recovered))
}

// wrapKeepingCause promotes timeouts over the component category so a slow
// collaborator is reported as such.
func wrapKeepingCause(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		category = ErrorCategoryTimeout
	}
	return WrapError(err, category, component, operation)
}

// ErrorStats tracks error statistics. Safe for concurrent use.
type ErrorStats struct {
	mu               sync.RWMutex
	totalErrors      int
	errorsByCategory map[ErrorCategory]int
	recent           []*BotError
	maxRecent        int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		errorsByCategory: make(map[ErrorCategory]int),
		recent:           make([]*BotError, 0, maxRecentErrors),
		maxRecent:        maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	if err == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.totalErrors++
	es.errorsByCategory[err.Category]++

	es.recent = append(es.recent, err)
	if len(es.recent) > es.maxRecent {
		es.recent = es.recent[1:]
	}
}

// Total returns the number of recorded errors
func (es *ErrorStats) Total() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.totalErrors
}

// ByCategory returns a copy of the per-category counts
func (es *ErrorStats) ByCategory() map[ErrorCategory]int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	out := make(map[ErrorCategory]int, len(es.errorsByCategory))
	for c, n := range es.errorsByCategory {
		out[c] = n
	}
	return out
}

// GetErrorRate returns the error rate for a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if es.totalErrors == 0 {
		return 0.0
	}
	return float64(es.errorsByCategory[category]) / float64(es.totalErrors)
}

// HasRecentErrors checks if there have been errors in the recent history
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	recentCount := 0
	for _, err := range es.recent {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}
