// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Analysis errors.
	ErrNoBenchmark    = errors.New("no benchmark for segment")
	ErrMissingMetric  = errors.New("missing metric")
	ErrNoTransactions = errors.New("no transactions to analyze")
	ErrInvalidInput   = errors.New("invalid input")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// NoBenchmarkError reports a segment with no stored benchmark.
type NoBenchmarkError struct {
	Segment string
	Kind    string
}

func (e *NoBenchmarkError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("no %s benchmark for %s", e.Kind, e.Segment)
	}
	return fmt.Sprintf("no benchmark for %s", e.Segment)
}

func (e *NoBenchmarkError) Unwrap() error {
	return ErrNoBenchmark
}

// UserMessage is the text shown when no benchmark exists.
func (e *NoBenchmarkError) UserMessage() string {
	if e.Kind != "" {
		return fmt.Sprintf("No %s benchmark data available for %s. Load benchmarks for this segment with 'flavyr seed'.", e.Kind, e.Segment)
	}
	return fmt.Sprintf("No benchmark data available for %s. Load benchmarks for this segment with 'flavyr seed'.", e.Segment)
}

// MissingMetricError reports a registered KPI absent from a record.
type MissingMetricError struct {
	KPI    string
	Record string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("%s record is missing metric %q", e.Record, e.KPI)
}

func (e *MissingMetricError) Unwrap() error {
	return ErrMissingMetric
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
