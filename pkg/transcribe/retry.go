// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package transcribe

// Status checks fail the session on the first error by default. RetryConfig
// lets a caller absorb transient failures of a single check (connection
// resets, gateway errors) before the failure becomes terminal. Waits between
// attempts use exponential backoff with optional jitter. The Controller
// schedules them on its clock like regular checks, so Reset cancels a pending
// retry.

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for a single status check.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the first try (0 = no retries).
	MaxAttempts int

	// InitialWait is the wait before the first retry.
	InitialWait time.Duration

	// MaxWait caps the wait between retries (0 = uncapped).
	MaxWait time.Duration

	// Multiplier for exponential backoff (must be >= 1.0).
	Multiplier float64

	// Jitter adds up to ±25% randomness to each wait.
	Jitter bool
}

// DefaultRetryConfig returns a config with retries enabled.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// NoRetry returns a config that disables retries.
func NoRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 0,
	}
}

// Validate checks if the retry config is valid.
func (rc RetryConfig) Validate() error {
	if rc.MaxAttempts < 0 {
		return fmt.Errorf("MaxAttempts must be >= 0, got %d", rc.MaxAttempts)
	}

	if rc.MaxAttempts == 0 {
		return nil
	}

	if rc.InitialWait < 0 {
		return fmt.Errorf("InitialWait must be >= 0, got %v", rc.InitialWait)
	}
	if rc.MaxWait < 0 {
		return fmt.Errorf("MaxWait must be >= 0, got %v", rc.MaxWait)
	}
	if rc.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be >= 1.0, got %f", rc.Multiplier)
	}
	if rc.MaxWait > 0 && rc.InitialWait > rc.MaxWait {
		return fmt.Errorf("InitialWait (%v) must be <= MaxWait (%v)", rc.InitialWait, rc.MaxWait)
	}
	return nil
}

// calculateWait computes the wait time before retry number attempt (1-indexed).
func (rc RetryConfig) calculateWait(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	wait := float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt-1))

	if rc.MaxWait > 0 && wait > float64(rc.MaxWait) {
		wait = float64(rc.MaxWait)
	}

	if rc.Jitter {
		jitterRange := wait * 0.25
		jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
		wait += jitter
	}

	if wait < 0 {
		wait = 0
	}

	return time.Duration(wait)
}

// isRetryableError reports whether a failed check may succeed if repeated.
//
// Retryable: transport failures and 502/503/504 rejections.
// Not retryable: other rejections, malformed responses, failed jobs and
// context cancellation.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	switch te.Kind {
	case KindTransport:
		return true
	case KindRejected:
		switch te.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// backoff returns the wait before retry n (1-indexed) of a check that failed
// with err. It reports false once retries are exhausted or err is final.
func (rc RetryConfig) backoff(n int, err error) (time.Duration, bool) {
	if n > rc.MaxAttempts || !isRetryableError(err) {
		return 0, false
	}
	return rc.calculateWait(n), true
}
