package scrape

import (
	"errors"
	"fmt"
	"strings"
)

// Adapter failures fall into exactly three classes. Auth and blocked failures
// must never be retried; only transient failures are eligible for retry.
var (
	// ErrNotConfigured marks missing or invalid source credentials.
	ErrNotConfigured = errors.New("source not configured")
	// ErrBlocked marks rate limiting, captcha, or anti-bot detection.
	ErrBlocked = errors.New("source blocked the request")
	// ErrTransient marks network or timeout failures eligible for retry.
	ErrTransient = errors.New("transient source failure")
)

// ErrorClass is the coarse failure classification surfaced to the boundary
// layer so it can map failures onto distinct status codes.
type ErrorClass string

const (
	ClassNotConfigured ErrorClass = "not_configured"
	ClassBlocked       ErrorClass = "blocked"
	ClassInternal      ErrorClass = "internal"
)

// Classify maps an adapter error onto its failure class.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ClassNotConfigured
	case errors.Is(err, ErrBlocked):
		return ClassBlocked
	default:
		return ClassInternal
	}
}

// IsRetryable reports whether the error may be retried by the adapter's
// bounded retry loop.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// NotConfigured wraps a credential or configuration failure.
func NotConfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, fmt.Sprintf(format, args...))
}

// Blocked wraps an anti-bot or rate-limit failure.
func Blocked(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBlocked, fmt.Sprintf(format, args...))
}

// Transient wraps a retryable network failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// blockMarkers are fragments that indicate a captcha or anti-bot page.
// A blocked response and an empty result have different failure semantics
// and must never be conflated.
var blockMarkers = []string{
	"captcha",
	"are you a human",
	"robot check",
	"unusual traffic",
	"access denied",
	"request blocked",
	"verify you are human",
	"datadome",
	"perimeterx",
}

// LooksBlocked reports whether a response body contains anti-bot markers.
func LooksBlocked(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
