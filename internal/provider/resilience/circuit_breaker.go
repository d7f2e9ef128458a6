// Package resilience provides the HTTP client used for Pushbullet API calls:
// per-request timeouts, an opt-in circuit breaker and opt-in retries for
// idempotent requests.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probe requests let through while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the counts while closed. Zero keeps them until the
	// breaker changes state.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when to open. Default: NeverTrip, so every call
	// reaches the server and the breaker only keeps counts.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful classifies errors. Default: IgnoreCallerCancellation.
	IsSuccessful func(err error) bool

	// OnStateChange is called on every transition (optional).
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the configuration used for API clients.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      30 * time.Second,
		ReadyToTrip:  NeverTrip,
		IsSuccessful: IgnoreCallerCancellation,
	}
}

// NeverTrip keeps the breaker closed whatever the counts.
func NeverTrip(gobreaker.Counts) bool {
	return false
}

// FailFast opens the breaker once 5 requests have been seen and at least
// half of them failed.
func FailFast(counts gobreaker.Counts) bool {
	return TripOnFailureRatio(5, 0.5)(counts)
}

// TripOnFailureRatio opens the breaker after minRequests when the share of
// failures reaches ratio.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 || counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// IgnoreCallerCancellation counts a request the caller cancelled as a
// success. Deadlines still count as failures: a slow API is unhealthy.
func IgnoreCallerCancellation(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// LogStateChanges returns an OnStateChange hook that logs transitions.
func LogStateChanges(log zerolog.Logger) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		event := log.Info()
		if to == gobreaker.StateOpen {
			event = log.Warn()
		}
		event.
			Str("client", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a circuit breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		IsSuccessful:  cfg.IsSuccessful,
		OnStateChange: cfg.OnStateChange,
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}
