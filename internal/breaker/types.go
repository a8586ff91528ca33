// Package breaker implements a per-dependency circuit breaker.
//
// The breaker is a three-state machine (Closed, Open, HalfOpen) guarding a
// single downstream call site. Unlike a general-purpose breaker library,
// this one has no adaptive/percentage thresholds: it trips after a fixed
// number of failures in Closed state (successes in between do not reset
// the count) and recovers after a fixed number of
// consecutive successes. State is held in atomic fields so Request can be
// called concurrently from many request-handling goroutines without a
// lock.
package breaker

import (
	"errors"
	"time"
)

// State is the circuit breaker's current state.
type State int32

const (
	// StateClosed passes calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects every call without attempting it.
	StateOpen
	// StateHalfOpen allows probe calls through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Counts is a point-in-time snapshot of a breaker's request counters.
type Counts struct {
	FailureCount uint32
	SuccessCount uint32
}

// Settings configures a new CircuitBreaker. All three thresholds are
// required by the gateway's contract; there are no adaptive or
// percentage-based variants.
type Settings struct {
	// Name identifies the breaker in logs and OnStateChange callbacks.
	Name string

	// FailureThreshold is the number of counted failures in Closed
	// state that trips the breaker to Open. Successes do not reset the
	// count; it is reset only when the breaker trips or closes.
	FailureThreshold uint32

	// SuccessThreshold is the number of consecutive successes in
	// HalfOpen state required to close the breaker.
	SuccessThreshold uint32

	// OpenTimeout is how long the breaker stays Open before a timer
	// fires and transitions it to HalfOpen.
	OpenTimeout time.Duration

	// OnStateChange is invoked (if non-nil) after every transition. It
	// must be cheap and non-blocking; slow work should be dispatched to
	// its own goroutine.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether an error returned by the wrapped call
	// counts against FailureThreshold. Errors for which it returns
	// false still surface to the caller but leave counters untouched
	// (4xx and parse errors are application-level, not dependency
	// health signals). Defaults to "err != nil".
	IsFailure func(err error) bool

	// IsSuccess decides, in HalfOpen state only, whether a non-failure
	// probe result counts toward SuccessThreshold. A 3xx/4xx response
	// is neither a counted failure nor a counted success: it passes
	// through to the caller untouched and leaves the breaker in
	// HalfOpen. Defaults to "err == nil".
	IsSuccess func(result interface{}, err error) bool
}

// ErrOpen is returned by Request when the breaker is Open and the call is
// rejected without being attempted.
var ErrOpen = errors.New("breaker: circuit open")

func defaultIsFailure(err error) bool {
	return err != nil
}

func defaultIsSuccess(result interface{}, err error) bool {
	return err == nil
}
