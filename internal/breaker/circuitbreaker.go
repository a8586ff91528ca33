package breaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreaker guards a single downstream dependency. The zero value is
// not usable; construct with New.
//
// All exported methods are safe for concurrent use. State and counters are
// atomic; the only thing protected by a plain mutex is the single
// outstanding recovery timer, since arming/cancelling it is not naturally
// expressible with CAS alone.
type CircuitBreaker struct {
	name             string
	failureThreshold uint32
	successThreshold uint32
	openTimeout      time.Duration
	onStateChange    func(name string, from, to State)
	isFailure        func(err error) bool
	isSuccess        func(result interface{}, err error) bool

	state atomic.Int32

	failureCount atomic.Uint32
	successCount atomic.Uint32

	timerMu sync.Mutex
	timer   *time.Timer
}

// New creates a CircuitBreaker in the Closed state. FailureThreshold and
// SuccessThreshold default to 1 if unset; OpenTimeout defaults to 15
// seconds (the gateway's CIRCUIT_BREAKER_TIMEOUT default).
func New(settings Settings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             settings.Name,
		failureThreshold: settings.FailureThreshold,
		successThreshold: settings.SuccessThreshold,
		openTimeout:      settings.OpenTimeout,
		onStateChange:    settings.OnStateChange,
		isFailure:        settings.IsFailure,
		isSuccess:        settings.IsSuccess,
	}
	if cb.failureThreshold == 0 {
		cb.failureThreshold = 1
	}
	if cb.successThreshold == 0 {
		cb.successThreshold = 1
	}
	if cb.openTimeout == 0 {
		cb.openTimeout = 15 * time.Second
	}
	if cb.isFailure == nil {
		cb.isFailure = defaultIsFailure
	}
	if cb.isSuccess == nil {
		cb.isSuccess = defaultIsSuccess
	}
	cb.state.Store(int32(StateClosed))
	return cb
}

// Name returns the breaker's identifier.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state. The value may change immediately after
// this call returns due to a concurrent Request or a timer firing.
func (cb *CircuitBreaker) State() State {
	return State(cb.state.Load())
}

// Counts returns a snapshot of the failure/success counters for the
// current state.
func (cb *CircuitBreaker) Counts() Counts {
	return Counts{
		FailureCount: cb.failureCount.Load(),
		SuccessCount: cb.successCount.Load(),
	}
}

// Request executes call under the breaker's protection.
//
//   - Closed: call is executed. On a counted failure (isFailure(err) ==
//     true), the failure counter increments; reaching FailureThreshold
//     trips the breaker to Open and arms the recovery timer. On an
//     uncounted error, the result/error are still returned but counters
//     are untouched. On success, counters are left alone.
//   - Open: call is never attempted; Request returns (nil, ErrOpen)
//     immediately.
//   - HalfOpen: call is executed. A counted success (isSuccess(result,
//     err) == true, strictly 2xx for an HTTP-backed call) increments
//     the success counter; reaching SuccessThreshold closes the
//     breaker. Any counted failure immediately reopens the breaker and
//     rearms the timer. A result that is neither a counted failure nor
//     a counted success (3xx/4xx) passes through untouched and leaves
//     the breaker HalfOpen.
//
// Request does not swallow panics: a panicking call function is counted
// as a failure (and trips the breaker from HalfOpen), then the panic
// propagates to the caller.
func (cb *CircuitBreaker) Request(call func() (interface{}, error)) (result interface{}, err error) {
	switch cb.State() {
	case StateOpen:
		return nil, ErrOpen
	case StateHalfOpen:
		return cb.requestHalfOpen(call)
	default:
		return cb.requestClosed(call)
	}
}

func (cb *CircuitBreaker) requestClosed(call func() (interface{}, error)) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			cb.onFailure()
			panic(r)
		}
	}()

	result, err = call()
	if cb.isFailure(err) {
		cb.onFailure()
	}
	return result, err
}

func (cb *CircuitBreaker) requestHalfOpen(call func() (interface{}, error)) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			cb.tripOpen()
			panic(r)
		}
	}()

	result, err = call()
	if cb.isFailure(err) {
		cb.tripOpen()
		return result, err
	}
	if cb.isSuccess(result, err) {
		cb.onProbeSuccess()
	}
	return result, err
}

// onFailure increments the Closed-state failure counter and trips the
// breaker once FailureThreshold is reached.
func (cb *CircuitBreaker) onFailure() {
	n := cb.failureCount.Add(1)
	if n >= cb.failureThreshold {
		cb.tripOpen()
	}
}

// onProbeSuccess increments the HalfOpen success counter and closes the
// breaker once SuccessThreshold is reached.
func (cb *CircuitBreaker) onProbeSuccess() {
	n := cb.successCount.Add(1)
	if n >= cb.successThreshold {
		cb.close()
	}
}
