// Package apierror classifies errors raised anywhere in the gateway
// (downstream clients, the saga orchestrator, the retry worker) into a
// fixed set of kinds the HTTP layer can map to status codes without
// knowing anything about where the error came from.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of a fixed set of error classifications.
type Kind int

const (
	// Internal covers anything that doesn't fit the other kinds: a bug,
	// an unreachable-code path, an unexpected response shape.
	Internal Kind = iota

	// Validation means the caller's request itself was malformed
	// (bad paging parameters, missing required fields).
	Validation

	// PermissionDenied means the caller is authenticated but not
	// allowed to act on the resource in question.
	PermissionDenied

	// ServiceUnavailable means a dependency did not answer (or had no
	// data) before anything was mutated: the request fails outright
	// with nothing to compensate.
	ServiceUnavailable

	// RetryableFailure means a dependency did not answer at a mutation
	// step, and the operation is safe to retry asynchronously via the
	// retry queue.
	RetryableFailure
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case PermissionDenied:
		return "permission_denied"
	case ServiceUnavailable:
		return "service_unavailable"
	case RetryableFailure:
		return "retryable_failure"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code the gateway's front end uses for
// a given Kind.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusUnprocessableEntity
	case PermissionDenied:
		return http.StatusForbidden
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	case RetryableFailure:
		return http.StatusNoContent
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error carrying a Kind alongside the usual
// message/wrapped-cause pair.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a classified Error around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validationf builds a Validation-kind error with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

// ServiceUnavailablef builds a ServiceUnavailable-kind error with a
// formatted message.
func ServiceUnavailablef(format string, args ...interface{}) *Error {
	return New(ServiceUnavailable, fmt.Sprintf(format, args...))
}

// AsError unwraps err looking for an *Error, returning (nil, false) if
// none is found anywhere in the chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error,
// otherwise Internal.
func KindOf(err error) Kind {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Kind
	}
	return Internal
}

// ErrUnavailable is the sentinel a downstream client returns when its
// circuit breaker is open, the call itself failed (5xx, connect
// timeout), or a write got back a status other than the one success
// status it expects. It deliberately carries no Kind of its own: per
// the gateway's classification rule, the same "dependency didn't
// answer" signal means ServiceUnavailable at a read step (nothing has
// been mutated yet) and RetryableFailure at a mutation step (the
// saga is now retried in the background). AtReadStep/AtMutationStep
// apply that context at the call site.
var ErrUnavailable = errors.New("downstream dependency unavailable")

// AtReadStep classifies err as ServiceUnavailable if it is (or wraps)
// ErrUnavailable, leaving any other error (already-classified or not)
// untouched. Use this at a saga step that has not yet mutated
// anything: the call failing means the saga can fail outright with no
// compensation required.
func AtReadStep(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return Wrap(ServiceUnavailable, "dependency unavailable", err)
	}
	return err
}

// AtMutationStep classifies err as RetryableFailure if it is (or wraps)
// ErrUnavailable, leaving any other error untouched. Use this at a
// saga step that performs (or follows) a mutation: the call failing
// means the saga must be retried in the background, compensating
// whatever already succeeded.
func AtMutationStep(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return Wrap(RetryableFailure, "dependency unavailable, retry scheduled", err)
	}
	return err
}
