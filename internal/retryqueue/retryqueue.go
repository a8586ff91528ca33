// Package retryqueue is the gateway's in-process, non-durable retry
// mechanism for saga operations that failed with a RetryableFailure
// classification. It is the Go analogue of the original gateway's
// asyncio Queue + queue_processor task: a single worker goroutine reads
// off an unbounded in-memory buffer and re-attempts each entry,
// re-enqueuing it on another retryable failure.
//
// There is no persistence and no at-most-once/exactly-once guarantee:
// entries queued here are lost on process restart, and a crash between
// a downstream write and the retry being marked done can replay it.
// This matches the gateway's documented scope — a durable, multi-
// instance retry mechanism is a Non-goal.
package retryqueue

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
)

// Executor is the subset of the saga orchestrator the worker needs to
// replay a failed attempt. Defined here rather than imported from
// internal/saga, so this package does not depend on saga and tests can
// drive the worker with a fake: the HTTP handlers enqueue retry
// entries, and the worker replays them through whatever Executor Run
// is given.
type Executor interface {
	ReserveBook(ctx context.Context, userName string, req models.ReservationRequest) (*models.ReservationResult, error)
	ReturnBook(ctx context.Context, userName, reservationUID string, req models.ReturnRequest) error
}

// Entry is a tagged retry record. Exactly one of ReserveBook or
// ReturnBook is set; this replaces the original implementation's
// dynamic "callable plus args tuple" record, which Go's static typing
// does not offer a direct equivalent for.
type Entry struct {
	ReserveBook *ReserveBookRetry
	ReturnBook  *ReturnBookRetry
}

// ReserveBookRetry is a deferred retry of a ReserveBook attempt.
type ReserveBookRetry struct {
	UserName string
	Request  models.ReservationRequest
}

// ReturnBookRetry is a deferred retry of a ReturnBook attempt.
type ReturnBookRetry struct {
	UserName       string
	ReservationUID string
	Request        models.ReturnRequest
}

// Queue is an unbounded FIFO of retry Entry values, drained by a single
// worker running Run. The backing storage is a
// mutex-guarded slice rather than a Go channel, since a channel's
// buffer is necessarily fixed-size and spec.md requires Enqueue to
// always succeed without blocking the caller, even under sustained
// downstream outage. A buffered signal channel wakes the worker
// without the caller ever touching it directly.
type Queue struct {
	mu     sync.Mutex
	buffer []Entry
	signal chan struct{}
	log    *zap.Logger
}

// New creates an empty Queue.
func New(log *zap.Logger) *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
		log:    log,
	}
}

// Enqueue submits an entry for retry. It appends to the in-memory
// slice under a short-lived lock and never blocks the caller, matching
// the gateway's "always succeeds" retry contract: dropping a queued
// retry would lose an operation the caller was told (204) is pending.
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	q.buffer = append(q.buffer, e)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// dequeue pops the oldest entry, if any, without blocking.
func (q *Queue) dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffer) == 0 {
		return Entry{}, false
	}
	e := q.buffer[0]
	q.buffer[0] = Entry{}
	q.buffer = q.buffer[1:]
	return e, true
}

// Run is the single worker loop: it processes entries on the calling
// goroutine and blocks until ctx is cancelled, at which point it stops
// processing and returns.
// Queued-but-undrained entries are lost, which is the accepted
// shutdown behavior for a non-durable queue.
func (q *Queue) Run(ctx context.Context, exec Executor) {
	for {
		for {
			entry, ok := q.dequeue()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				q.log.Info("retry queue worker stopping")
				return
			}
			q.process(ctx, exec, entry)
		}

		select {
		case <-ctx.Done():
			q.log.Info("retry queue worker stopping")
			return
		case <-q.signal:
		}
	}
}

// process dispatches one entry by tag and, per the gateway's retry
// contract, re-enqueues it at the tail when the replay again comes
// back RetryableFailure. Any other outcome (success, or a non-
// retryable error) discards the entry: a success needs no further
// action, and a non-retryable error is logged and dropped rather than
// retried forever.
func (q *Queue) process(ctx context.Context, exec Executor, entry Entry) {
	switch {
	case entry.ReserveBook != nil:
		r := entry.ReserveBook
		_, err := exec.ReserveBook(ctx, r.UserName, r.Request)
		if err == nil {
			return
		}
		if apierror.KindOf(err) == apierror.RetryableFailure {
			q.log.Info("retry of ReserveBook still unavailable, re-enqueuing", zap.String("user", r.UserName), zap.Error(err))
			q.Enqueue(entry)
			return
		}
		q.log.Warn("retry of ReserveBook failed, dropping", zap.String("user", r.UserName), zap.Error(err))
	case entry.ReturnBook != nil:
		r := entry.ReturnBook
		err := exec.ReturnBook(ctx, r.UserName, r.ReservationUID, r.Request)
		if err == nil {
			return
		}
		if apierror.KindOf(err) == apierror.RetryableFailure {
			q.log.Info("retry of ReturnBook still unavailable, re-enqueuing", zap.String("reservation", r.ReservationUID), zap.Error(err))
			q.Enqueue(entry)
			return
		}
		q.log.Warn("retry of ReturnBook failed, dropping", zap.String("reservation", r.ReservationUID), zap.Error(err))
	default:
		q.log.Error("retry queue received an entry with no tag set")
	}
}

// Len returns the number of entries currently buffered, for a
// health/debug endpoint.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}
