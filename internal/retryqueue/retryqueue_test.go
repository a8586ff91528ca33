package retryqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
)

type fakeExecutor struct {
	mu            sync.Mutex
	reserveCalls  []string
	returnCalls   []string
	failNextTimes int
}

func (f *fakeExecutor) ReserveBook(ctx context.Context, userName string, req models.ReservationRequest) (*models.ReservationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls = append(f.reserveCalls, userName)
	if f.failNextTimes > 0 {
		f.failNextTimes--
		return nil, apierror.New(apierror.RetryableFailure, "still unavailable")
	}
	return &models.ReservationResult{}, nil
}

func (f *fakeExecutor) ReturnBook(ctx context.Context, userName, reservationUID string, req models.ReturnRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returnCalls = append(f.returnCalls, reservationUID)
	return nil
}

func TestWorkerDrainsReserveAndReturnEntries(t *testing.T) {
	log := zap.NewNop()
	q := New(log)
	exec := &fakeExecutor{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, exec)
		close(done)
	}()

	q.Enqueue(Entry{ReserveBook: &ReserveBookRetry{UserName: "alice", Request: models.ReservationRequest{BookUID: "b1"}}})
	q.Enqueue(Entry{ReturnBook: &ReturnBookRetry{UserName: "alice", ReservationUID: "r1"}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		exec.mu.Lock()
		n := len(exec.reserveCalls) + len(exec.returnCalls)
		exec.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.reserveCalls) != 1 || exec.reserveCalls[0] != "alice" {
		t.Fatalf("reserveCalls = %v", exec.reserveCalls)
	}
	if len(exec.returnCalls) != 1 || exec.returnCalls[0] != "r1" {
		t.Fatalf("returnCalls = %v", exec.returnCalls)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorkerReenqueuesOnRetryableFailure(t *testing.T) {
	log := zap.NewNop()
	q := New(log)
	exec := &fakeExecutor{failNextTimes: 2}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, exec)
		close(done)
	}()

	q.Enqueue(Entry{ReserveBook: &ReserveBookRetry{UserName: "alice"}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		exec.mu.Lock()
		n := len(exec.reserveCalls)
		exec.mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.reserveCalls) != 3 {
		t.Fatalf("reserveCalls = %v, want 3 attempts (2 retryable failures + 1 success)", exec.reserveCalls)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestLenReportsBacklogDepth(t *testing.T) {
	q := New(zap.NewNop())
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	q.Enqueue(Entry{ReserveBook: &ReserveBookRetry{UserName: "bob"}})
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}
