// Command gateway runs the library system's request-orchestrating API
// gateway: it serves the public HTTP surface, fans requests out to the
// library, reservation, and rating backends behind per-dependency
// circuit breakers, and runs the in-process retry worker for saga
// steps that fail in a retryable way.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/authn"
	"github.com/1mb-dev/library-gateway/internal/breaker"
	"github.com/1mb-dev/library-gateway/internal/clients/library"
	"github.com/1mb-dev/library-gateway/internal/clients/rating"
	"github.com/1mb-dev/library-gateway/internal/clients/reservation"
	"github.com/1mb-dev/library-gateway/internal/config"
	"github.com/1mb-dev/library-gateway/internal/httpapi"
	"github.com/1mb-dev/library-gateway/internal/logging"
	"github.com/1mb-dev/library-gateway/internal/restclient"
	"github.com/1mb-dev/library-gateway/internal/retryqueue"
	"github.com/1mb-dev/library-gateway/internal/saga"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(os.Getenv("GATEWAY_DEBUG") == "true")
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	libraryBreaker := newBreaker(cfg, "library-system", log)
	reservationBreaker := newBreaker(cfg, "reservation-system", log)
	ratingBreaker := newBreaker(cfg, "rating-system", log)

	libraryClient := library.New(restclient.New("library-system", "http://"+cfg.Library.String(), libraryBreaker))
	reservationClient := reservation.New(restclient.New("reservation-system", "http://"+cfg.Reservation.String(), reservationBreaker))
	ratingClient := rating.New(restclient.New("rating-system", "http://"+cfg.Rating.String(), ratingBreaker))

	orchestrator := saga.New(libraryClient, reservationClient, ratingClient, log)

	retryQueue := retryqueue.New(log)
	issuer := authn.NewIssuer(cfg.JWTSigningKey, 24*time.Hour)

	handlers := &httpapi.Handlers{
		Library:     libraryClient,
		Reservation: reservationClient,
		Rating:      ratingClient,
		Saga:        orchestrator,
		Retry:       retryQueue,
		Issuer:      issuer,
		Log:         log,
	}
	router := httpapi.NewRouter(handlers, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retryWorkerDone := make(chan struct{})
	go func() {
		retryQueue.Run(ctx, orchestrator)
		close(retryWorkerDone)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("gateway listening", zap.Int("port", cfg.Port))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	stop()
	select {
	case <-retryWorkerDone:
	case <-time.After(5 * time.Second):
		log.Warn("retry queue worker did not stop in time, exiting anyway")
	}

	return nil
}

func newBreaker(cfg config.Config, name string, log *zap.Logger) *breaker.CircuitBreaker {
	return breaker.New(breaker.Settings{
		Name:             name,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Breaker.Timeout,
		OnStateChange: func(name string, from, to breaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccess: isRestSuccess,
	})
}

// isRestSuccess gates HalfOpen probe success on a strictly 2xx response,
// matching spec.md's "On 2xx: increment success_count" and leaving
// 3xx/4xx probes uncounted either way.
func isRestSuccess(result interface{}, err error) bool {
	if err != nil {
		return false
	}
	resp, ok := result.(*restclient.Response)
	if !ok {
		return true
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
