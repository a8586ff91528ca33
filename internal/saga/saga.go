// Package saga implements the two multi-service transactions the
// gateway orchestrates on behalf of its callers: ReserveBook and
// ReturnBook. Each is a sequence of calls to the library, reservation,
// and rating backends with explicit compensating actions for the steps
// that can be undone, following the original gateway's router handlers
// step for step (including the return-rating rules) rather than a
// generic saga-framework abstraction.
package saga

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
)

// defaultStars is the rating delta applied to a return with no
// condition mismatch and no late days — the original gateway's
// "otherwise +1" rule.
const defaultStars = 1

// mismatchPenalty is applied once per violated condition (mismatch,
// lateness); the two penalties stack if both apply.
const mismatchPenalty = -10

// LibraryClient is the subset of internal/clients/library.Client the
// saga needs. Declared here, satisfied implicitly by the real client,
// so tests can substitute a fake without touching HTTP at all.
type LibraryClient interface {
	GetBook(ctx context.Context, bookUID string) (*models.Book, error)
	GetLibrary(ctx context.Context, libraryUID string) (*models.Library, error)
	TakeBook(ctx context.Context, libraryUID, bookUID string) error
	PutBack(ctx context.Context, libraryUID, bookUID string) error
}

// ReservationClient is the subset of
// internal/clients/reservation.Client the saga needs.
type ReservationClient interface {
	CountRented(ctx context.Context, userName string) (int, error)
	Get(ctx context.Context, userName, reservationUID string) (*models.ReservationRecord, error)
	Create(ctx context.Context, userName, bookUID, libraryUID string, tillDate time.Time) (*models.ReservationRecord, error)
	Delete(ctx context.Context, userName, reservationUID string) error
	UpdateStatus(ctx context.Context, userName, reservationUID string, status models.Status) error
}

// RatingClient is the subset of internal/clients/rating.Client the
// saga needs.
type RatingClient interface {
	Get(ctx context.Context, userName string) (*models.Rating, error)
	ChangeStars(ctx context.Context, userName string, delta int) error
}

// Orchestrator owns the three downstream clients and runs ReserveBook
// and ReturnBook against them.
type Orchestrator struct {
	library     LibraryClient
	reservation ReservationClient
	rating      RatingClient
	log         *zap.Logger
}

// New builds an Orchestrator from its three downstream clients.
func New(lib LibraryClient, res ReservationClient, rat RatingClient, log *zap.Logger) *Orchestrator {
	return &Orchestrator{library: lib, reservation: res, rating: rat, log: log}
}

// ReserveBook holds a copy of a book for userName at libraryUID until
// req.TillDate, enforcing the reservation quota tied to the user's
// rating (a user may not hold more books than they have stars).
//
// Forward path: create the reservation first, then take the book from
// the library. If the take fails after the reservation was already
// written, the reservation is compensated (deleted) before the failure
// is classified and returned.
func (o *Orchestrator) ReserveBook(ctx context.Context, userName string, req models.ReservationRequest) (*models.ReservationResult, error) {
	log := o.log.With(zap.String("saga", "reserve_book"), zap.String("user", userName), zap.String("book", req.BookUID))

	rentedCount, err := o.reservation.CountRented(ctx, userName)
	if err != nil {
		return nil, apierror.AtReadStep(err)
	}

	userRating, err := o.rating.Get(ctx, userName)
	if err != nil {
		return nil, apierror.AtReadStep(err)
	}
	stars := 0
	if userRating != nil {
		stars = userRating.Stars
	}
	if rentedCount >= stars {
		return nil, apierror.New(apierror.PermissionDenied, "reservation quota exceeded for current rating")
	}

	record, err := o.reservation.Create(ctx, userName, req.BookUID, req.LibraryUID, req.TillDate)
	if err != nil {
		// no prior mutation occurred, so there is nothing to compensate.
		return nil, apierror.AtMutationStep(err)
	}

	if err := o.library.TakeBook(ctx, req.LibraryUID, req.BookUID); err != nil {
		log.Warn("take book failed after reservation was created, compensating", zap.Error(err))
		if compErr := o.reservation.Delete(ctx, userName, record.ReservationUID); compErr != nil {
			// best-effort: the compensation failing does not change the
			// classification of the originating failure, only its
			// visible side effect (a dangling reservation).
			log.Error("compensation delete failed, reservation left dangling", zap.Error(compErr))
		}
		return nil, apierror.AtMutationStep(err)
	}

	book, err := o.library.GetBook(ctx, req.BookUID)
	if err != nil {
		log.Warn("failed to hydrate book for response", zap.Error(err))
	}
	lib, err := o.library.GetLibrary(ctx, req.LibraryUID)
	if err != nil {
		log.Warn("failed to hydrate library for response", zap.Error(err))
	}

	result := &models.ReservationResult{
		ReservationView: models.ReservationView{
			Reservation: record.Reservation,
			Book:        placeholderBook(req.BookUID, book),
			Library:     placeholderLibrary(req.LibraryUID, lib),
		},
		Rating: stars,
	}
	return result, nil
}

// ReturnBook closes out a reservation: it returns the book to the
// library, adjusts the reservation's status (RETURNED or EXPIRED
// depending on whether it was returned on time), and adjusts the
// user's rating based on condition and lateness.
//
// The library-system return is the first mutation, so its own failure
// needs no compensation. A failure updating the reservation's status
// is compensated by
// re-taking the book from the library (undoing the return). A failure
// updating the rating is compensated by both rolling the reservation
// back to RENTED and re-taking the book, restoring the pre-return
// state entirely.
func (o *Orchestrator) ReturnBook(ctx context.Context, userName, reservationUID string, req models.ReturnRequest) error {
	log := o.log.With(zap.String("saga", "return_book"), zap.String("user", userName), zap.String("reservation", reservationUID))

	record, err := o.reservation.Get(ctx, userName, reservationUID)
	if err != nil {
		return apierror.AtReadStep(err)
	}
	if record == nil {
		return apierror.New(apierror.ServiceUnavailable, "reservation not found")
	}

	status := models.StatusReturned
	late := req.Date.After(record.TillDate)
	if late {
		status = models.StatusExpired
	}

	book, err := o.library.GetBook(ctx, record.BookUID)
	if err != nil {
		return apierror.AtReadStep(err)
	}
	if book == nil {
		// the gateway has no condition on file to compare against —
		// the library backend returned no data, the UNKNOWN sentinel
		// case from §3 of the data model.
		return apierror.New(apierror.ServiceUnavailable, "book condition unavailable")
	}

	delta := 0
	mismatch := req.Condition != book.Condition && req.Condition != models.ConditionUnknown
	if mismatch {
		delta += mismatchPenalty
	}
	if late {
		delta += mismatchPenalty
	}
	if delta == 0 {
		delta = defaultStars
	}

	if err := o.library.PutBack(ctx, record.LibraryUID, record.BookUID); err != nil {
		// no prior mutation occurred, so there is nothing to compensate.
		return apierror.AtMutationStep(err)
	}

	if err := o.reservation.UpdateStatus(ctx, userName, reservationUID, status); err != nil {
		log.Warn("status update failed after book was returned, compensating", zap.Error(err))
		if compErr := o.library.TakeBook(ctx, record.LibraryUID, record.BookUID); compErr != nil {
			log.Error("compensation re-take failed, book left in returned state", zap.Error(compErr))
		}
		return apierror.AtMutationStep(err)
	}

	if err := o.rating.ChangeStars(ctx, userName, delta); err != nil {
		log.Warn("rating update failed after status change, compensating", zap.Error(err))
		if compErr := o.reservation.UpdateStatus(ctx, userName, reservationUID, models.StatusRented); compErr != nil {
			log.Error("compensation status rollback failed", zap.Error(compErr))
		}
		if compErr := o.library.TakeBook(ctx, record.LibraryUID, record.BookUID); compErr != nil {
			log.Error("compensation re-take failed after rating update failure", zap.Error(compErr))
		}
		return apierror.AtMutationStep(err)
	}

	return nil
}

func placeholderBook(uid string, b *models.Book) models.Book {
	if b != nil {
		return *b
	}
	return models.Book{BookUID: uid, Condition: models.ConditionUnknown}
}

func placeholderLibrary(uid string, l *models.Library) models.Library {
	if l != nil {
		return *l
	}
	return models.Library{LibraryUID: uid}
}
