package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/authn"
	"github.com/1mb-dev/library-gateway/internal/clients/library"
	"github.com/1mb-dev/library-gateway/internal/clients/rating"
	"github.com/1mb-dev/library-gateway/internal/clients/reservation"
	"github.com/1mb-dev/library-gateway/internal/models"
	"github.com/1mb-dev/library-gateway/internal/retryqueue"
	"github.com/1mb-dev/library-gateway/internal/saga"
)

// Handlers holds every dependency the route table needs. It is
// intentionally a flat struct of already-constructed clients rather
// than a single do-everything service, mirroring the original
// gateway's router module importing each backend's api.py directly.
type Handlers struct {
	Library     *library.Client
	Reservation *reservation.Client
	Rating      *rating.Client
	Saga        *saga.Orchestrator
	Retry       *retryqueue.Queue
	Issuer      *authn.Issuer
	Log         *zap.Logger
}

// validatePaging enforces the original gateway's paging contract:
// page >= 0, 1 <= size <= 100.
func validatePaging(page, size int) error {
	if page < 0 {
		return apierror.Validationf("page must be >= 0, got %d", page)
	}
	if size < 1 || size > 100 {
		return apierror.Validationf("size must be between 1 and 100, got %d", size)
	}
	return nil
}

func pagingParams(r *http.Request) (page, size int, err error) {
	page = 0
	size = 10
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, apierror.Validationf("page must be an integer")
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			return 0, 0, apierror.Validationf("size must be an integer")
		}
	}
	if err := validatePaging(page, size); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// IssueToken is the gateway's stand-in login endpoint: POST a username,
// get back a bearer token. There is no password check — the original
// gateway had no authentication layer at all, trusting a caller-set
// username header; this keeps that trust model but requires it be
// exchanged for a signed token first.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserName string `json:"userName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserName == "" {
		writeError(w, http.StatusUnprocessableEntity, "userName is required", err)
		return
	}
	token, err := h.Issuer.IssueToken(body.UserName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// Health is the gateway's liveness probe. It reports 200 unconditionally
// once the process is serving requests, matching the original
// /manage/health endpoint's unconditional 200.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetLibraries passes a paged library listing straight through to the
// library-system backend.
func (h *Handlers) GetLibraries(w http.ResponseWriter, r *http.Request) {
	page, size, err := pagingParams(r)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	result, err := h.Library.ListLibraries(r.Context(), page, size)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetBooks passes a paged catalog listing for one library straight
// through to the library-system backend.
func (h *Handlers) GetBooks(w http.ResponseWriter, r *http.Request) {
	libraryUID := chi.URLParam(r, "libraryUid")
	page, size, err := pagingParams(r)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	showAll := r.URL.Query().Get("showAll") == "true"
	result, err := h.Library.ListBooks(r.Context(), libraryUID, page, size, showAll)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetReservations lists the caller's own reservations, each enriched
// with the book and library it references. This is still a read-only
// pass-through with no saga/compensation logic, but unlike the other
// listing endpoints it fans out to a second backend per item rather
// than forwarding a single downstream response verbatim.
func (h *Handlers) GetReservations(w http.ResponseWriter, r *http.Request) {
	userName := userNameFromContext(r.Context())
	records, err := h.Reservation.ListByUser(r.Context(), userName)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}

	views := make([]models.ReservationView, 0, len(records))
	for _, rec := range records {
		book, err := h.Library.GetBook(r.Context(), rec.BookUID)
		if err != nil {
			h.Log.Warn("failed to hydrate book for reservation listing", zap.String("reservation", rec.ReservationUID), zap.Error(err))
		}
		lib, err := h.Library.GetLibrary(r.Context(), rec.LibraryUID)
		if err != nil {
			h.Log.Warn("failed to hydrate library for reservation listing", zap.String("reservation", rec.ReservationUID), zap.Error(err))
		}
		views = append(views, models.ReservationView{
			Reservation: rec.Reservation,
			Book:        placeholderBook(rec.BookUID, book),
			Library:     placeholderLibrary(rec.LibraryUID, lib),
		})
	}
	writeJSON(w, http.StatusOK, views)
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

// GetRating passes the caller's own rating straight through to the
// rating-system backend.
func (h *Handlers) GetRating(w http.ResponseWriter, r *http.Request) {
	userName := userNameFromContext(r.Context())
	result, err := h.Rating.Get(r.Context(), userName)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "no rating on file", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReserveBook runs the reservation saga. A RetryableFailure result is
// queued for asynchronous replay and reported to the caller as 204, the
// same "accepted, come back later" contract the original gateway used
// for its queue_processor path.
func (h *Handlers) ReserveBook(w http.ResponseWriter, r *http.Request) {
	userName := userNameFromContext(r.Context())

	var req models.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body", err)
		return
	}
	if req.TillDate.IsZero() {
		req.TillDate = time.Now().Add(14 * 24 * time.Hour)
	}

	result, err := h.Saga.ReserveBook(r.Context(), userName, req)
	if err != nil {
		if apierror.KindOf(err) == apierror.RetryableFailure {
			h.Retry.Enqueue(retryqueue.Entry{ReserveBook: &retryqueue.ReserveBookRetry{UserName: userName, Request: req}})
		}
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReturnBook runs the return saga. A RetryableFailure result is queued
// for asynchronous replay the same way ReserveBook's is.
func (h *Handlers) ReturnBook(w http.ResponseWriter, r *http.Request) {
	userName := userNameFromContext(r.Context())
	reservationUID := chi.URLParam(r, "reservationUid")

	var req models.ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body", err)
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	err := h.Saga.ReturnBook(r.Context(), userName, reservationUID, req)
	if err != nil {
		if apierror.KindOf(err) == apierror.RetryableFailure {
			h.Retry.Enqueue(retryqueue.Entry{ReturnBook: &retryqueue.ReturnBookRetry{UserName: userName, ReservationUID: reservationUID, Request: req}})
		}
		writeClassifiedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
