package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
)

type fakeLibrary struct {
	books          map[string]*models.Book
	libraries      map[string]*models.Library
	takeErr        error
	putBackErr     error
	takeCalls      int
	putBackCalls   int
}

func (f *fakeLibrary) GetBook(ctx context.Context, bookUID string) (*models.Book, error) {
	return f.books[bookUID], nil
}
func (f *fakeLibrary) GetLibrary(ctx context.Context, libraryUID string) (*models.Library, error) {
	return f.libraries[libraryUID], nil
}
func (f *fakeLibrary) TakeBook(ctx context.Context, libraryUID, bookUID string) error {
	f.takeCalls++
	return f.takeErr
}
func (f *fakeLibrary) PutBack(ctx context.Context, libraryUID, bookUID string) error {
	f.putBackCalls++
	return f.putBackErr
}

type fakeReservation struct {
	rentedCount int
	record      *models.ReservationRecord
	createErr   error
	created     *models.ReservationRecord
	deleteErr   error
	deleteCalls int
	statusCalls []models.Status
	statusErr   error
}

func (f *fakeReservation) CountRented(ctx context.Context, userName string) (int, error) {
	return f.rentedCount, nil
}
func (f *fakeReservation) Get(ctx context.Context, userName, reservationUID string) (*models.ReservationRecord, error) {
	return f.record, nil
}
func (f *fakeReservation) Create(ctx context.Context, userName, bookUID, libraryUID string, tillDate time.Time) (*models.ReservationRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}
func (f *fakeReservation) Delete(ctx context.Context, userName, reservationUID string) error {
	f.deleteCalls++
	return f.deleteErr
}
func (f *fakeReservation) UpdateStatus(ctx context.Context, userName, reservationUID string, status models.Status) error {
	f.statusCalls = append(f.statusCalls, status)
	return f.statusErr
}

type fakeRating struct {
	rating      *models.Rating
	changeErr   error
	changeDelta int
}

func (f *fakeRating) Get(ctx context.Context, userName string) (*models.Rating, error) {
	return f.rating, nil
}
func (f *fakeRating) ChangeStars(ctx context.Context, userName string, delta int) error {
	f.changeDelta = delta
	return f.changeErr
}

func TestReserveBookQuotaExceeded(t *testing.T) {
	lib := &fakeLibrary{}
	res := &fakeReservation{rentedCount: 3}
	rat := &fakeRating{rating: &models.Rating{Stars: 3}}
	orch := New(lib, res, rat, zap.NewNop())

	_, err := orch.ReserveBook(context.Background(), "alice", models.ReservationRequest{BookUID: "b1", LibraryUID: "l1"})
	if err == nil {
		t.Fatal("want quota error")
	}
	if apierror.KindOf(err) != apierror.PermissionDenied {
		t.Fatalf("KindOf(err) = %v, want PermissionDenied", apierror.KindOf(err))
	}
	if lib.takeCalls != 0 {
		t.Fatal("should not touch library when quota exceeded")
	}
}

func TestReserveBookFailsOnCreateFailureNoCompensation(t *testing.T) {
	lib := &fakeLibrary{}
	res := &fakeReservation{rentedCount: 0, createErr: apierror.New(apierror.RetryableFailure, "ledger write failed")}
	rat := &fakeRating{rating: &models.Rating{Stars: 5}}
	orch := New(lib, res, rat, zap.NewNop())

	_, err := orch.ReserveBook(context.Background(), "alice", models.ReservationRequest{BookUID: "b1", LibraryUID: "l1"})
	if err == nil {
		t.Fatal("want error propagated")
	}
	if lib.takeCalls != 0 {
		t.Fatalf("takeCalls = %d, want 0 (no prior mutation to compensate)", lib.takeCalls)
	}
}

func TestReserveBookCompensatesOnTakeBookFailure(t *testing.T) {
	lib := &fakeLibrary{takeErr: apierror.New(apierror.RetryableFailure, "library-system unavailable")}
	res := &fakeReservation{
		rentedCount: 0,
		created: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", Status: models.StatusRented},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{rating: &models.Rating{Stars: 5}}
	orch := New(lib, res, rat, zap.NewNop())

	_, err := orch.ReserveBook(context.Background(), "alice", models.ReservationRequest{BookUID: "b1", LibraryUID: "l1"})
	if err == nil {
		t.Fatal("want error propagated")
	}
	if lib.takeCalls != 1 {
		t.Fatalf("takeCalls = %d, want 1", lib.takeCalls)
	}
	if res.deleteCalls != 1 {
		t.Fatalf("deleteCalls = %d, want 1 (compensation)", res.deleteCalls)
	}
}

func TestReserveBookSucceeds(t *testing.T) {
	lib := &fakeLibrary{
		books:     map[string]*models.Book{"b1": {BookUID: "b1", Name: "Go in Practice"}},
		libraries: map[string]*models.Library{"l1": {LibraryUID: "l1", Name: "Central"}},
	}
	res := &fakeReservation{
		rentedCount: 0,
		created: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", Status: models.StatusRented},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{rating: &models.Rating{Stars: 5}}
	orch := New(lib, res, rat, zap.NewNop())

	result, err := orch.ReserveBook(context.Background(), "alice", models.ReservationRequest{BookUID: "b1", LibraryUID: "l1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReservationUID != "r1" {
		t.Fatalf("ReservationUID = %q, want r1", result.ReservationUID)
	}
	if result.Book.Name != "Go in Practice" {
		t.Fatalf("Book not hydrated: %+v", result.Book)
	}
	if result.Rating != 5 {
		t.Fatalf("Rating = %d, want 5", result.Rating)
	}
}

func TestReturnBookNotFound(t *testing.T) {
	lib := &fakeLibrary{}
	res := &fakeReservation{record: nil}
	rat := &fakeRating{}
	orch := New(lib, res, rat, zap.NewNop())

	err := orch.ReturnBook(context.Background(), "alice", "missing", models.ReturnRequest{})
	if apierror.KindOf(err) != apierror.ServiceUnavailable {
		t.Fatalf("KindOf(err) = %v, want ServiceUnavailable", apierror.KindOf(err))
	}
}

func TestReturnBookFailsWhenBookConditionUnavailable(t *testing.T) {
	till := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	lib := &fakeLibrary{}
	res := &fakeReservation{
		record: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", TillDate: till},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{}
	orch := New(lib, res, rat, zap.NewNop())

	err := orch.ReturnBook(context.Background(), "alice", "r1", models.ReturnRequest{
		Condition: models.ConditionGood,
		Date:      till.Add(-time.Hour),
	})
	if apierror.KindOf(err) != apierror.ServiceUnavailable {
		t.Fatalf("KindOf(err) = %v, want ServiceUnavailable", apierror.KindOf(err))
	}
	if lib.putBackCalls != 0 {
		t.Fatalf("putBackCalls = %d, want 0 (no mutation before the book condition is known)", lib.putBackCalls)
	}
}

func TestReturnBookOnTimeGoodConditionDefaultStars(t *testing.T) {
	till := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	lib := &fakeLibrary{
		books: map[string]*models.Book{"b1": {BookUID: "b1", Condition: models.ConditionGood}},
	}
	res := &fakeReservation{
		record: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", TillDate: till},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{}
	orch := New(lib, res, rat, zap.NewNop())

	err := orch.ReturnBook(context.Background(), "alice", "r1", models.ReturnRequest{
		Condition: models.ConditionGood,
		Date:      till.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rat.changeDelta != defaultStars {
		t.Fatalf("changeDelta = %d, want %d", rat.changeDelta, defaultStars)
	}
	if len(res.statusCalls) != 1 || res.statusCalls[0] != models.StatusReturned {
		t.Fatalf("statusCalls = %v, want [RETURNED]", res.statusCalls)
	}
}

func TestReturnBookLateAndMismatchedConditionStack(t *testing.T) {
	till := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	lib := &fakeLibrary{
		books: map[string]*models.Book{"b1": {BookUID: "b1", Condition: models.ConditionExcellent}},
	}
	res := &fakeReservation{
		record: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", TillDate: till},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{}
	orch := New(lib, res, rat, zap.NewNop())

	err := orch.ReturnBook(context.Background(), "alice", "r1", models.ReturnRequest{
		Condition: models.ConditionBad,
		Date:      till.Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rat.changeDelta != 2*mismatchPenalty {
		t.Fatalf("changeDelta = %d, want %d", rat.changeDelta, 2*mismatchPenalty)
	}
	if len(res.statusCalls) != 1 || res.statusCalls[0] != models.StatusExpired {
		t.Fatalf("statusCalls = %v, want [EXPIRED]", res.statusCalls)
	}
}

func TestReturnBookCompensatesOnRatingFailure(t *testing.T) {
	till := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	lib := &fakeLibrary{
		books: map[string]*models.Book{"b1": {BookUID: "b1", Condition: models.ConditionGood}},
	}
	res := &fakeReservation{
		record: &models.ReservationRecord{
			Reservation: models.Reservation{ReservationUID: "r1", TillDate: till},
			BookUID:     "b1",
			LibraryUID:  "l1",
		},
	}
	rat := &fakeRating{changeErr: errors.New("rating store down")}
	orch := New(lib, res, rat, zap.NewNop())

	err := orch.ReturnBook(context.Background(), "alice", "r1", models.ReturnRequest{
		Condition: models.ConditionGood,
		Date:      till.Add(-time.Hour),
	})
	if err == nil {
		t.Fatal("want error propagated from rating update")
	}
	if len(res.statusCalls) != 2 {
		t.Fatalf("statusCalls = %v, want RETURNED then RENTED rollback", res.statusCalls)
	}
	if res.statusCalls[1] != models.StatusRented {
		t.Fatalf("rollback status = %v, want RENTED", res.statusCalls[1])
	}
	if lib.takeCalls != 1 {
		t.Fatalf("takeCalls (re-take compensation) = %d, want 1", lib.takeCalls)
	}
}
