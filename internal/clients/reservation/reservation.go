// Package reservation is the gateway's client for the reservation
// ledger: creating, listing, and updating the status of reservations.
package reservation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
	"github.com/1mb-dev/library-gateway/internal/restclient"
)

// Client talks to the reservation-system backend.
type Client struct {
	rc *restclient.Client
}

// New wraps a configured restclient.Client.
func New(rc *restclient.Client) *Client {
	return &Client{rc: rc}
}

// CountRented returns how many books a user currently holds with
// status RENTED, used to enforce the per-rating reservation quota.
func (c *Client) CountRented(ctx context.Context, userName string) (int, error) {
	resp, err := c.rc.Do(ctx, http.MethodGet, "/api/v1/reservations/rented-count", userName, nil)
	if err != nil {
		return 0, err
	}
	var out models.RentedBooksCount
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ListByUser returns every reservation a user has made.
func (c *Client) ListByUser(ctx context.Context, userName string) ([]models.ReservationRecord, error) {
	resp, err := c.rc.Do(ctx, http.MethodGet, "/api/v1/reservations", userName, nil)
	if err != nil {
		return nil, err
	}
	var out []models.ReservationRecord
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single reservation by UID, scoped to the requesting
// user: the ledger returns 404 for a UID that exists but belongs to
// someone else, same as for one that doesn't exist at all.
func (c *Client) Get(ctx context.Context, userName, reservationUID string) (*models.ReservationRecord, error) {
	path := fmt.Sprintf("/api/v1/reservations/%s", reservationUID)
	resp, err := c.rc.Do(ctx, http.MethodGet, path, userName, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var out models.ReservationRecord
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create opens a new RENTED reservation, the first forward step of
// ReserveBook (the library's TakeBook follows it).
func (c *Client) Create(ctx context.Context, userName, bookUID, libraryUID string, tillDate time.Time) (*models.ReservationRecord, error) {
	payload := struct {
		BookUID    string    `json:"bookUid"`
		LibraryUID string    `json:"libraryUid"`
		TillDate   time.Time `json:"tillDate"`
	}{bookUID, libraryUID, tillDate}

	resp, err := c.rc.Do(ctx, http.MethodPost, "/api/v1/reservations", userName, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("reservation-system rejected create with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	var out models.ReservationRecord
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a reservation outright: the compensation for Create
// when the library-system leg of ReserveBook fails after the ledger
// entry has already been written.
func (c *Client) Delete(ctx context.Context, userName, reservationUID string) error {
	path := fmt.Sprintf("/api/v1/reservations/%s", reservationUID)
	resp, err := c.rc.Do(ctx, http.MethodDelete, path, userName, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("reservation-system rejected delete with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	return nil
}

// UpdateStatus transitions a reservation's status, used by ReturnBook
// to mark RETURNED or EXPIRED, and by its own compensation to roll a
// reservation back to RENTED if a later leg of ReturnBook fails.
func (c *Client) UpdateStatus(ctx context.Context, userName, reservationUID string, status models.Status) error {
	path := fmt.Sprintf("/api/v1/reservations/%s/status", reservationUID)
	payload := models.ReservationStatusUpdate{Status: status}
	resp, err := c.rc.Do(ctx, http.MethodPut, path, userName, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reservation-system rejected status update with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	return nil
}
