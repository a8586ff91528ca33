// Package rating is the gateway's client for the user-rating store: a
// single stars value per user, adjusted by the ReturnBook saga based on
// condition mismatches and late returns.
package rating

import (
	"context"
	"fmt"
	"net/http"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
	"github.com/1mb-dev/library-gateway/internal/restclient"
)

// Client talks to the rating-system backend.
type Client struct {
	rc *restclient.Client
}

// New wraps a configured restclient.Client.
func New(rc *restclient.Client) *Client {
	return &Client{rc: rc}
}

// Get fetches a user's current rating. A nil result means the backend
// has no record for this user yet.
func (c *Client) Get(ctx context.Context, userName string) (*models.Rating, error) {
	resp, err := c.rc.Do(ctx, http.MethodGet, "/api/v1/rating", userName, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var out models.Rating
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeStars adjusts a user's rating by delta (positive or negative),
// the forward action of ReturnBook's rating leg.
func (c *Client) ChangeStars(ctx context.Context, userName string, delta int) error {
	payload := struct {
		Stars int `json:"stars"`
	}{delta}
	resp, err := c.rc.Do(ctx, http.MethodPatch, "/api/v1/rating", userName, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("rating-system rejected change with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	return nil
}
