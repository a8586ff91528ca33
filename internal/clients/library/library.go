// Package library is the gateway's client for the book-catalog backend:
// library branches, catalog listings, and the availability-count
// mutations the reservation saga uses to hold and release a copy.
package library

import (
	"context"
	"fmt"
	"net/http"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/models"
	"github.com/1mb-dev/library-gateway/internal/restclient"
)

// Client talks to the library-system backend.
type Client struct {
	rc *restclient.Client
}

// New wraps a configured restclient.Client.
func New(rc *restclient.Client) *Client {
	return &Client{rc: rc}
}

// ListLibraries returns a page of library branches.
func (c *Client) ListLibraries(ctx context.Context, page, size int) (*models.LibraryPage, error) {
	path := fmt.Sprintf("/api/v1/libraries?page=%d&size=%d", page, size)
	resp, err := c.rc.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var out models.LibraryPage
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBooks returns a page of catalog entries for one library, showing
// only books with availableCount > 0 unless showAll is set.
func (c *Client) ListBooks(ctx context.Context, libraryUID string, page, size int, showAll bool) (*models.BookPage, error) {
	path := fmt.Sprintf("/api/v1/libraries/%s/books?page=%d&size=%d&showAll=%t", libraryUID, page, size, showAll)
	resp, err := c.rc.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var out models.BookPage
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBook fetches a single book's catalog record by UID. A nil result
// with a nil error means the book does not exist (404) — callers build
// a UID-only placeholder the way the saga does for read failures that
// must not block a response.
func (c *Client) GetBook(ctx context.Context, bookUID string) (*models.Book, error) {
	path := fmt.Sprintf("/api/v1/books/%s", bookUID)
	resp, err := c.rc.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var out models.Book
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLibrary fetches a single library branch by UID.
func (c *Client) GetLibrary(ctx context.Context, libraryUID string) (*models.Library, error) {
	path := fmt.Sprintf("/api/v1/libraries/%s", libraryUID)
	resp, err := c.rc.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var out models.Library
	if err := restclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TakeBook decrements a book's available count at a library, the
// forward step of ReserveBook that follows the reservation-ledger
// write. ReturnBook also calls it as a compensation, re-taking a book
// whose PutBack must be undone after a later step fails.
func (c *Client) TakeBook(ctx context.Context, libraryUID, bookUID string) error {
	path := fmt.Sprintf("/api/v1/libraries/%s/books/%s/take", libraryUID, bookUID)
	resp, err := c.rc.Do(ctx, http.MethodPost, path, "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("library-system rejected take with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	return nil
}

// PutBack increments a book's available count at a library: the
// compensation for TakeBook, and the forward action of ReturnBook.
func (c *Client) PutBack(ctx context.Context, libraryUID, bookUID string) error {
	path := fmt.Sprintf("/api/v1/libraries/%s/books/%s/return", libraryUID, bookUID)
	resp, err := c.rc.Do(ctx, http.MethodPost, path, "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("library-system rejected return with status %d: %w", resp.StatusCode, apierror.ErrUnavailable)
	}
	return nil
}
