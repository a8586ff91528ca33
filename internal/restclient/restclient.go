// Package restclient is the shared HTTP+circuit-breaker plumbing used
// by every downstream client in internal/clients. It generalizes the
// embedded-breaker-plus-http.Client shape used by the bookstore
// catalog client this gateway's clients are grounded on, instead of
// repeating it three times.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/1mb-dev/library-gateway/internal/apierror"
	"github.com/1mb-dev/library-gateway/internal/breaker"
)

// Client wraps an *http.Client and a *breaker.CircuitBreaker bound to
// one downstream dependency.
type Client struct {
	Name    string
	BaseURL string
	HTTP    *http.Client
	Breaker *breaker.CircuitBreaker
}

// New constructs a Client with a sane request timeout and the supplied
// circuit breaker.
func New(name, baseURL string, cb *breaker.CircuitBreaker) *Client {
	return &Client{
		Name:    name,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		Breaker: cb,
	}
}

// Response is the decoded result of a breaker-guarded HTTP call: the
// status code and raw body, left to the caller to interpret since each
// downstream endpoint has its own notion of which codes are success.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do issues an HTTP request through the circuit breaker. Per the
// gateway's downstream-client contract, no distinction is made between
// a breaker trip, a connect failure, and a 5xx response: all three
// collapse to apierror.ErrUnavailable, leaving the caller (a saga step)
// to decide whether that means ServiceUnavailable or RetryableFailure.
func (c *Client) Do(ctx context.Context, method, path string, userName string, payload interface{}) (*Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apierror.Wrap(apierror.Internal, "encode request body", err)
		}
		body = bytes.NewReader(encoded)
	}

	result, err := c.Breaker.Request(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if userName != "" {
			req.Header.Set("X-User-Name", userName)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return &Response{StatusCode: resp.StatusCode, Body: raw}, fmt.Errorf("%s: %d %s", c.Name, resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.Name, apierror.ErrUnavailable, err)
	}
	return result.(*Response), nil
}

// DecodeJSON unmarshals resp.Body into v, wrapping decode failures as
// Internal errors since a malformed body from a healthy-looking
// response indicates a contract break, not a transient outage.
func DecodeJSON(resp *Response, v interface{}) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return apierror.Wrap(apierror.Internal, "decode response body", err)
	}
	return nil
}
