// Package client provides HTTP clients for the healthwatch service: a client
// for the read and mutation endpoints and a reconnecting event stream
// consumer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/juju/errors"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// Client calls the healthwatch JSON endpoints. It is safe for concurrent use
// by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL (scheme and host, e.g.
// "http://localhost:8080") with a 5 second request timeout.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, 5*time.Second)
}

// NewWithTimeout creates a client with a custom request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StockUpdate is the reply of a stock mutation.
type StockUpdate struct {
	storage.Item
	LastUpdate struct {
		Event    string `json:"event"`
		Quantity int    `json:"quantity"`
		Stock    int    `json:"stock"`
	} `json:"lastUpdate"`
	Reorder *storage.ReorderRequest `json:"reorder,omitempty"`
}

// Readings returns the current indicator readings, optionally for one
// country.
func (c *Client) Readings(ctx context.Context, country string) ([]storage.Reading, error) {
	q := url.Values{}
	if country != "" {
		q.Set("country", country)
	}
	var out []storage.Reading
	if err := c.do(ctx, http.MethodGet, "/api/who/health", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Updates returns the most recent update records, newest first.
func (c *Client) Updates(ctx context.Context, limit int) ([]storage.UpdateRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []storage.UpdateRecord
	if err := c.do(ctx, http.MethodGet, "/api/who/updates", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Medicines lists the stocked medicines.
func (c *Client) Medicines(ctx context.Context) ([]storage.Item, error) {
	var out []storage.Item
	if err := c.do(ctx, http.MethodGet, "/api/medicines", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStock applies a "sold" or "added" movement to a medicine.
func (c *Client) UpdateStock(ctx context.Context, id, event string, quantity int) (*StockUpdate, error) {
	if id == "" {
		return nil, fmt.Errorf("medicine id cannot be empty")
	}
	body := map[string]any{"event": event, "quantity": quantity}
	var out StockUpdate
	if err := c.do(ctx, http.MethodPatch, "/api/medicines/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFoundf("%s", errorMessage(resp.Body, path))
	case resp.StatusCode == http.StatusBadRequest:
		return errors.NotValidf("%s", errorMessage(resp.Body, "request"))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" field of a reply, or returns fallback.
func errorMessage(r io.Reader, fallback string) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil || body.Error == "" {
		return fallback
	}
	return body.Error
}
