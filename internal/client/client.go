// Package client talks to the ingestion and vehicle services over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	TargetURL string        // ingestion service base; batches go to <base>/raw, statuses to <base>/status
	CarURL    string        // vehicle service base; identities come from <base>/random
	AuthToken string        // optional bearer token forwarded as-is
	Timeout   time.Duration // per request, defaults to 10s
}

// Client implements trip.IdentityResolver and trip.Submitter. It is safe for
// concurrent use and shares one connection pool across all trips.
type Client struct {
	rawURL    string
	statusURL string
	randomURL string
	token     string
	http      *http.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		rawURL:    endpoint(opts.TargetURL, "raw"),
		statusURL: endpoint(opts.TargetURL, "status"),
		randomURL: endpoint(opts.CarURL, "random"),
		token:     opts.AuthToken,
		http:      &http.Client{Timeout: timeout},
	}
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + path
}

// ResolveIdentity asks the vehicle service for a random vehicle and returns its ID.
func (c *Client) ResolveIdentity(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.randomURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var vehicle models.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicle); err != nil {
		return "", fmt.Errorf("failed to decode vehicle: %w", err)
	}
	if vehicle.ID == "" {
		return "", fmt.Errorf("invalid vehicle ID in response")
	}
	return vehicle.ID, nil
}

// SubmitBatch posts one batch of positions.
func (c *Client) SubmitBatch(ctx context.Context, vehicleID string, batch []models.Position) error {
	return c.postJSON(ctx, c.rawURL, models.Batch{VehicleID: vehicleID, Coordinates: batch})
}

// SubmitStatus posts a status report.
func (c *Client) SubmitStatus(ctx context.Context, vehicleID string, status models.StatusCode) error {
	return c.postJSON(ctx, c.statusURL, models.Status{VehicleID: vehicleID, Status: status})
}

func (c *Client) postJSON(ctx context.Context, url string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	// Drain so the connection goes back to the pool.
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{
			Method: method,
			URL:    url,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}
