// Package client talks to a running worldsim over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/village"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name         string    `json:"name"`
	Time         time.Time `json:"time"`
	Speed        float64   `json:"speed"`
	Running      bool      `json:"running"`
	Villages     int       `json:"villages"`
	Missions     int       `json:"missions"`
	Reports      int       `json:"reports"`
	PlayerPoints int       `json:"player_points"`
	LastSave     time.Time `json:"last_save"`
	MapSize      int       `json:"map_size"`
}

// Rejected is returned when the world refused an action.
type Rejected struct {
	Status int
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (r *Rejected) Error() string {
	if r.Detail == "" {
		return r.Reason
	}
	return r.Reason + ": " + r.Detail
}

// Client is an API client for queries, player actions and admin calls.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the simulation summary.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.get(ctx, "/api/v1/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Villages lists villages, all when owner is empty.
func (c *Client) Villages(ctx context.Context, owner village.Owner) ([]village.Village, error) {
	q := url.Values{}
	if owner != "" {
		q.Set("owner", string(owner))
	}
	var out []village.Village
	err := c.get(ctx, "/api/v1/villages", q, &out)
	return out, err
}

// Missions lists movements touching id, all when id is zero.
func (c *Client) Missions(ctx context.Context, id village.ID) ([]engine.Mission, error) {
	q := url.Values{}
	if id != 0 {
		q.Set("village", strconv.FormatUint(uint64(id), 10))
	}
	var out []engine.Mission
	err := c.get(ctx, "/api/v1/missions", q, &out)
	return out, err
}

// Reports lists recent reports. With archive set they come from the
// long-term log instead of the world's capped history.
func (c *Client) Reports(ctx context.Context, id village.ID, limit int, archive bool) ([]engine.Report, error) {
	q := url.Values{}
	if id != 0 {
		q.Set("village", strconv.FormatUint(uint64(id), 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if archive {
		q.Set("archive", "true")
	}
	var out []engine.Report
	err := c.get(ctx, "/api/v1/reports", q, &out)
	return out, err
}

// Act posts a player action such as "build" or "train" and decodes the
// result into out. A refusal comes back as *Rejected.
func (c *Client) Act(ctx context.Context, action string, body, out any) error {
	return c.post(ctx, "/api/v1/actions/"+action, body, out, false)
}

// SetSpeed changes the simulation speed. Requires the admin key.
func (c *Client) SetSpeed(ctx context.Context, speed float64) error {
	return c.post(ctx, "/api/v1/speed", map[string]float64{"speed": speed}, nil, true)
}

// Save forces a save. Requires the admin key.
func (c *Client) Save(ctx context.Context) error {
	return c.post(ctx, "/api/v1/save", struct{}{}, nil, true)
}

// WaitReady polls the status endpoint with exponential backoff until it
// responds or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	backoff := 250 * time.Millisecond
	maxBackoff := 5 * time.Second
	for {
		if _, err := c.Status(ctx); err == nil {
			return nil
		}
		slog.Debug("worldsim not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("worldsim not ready: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// get GETs a path and decodes the JSON response into target.
func (c *Client) get(ctx context.Context, path string, q url.Values, target any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, target)
}

func (c *Client) post(ctx context.Context, path string, body, target any, admin bool) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	}
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		rej := &Rejected{Status: resp.StatusCode}
		if json.Unmarshal(respBody, rej) == nil && rej.Reason != "" {
			return rej
		}
		return fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// IsRejected reports whether err is a world refusal with the given reason.
func IsRejected(err error, reason string) bool {
	var rej *Rejected
	return errors.As(err, &rej) && rej.Reason == reason
}
