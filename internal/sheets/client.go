// Package sheets fetches attendance rows from the published sheet
// endpoint and renders the user-facing report texts.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 20 * time.Second

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.URL)
	if base == "" {
		return nil, errors.New("sheets url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("sheets url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// Apps Script exec URLs redirect to a one-shot content host; the
	// default client follows redirects, which is exactly what we need.
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Fetch returns the unscoped (global) row set.
// An empty remote result is an empty slice, not an error.
func (c *Client) Fetch(ctx context.Context) ([]AttendanceRow, error) {
	return c.get(ctx, c.baseURL)
}

// FetchFor returns the row set scoped to one recipient. The remote
// ignores unknown scopes and falls back to the global set.
func (c *Client) FetchFor(ctx context.Context, recipient int64) ([]AttendanceRow, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("chat", strconv.FormatInt(recipient, 10))
	u.RawQuery = q.Encode()
	return c.get(ctx, u.String())
}

func (c *Client) get(ctx context.Context, rawURL string) ([]AttendanceRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, fmt.Errorf("fetch attendance: unexpected status %d", resp.StatusCode)
	}

	var rows []AttendanceRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode attendance rows: %w", err)
	}
	if rows == nil {
		rows = []AttendanceRow{}
	}
	return rows, nil
}
