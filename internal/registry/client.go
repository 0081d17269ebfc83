// Package registry is the HTTP client for the channel/settings registry.
// The registry is authoritative for the desired channel set and is re-read
// on every controller pass; nothing here caches.
package registry

import (
	"bytes"
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

// ErrUnavailable marks transport-level or 5xx failures. Callers treat it as
// transient and retry on their next scheduled iteration.
var ErrUnavailable = errors.New("registry unavailable")

// ErrNotFound is returned for 404 answers on single-record lookups.
var ErrNotFound = errors.New("registry: not found")

// Channel is one desired channel. Identity is ID.
type Channel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base string
	http *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("registry: base url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BaseURL is the registry root, as forwarded to workers.
func (c *Client) BaseURL() string { return c.base }

// Channels returns the full desired channel list.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var body struct {
		Channels *[]Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &body); err != nil {
		return nil, err
	}
	// A missing or null list is a failed read, never an empty fleet.
	if body.Channels == nil {
		return nil, fmt.Errorf("%w: GET /channels: answer has no channels list", ErrUnavailable)
	}
	return *body.Channels, nil
}

// Channel returns a single channel record.
func (c *Client) Channel(ctx context.Context, id int) (Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+strconv.Itoa(id), nil, &ch); err != nil {
		return Channel{}, err
	}
	return ch, nil
}

// Settings returns every setting as a string map.
// The registry stores values as text but numbers are accepted too.
func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

// UpdateSetting writes one existing setting and returns the stored value.
func (c *Client) UpdateSetting(ctx context.Context, key, value string) (string, error) {
	if key == "" {
		return "", errors.New("registry: setting key required")
	}
	if value == "" {
		return "", errors.New("registry: setting value required")
	}

	req := struct {
		Value string `json:"value"`
	}{Value: value}
	var resp struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.do(ctx, http.MethodPut, "/settings/"+url.PathEscape(key), req, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("registry: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("registry: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("registry: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
