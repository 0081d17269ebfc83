// Package hls fetches and classifies HLS playlists over HTTP.
package hls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grafov/m3u8"
)

var (
	// ErrTransport covers timeouts, refused connections and non-2xx answers.
	ErrTransport = errors.New("hls: transport error")
	// ErrParse covers bodies that are not a usable playlist.
	ErrParse = errors.New("hls: parse error")
)

const (
	defaultMaxPlaylistBytes = 4 << 20
	defaultMaxSegmentBytes  = 32 << 20
)

// Playlist is the part of a decoded playlist the prober needs.
type Playlist struct {
	URL      string
	Master   bool
	Variants []string // master only, in declaration order
	Segments []string // media only
}

// Resolve resolves ref against the playlist URL. Absolute refs are returned unchanged.
func (p *Playlist) Resolve(ref string) (string, error) {
	base, err := url.Parse(p.URL)
	if err != nil {
		return "", fmt.Errorf("%w: base url %q: %v", ErrParse, p.URL, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: uri %q: %v", ErrParse, ref, err)
	}
	return base.ResolveReference(r).String(), nil
}

type Config struct {
	Timeout          time.Duration
	MaxPlaylistBytes int64
	MaxSegmentBytes  int64
	UserAgent        string
}

// Client issues one HTTP request per call. No retries here.
type Client struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxPlaylistBytes <= 0 {
		cfg.MaxPlaylistBytes = defaultMaxPlaylistBytes
	}
	if cfg.MaxSegmentBytes <= 0 {
		cfg.MaxSegmentBytes = defaultMaxSegmentBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "hlsfleet-monitor"
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Playlist fetches and decodes the playlist at rawURL.
func (c *Client) Playlist(ctx context.Context, rawURL string) (*Playlist, error) {
	body, err := c.get(ctx, rawURL, c.cfg.MaxPlaylistBytes, true)
	if err != nil {
		return nil, err
	}

	pl := &Playlist{URL: rawURL}

	decoded, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		// A header with no entries is a media playlist without segments.
		if headerOnly(body) {
			return pl, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, rawURL, err)
	}

	switch listType {
	case m3u8.MASTER:
		master, ok := decoded.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unexpected master type %T", ErrParse, rawURL, decoded)
		}
		pl.Master = true
		for _, v := range master.Variants {
			if v != nil && v.URI != "" {
				pl.Variants = append(pl.Variants, v.URI)
			}
		}

	case m3u8.MEDIA:
		media, ok := decoded.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unexpected media type %T", ErrParse, rawURL, decoded)
		}
		// Segments is a ring buffer; unused tail entries are nil.
		for _, s := range media.Segments {
			if s != nil {
				pl.Segments = append(pl.Segments, s.URI)
			}
		}

	default:
		return nil, fmt.Errorf("%w: %s: unknown playlist type", ErrParse, rawURL)
	}

	return pl, nil
}

// Segment fetches one segment and discards it.
func (c *Client) Segment(ctx context.Context, rawURL string) error {
	_, err := c.get(ctx, rawURL, c.cfg.MaxSegmentBytes, false)
	return err
}

func (c *Client) get(ctx context.Context, rawURL string, limit int64, keep bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: request %q: %v", ErrParse, rawURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: status %d", ErrTransport, rawURL, resp.StatusCode)
	}

	if !keep {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, limit)); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, rawURL, err)
		}
		return nil, nil
	}

	// One byte past the limit tells a full body from a cut one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, rawURL, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s: playlist too large (limit %d bytes)", ErrParse, rawURL, limit)
	}
	return body, nil
}

// headerOnly reports whether body is an #EXTM3U header followed only by
// tags, comments or blank lines, with no variant or segment entries.
func headerOnly(body []byte) bool {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	lines := strings.Split(string(body), "\n")

	seenHeader := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !seenHeader {
			if line != "#EXTM3U" {
				return false
			}
			seenHeader = true
			continue
		}
		if !strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "#EXT-X-STREAM-INF") ||
			strings.HasPrefix(line, "#EXTINF") {
			return false
		}
	}
	return seenHeader
}
