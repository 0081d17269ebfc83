package hls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const masterBody = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720
720p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=640000,RESOLUTION=640x360
http://other-cdn/360p/index.m3u8
`

const mediaBody = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:100
#EXTINF:6.0,
seg100.ts
#EXTINF:6.0,
seg101.ts
`

func serve(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaylist_Master(t *testing.T) {
	srv := serve(t, map[string]string{"/live/master.m3u8": masterBody})
	c := New(Config{Timeout: time.Second})

	pl, err := c.Playlist(context.Background(), srv.URL+"/live/master.m3u8")
	require.NoError(t, err)
	require.True(t, pl.Master)
	require.Equal(t, []string{"720p/index.m3u8", "http://other-cdn/360p/index.m3u8"}, pl.Variants)

	first, err := pl.Resolve(pl.Variants[0])
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/live/720p/index.m3u8", first)

	second, err := pl.Resolve(pl.Variants[1])
	require.NoError(t, err)
	require.Equal(t, "http://other-cdn/360p/index.m3u8", second)
}

func TestPlaylist_Media(t *testing.T) {
	srv := serve(t, map[string]string{"/live/index.m3u8": mediaBody})
	c := New(Config{Timeout: time.Second})

	pl, err := c.Playlist(context.Background(), srv.URL+"/live/index.m3u8")
	require.NoError(t, err)
	require.False(t, pl.Master)
	require.Equal(t, []string{"seg100.ts", "seg101.ts"}, pl.Segments)
}

func TestPlaylist_NotFoundIsTransport(t *testing.T) {
	srv := serve(t, nil)
	c := New(Config{Timeout: time.Second})

	_, err := c.Playlist(context.Background(), srv.URL+"/missing.m3u8")
	require.ErrorIs(t, err, ErrTransport)
}

func TestPlaylist_GarbageIsParse(t *testing.T) {
	srv := serve(t, map[string]string{"/index.m3u8": "<html>not a playlist</html>"})
	c := New(Config{Timeout: time.Second})

	_, err := c.Playlist(context.Background(), srv.URL+"/index.m3u8")
	require.ErrorIs(t, err, ErrParse)
	require.NotErrorIs(t, err, ErrTransport)
}

func TestPlaylist_HeaderOnlyIsEmptyMedia(t *testing.T) {
	srv := serve(t, map[string]string{
		"/bare.m3u8":    "#EXTM3U\n",
		"/crlf.m3u8":    "#EXTM3U\r\n\r\n",
		"/version.m3u8": "#EXTM3U\n#EXT-X-VERSION:3\n",
		"/ended.m3u8":   "#EXTM3U\n#EXT-X-ENDLIST\n",
	})
	c := New(Config{Timeout: time.Second})

	for _, path := range []string{"/bare.m3u8", "/crlf.m3u8", "/version.m3u8", "/ended.m3u8"} {
		pl, err := c.Playlist(context.Background(), srv.URL+path)
		require.NoError(t, err, path)
		require.False(t, pl.Master, path)
		require.Empty(t, pl.Segments, path)
	}
}

func TestPlaylist_OversizedIsParse(t *testing.T) {
	body := mediaBody + strings.Repeat("#EXTINF:6.0,\nseg.ts\n", 64)
	srv := serve(t, map[string]string{"/big.m3u8": body, "/fits.m3u8": mediaBody})
	c := New(Config{Timeout: time.Second, MaxPlaylistBytes: int64(len(mediaBody))})

	_, err := c.Playlist(context.Background(), srv.URL+"/big.m3u8")
	require.ErrorIs(t, err, ErrParse)
	require.Contains(t, err.Error(), "playlist too large")

	pl, err := c.Playlist(context.Background(), srv.URL+"/fits.m3u8")
	require.NoError(t, err, "a body of exactly the limit is accepted")
	require.Len(t, pl.Segments, 2)
}

func TestPlaylist_TimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Timeout: 50 * time.Millisecond})

	_, err := c.Playlist(context.Background(), srv.URL+"/slow.m3u8")
	require.ErrorIs(t, err, ErrTransport)
}

func TestSegment(t *testing.T) {
	srv := serve(t, map[string]string{"/seg.ts": "0123456789"})
	c := New(Config{Timeout: time.Second})

	require.NoError(t, c.Segment(context.Background(), srv.URL+"/seg.ts"))
	require.ErrorIs(t, c.Segment(context.Background(), srv.URL+"/gone.ts"), ErrTransport)
}
