package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/fetch"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want fetch.Platform
	}{
		{"https://www.youtube.com/watch?v=abc", fetch.PlatformYouTube},
		{"https://youtu.be/abc", fetch.PlatformYouTube},
		{"https://www.tiktok.com/@user/video/1", fetch.PlatformTikTok},
		{"https://instagram.com/reel/xyz", fetch.PlatformInstagram},
		{"https://cdn.example.com/file.mp4", fetch.PlatformDirect},
		{"https://example.com/page", fetch.PlatformDirect},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, fetch.DetectPlatform(tt.url), "url=%s", tt.url)
	}
}

func TestIsDirectMediaURL(t *testing.T) {
	require.True(t, fetch.IsDirectMediaURL("https://cdn.example.com/video.mp4"))
	require.True(t, fetch.IsDirectMediaURL("https://cdn.example.com/video.WEBM"))
	require.False(t, fetch.IsDirectMediaURL("https://www.youtube.com/watch.mp4"), "platform hosts go through the tool")
	require.False(t, fetch.IsDirectMediaURL("https://example.com/page.html"))
}

func TestIsValidURL(t *testing.T) {
	require.True(t, fetch.IsValidURL("https://example.com/a"))
	require.True(t, fetch.IsValidURL(" http://example.com "))
	require.False(t, fetch.IsValidURL("ftp://example.com"))
	require.False(t, fetch.IsValidURL("not a url"))
	require.False(t, fetch.IsValidURL(""))
}

func TestFormatFor(t *testing.T) {
	require.Equal(t,
		"bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best",
		fetch.FormatFor("720"))
	require.Equal(t,
		"bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		fetch.FormatFor("max"))
	// empty falls back to the 720 ceiling
	require.Contains(t, fetch.FormatFor(""), "height<=720")
}

func TestTitleFromURL(t *testing.T) {
	require.Equal(t, "clip", fetch.TitleFromURL("https://cdn.example.com/media/clip.mp4"))
	require.Equal(t, "cdn.example.com", fetch.TitleFromURL("https://cdn.example.com/"))
}

func TestDownloadDirect(t *testing.T) {
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	f := fetch.NewFetcher("yt-dlp", 30*time.Second)
	outPath := filepath.Join(t.TempDir(), "out.mp4")

	var lastFraction float64
	err := f.Download(context.Background(), server.URL+"/file.mp4", outPath, "720", "", func(fraction float64) {
		require.GreaterOrEqual(t, fraction, lastFraction, "progress is monotonic")
		lastFraction = fraction
	})
	require.NoError(t, err)
	require.InDelta(t, 1.0, lastFraction, 0.0001)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestDownloadDirectNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := fetch.NewFetcher("yt-dlp", 5*time.Second)
	outPath := filepath.Join(t.TempDir(), "out.mp4")

	err := f.Download(context.Background(), server.URL+"/missing.mp4", outPath, "720", "", nil)
	require.Error(t, err)
	_, statErr := os.Stat(outPath)
	require.True(t, os.IsNotExist(statErr), "no partial file left behind")
}
