// Package fetch acquires source media: platform downloads via the yt-dlp
// tool and direct URLs via streaming HTTP with chunked progress.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/retry"
)

const (
	downloadChunkSize = 32 * 1024
	downloadAttempts  = 3
	downloadBaseDelay = 2 * time.Second
)

// ProgressFunc receives download progress as a fraction in [0, 1]. Unknown
// totals report -1.
type ProgressFunc func(fraction float64)

// Fetcher downloads source media with per-call timeouts.
type Fetcher struct {
	ytdlpPath string
	timeout   time.Duration
	client    *http.Client
}

// NewFetcher creates a Fetcher around the yt-dlp binary.
func NewFetcher(ytdlpPath string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Fetcher{
		ytdlpPath: ytdlpPath,
		timeout:   timeout,
		client:    &http.Client{},
	}
}

// FormatFor builds the yt-dlp format selector for a resolution ceiling.
// Prefers mp4 video + m4a audio so the merge stays an mp4 remux.
func FormatFor(resolution string) string {
	if resolution == "" {
		resolution = "720"
	}
	if resolution == "max" {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf("bestvideo[height<=%s][ext=mp4]+bestaudio[ext=m4a]/best[height<=%s][ext=mp4]/best",
		resolution, resolution)
}

// Download fetches url into outputPath. Direct media URLs stream over
// HTTP; everything else goes through yt-dlp. Transient failures are retried
// inside the adapter with linearly growing delay.
func (f *Fetcher) Download(ctx context.Context, url, outputPath, resolution, proxy string, progress ProgressFunc) error {
	platform := DetectPlatform(url)
	logger.Info("Downloading", "platform", platform, "url", url, "resolution", resolution)

	if IsDirectMediaURL(url) {
		return retry.Do(ctx, downloadAttempts, downloadBaseDelay, transientOnly, func() error {
			return f.downloadDirect(ctx, url, outputPath, proxy, progress)
		})
	}
	return retry.Do(ctx, downloadAttempts, downloadBaseDelay, transientOnly, func() error {
		return f.downloadTool(ctx, url, outputPath, resolution, proxy)
	})
}

// transientOnly retries network and tool failures but not validation or
// missing-entity errors.
func transientOnly(err error) bool {
	var he *jobs.Error
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return true
}

// downloadDirect streams a direct media URL to disk with chunked progress.
func (f *Fetcher) downloadDirect(ctx context.Context, url, outputPath, proxy string, progress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return jobs.Validationf("invalid download URL: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := f.client
	if proxy != "" {
		proxyClient, err := clientWithProxy(proxy)
		if err != nil {
			return jobs.Validationf("invalid proxy: %v", err)
		}
		client = proxyClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return jobs.Timeout("download timed out", err)
		}
		return jobs.Transient("download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return jobs.NotFoundf("download returned %d", resp.StatusCode)
		}
		return jobs.Transient(fmt.Sprintf("download returned %d", resp.StatusCode), nil)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write output file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				if total > 0 {
					progress(float64(downloaded) / float64(total))
				} else {
					progress(-1)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			os.Remove(outputPath)
			if ctx.Err() == context.DeadlineExceeded {
				return jobs.Timeout("download timed out", readErr)
			}
			return jobs.Transient("download stream interrupted", readErr)
		}
	}

	return out.Sync()
}

func clientWithProxy(proxy string) (*http.Client, error) {
	parsed, err := neturl.Parse(proxy)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(parsed)}}, nil
}

// downloadTool shells out to yt-dlp with a format selector derived from the
// resolution ceiling.
func (f *Fetcher) downloadTool(ctx context.Context, url, outputPath, resolution, proxy string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-f", FormatFor(resolution),
		"-o", outputPath,
		"--no-playlist",
		"--socket-timeout", "30",
		"--merge-output-format", "mp4",
	}
	if proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, f.ytdlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return jobs.Timeout("yt-dlp timed out", err)
		}
		return jobs.Tool("yt-dlp failed", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// ExtractTitle resolves a human-friendly title: URL basename for direct
// media, yt-dlp metadata (without downloading) otherwise. Falls back to
// "video" on any failure.
func (f *Fetcher) ExtractTitle(ctx context.Context, url string) string {
	if DetectPlatform(url) == PlatformDirect {
		return TitleFromURL(url)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ytdlpPath, "--print", "title", "--skip-download", "--no-warnings", url)
	out, err := cmd.Output()
	if err != nil {
		logger.Warn("Failed to extract title", "url", url, "error", err)
		return "video"
	}
	title := strings.TrimSpace(string(out))
	if title == "" {
		return "video"
	}
	return title
}
