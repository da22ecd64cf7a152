package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/logger"
)

// ProgressFunc receives the encode position as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Encoder wraps ffmpeg invocations. Every call is bounded by the configured
// timeout and captures stderr for error reporting.
type Encoder struct {
	ffmpegPath string
	timeout    time.Duration
}

// NewEncoder creates an Encoder with the given ffmpeg path and per-call
// timeout.
func NewEncoder(ffmpegPath string, timeout time.Duration) *Encoder {
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Encoder{ffmpegPath: ffmpegPath, timeout: timeout}
}

// run executes ffmpeg with the given output-side args. When progress is
// non-nil, -progress pipe:1 output is parsed and positions reported against
// duration. A non-zero exit removes the partial output file and returns a
// tagged tool error carrying the stderr tail.
func (e *Encoder) run(ctx context.Context, args []string, outputPath string, duration time.Duration, progress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	full := make([]string, 0, len(args)+3)
	if progress != nil {
		full = append(full, "-progress", "pipe:1", "-nostats")
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, full...)
	logger.Debug("FFmpeg command", "args", strings.Join(full, " "))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if progress != nil && duration > 0 {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start ffmpeg: %w", err)
		}
		go parseProgress(stdout, duration, progress)
	} else {
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start ffmpeg: %w", err)
		}
	}

	if err := cmd.Wait(); err != nil {
		if outputPath != "" {
			os.Remove(outputPath)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return jobs.Timeout("ffmpeg timed out", err)
		}
		return jobs.Tool("ffmpeg failed", stderrTail(stderr.String()), err)
	}
	return nil
}

// parseProgress reads ffmpeg's key=value progress stream and reports the
// position as a fraction of duration.
func parseProgress(r io.Reader, duration time.Duration, progress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	var position time.Duration
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key, value := line[:idx], line[idx+1:]
		switch key {
		case "out_time_us":
			if value != "N/A" {
				us, _ := strconv.ParseInt(value, 10, 64)
				position = time.Duration(us) * time.Microsecond
			}
		case "progress":
			if value == "continue" || value == "end" {
				fraction := float64(position) / float64(duration)
				if fraction > 1 {
					fraction = 1
				}
				progress(fraction)
			}
		}
	}
}

// stderrTail returns the last few lines of captured stderr, enough context
// for the error message without recording a full encode log.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}

// IsFontError reports whether ffmpeg stderr points at font selection
// problems during subtitle rendering. The burn handler retries once with a
// guaranteed-available system font.
func IsFontError(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "fontselect") ||
		strings.Contains(s, "fontconfig") ||
		strings.Contains(s, "font provider") ||
		strings.Contains(s, "glyph")
}
