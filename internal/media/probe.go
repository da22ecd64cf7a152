// Package media wraps the external encoder toolchain (ffmpeg/ffprobe) as
// cancellable, timeout-bounded calls with stderr capture.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/verticut/verticut/internal/jobs"
)

// ProbeResult contains metadata about a video file
type ProbeResult struct {
	Path       string        `json:"path"`
	Size       int64         `json:"size"`
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
	VideoCodec string        `json:"video_codec"`
	AudioCodec string        `json:"audio_codec"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	FrameRate  float64       `json:"frame_rate"`
}

// Seconds returns the duration as floating-point seconds.
func (p *ProbeResult) Seconds() float64 {
	return p.Duration.Seconds()
}

// ffprobeOutput represents the JSON output from ffprobe
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type ffprobeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Prober wraps ffprobe functionality
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a new Prober with the given ffprobe path and per-call
// timeout.
func NewProber(ffprobePath string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{ffprobePath: ffprobePath, timeout: timeout}
}

// Probe returns metadata about a video file.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, jobs.Timeout("ffprobe timed out", err)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, jobs.Tool("ffprobe failed", string(exitErr.Stderr), err)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	result, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	result.Path = path
	return result, nil
}

func parseProbeOutput(output []byte) (*ProbeResult, error) {
	var probeOutput ffprobeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := &ProbeResult{
		Format: probeOutput.Format.FormatName,
	}

	if probeOutput.Format.Size != "" {
		result.Size, _ = strconv.ParseInt(probeOutput.Format.Size, 10, 64)
	}
	if probeOutput.Format.Duration != "" {
		durationSec, _ := strconv.ParseFloat(probeOutput.Format.Duration, 64)
		result.Duration = time.Duration(durationSec * float64(time.Second))
	}

	for i := range probeOutput.Streams {
		stream := &probeOutput.Streams[i]
		switch stream.CodecType {
		case "video":
			if result.VideoCodec == "" { // Take first video stream
				result.VideoCodec = stream.CodecName
				result.Width = stream.Width
				result.Height = stream.Height
				result.FrameRate = parseFrameRate(stream.RFrameRate)
				if result.FrameRate == 0 {
					result.FrameRate = parseFrameRate(stream.AvgFrameRate)
				}
			}
		case "audio":
			if result.AudioCodec == "" { // Take first audio stream
				result.AudioCodec = stream.CodecName
			}
		}
	}

	return result, nil
}

// parseFrameRate parses a frame rate string like "30000/1001" or "30/1"
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}

// IsVideoFile returns true if the file extension suggests a video file
func IsVideoFile(path string) bool {
	ext := strings.ToLower(path)
	videoExtensions := []string{
		".mkv", ".mp4", ".avi", ".mov", ".wmv", ".flv",
		".webm", ".m4v", ".mpeg", ".mpg", ".m2ts", ".ts",
	}
	for _, ve := range videoExtensions {
		if strings.HasSuffix(ext, ve) {
			return true
		}
	}
	return false
}
