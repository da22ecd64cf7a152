package media

import (
	"context"
	"strings"
	"time"
)

// Burn renders the styled subtitle script at assPath into the video frames
// of inputPath, copying the audio stream through untouched.
func (e *Encoder) Burn(ctx context.Context, inputPath, assPath, outputPath string, duration time.Duration, progress ProgressFunc) error {
	args := []string{
		"-i", inputPath,
		"-vf", "subtitles='" + escapeFilterPath(assPath) + "'",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "copy",
		"-y", outputPath,
	}
	return e.run(ctx, args, outputPath, duration, progress)
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(path, ":", "\\:")
}
