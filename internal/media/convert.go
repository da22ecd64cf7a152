package media

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Canonical output geometry: 9:16 portrait.
const (
	TargetWidth  = 1080
	TargetHeight = 1920

	// aspectEpsilon is the tolerance for treating a source as already 9:16.
	aspectEpsilon = 0.01
)

// AspectMode names the geometry strategy chosen for a source.
type AspectMode string

const (
	// ModeScale: source is already 9:16 within tolerance, pure scale.
	ModeScale AspectMode = "scale"
	// ModeCrop: source is wider, center-crop to 9:16 then scale.
	ModeCrop AspectMode = "crop"
	// ModePad: source is narrower than 9:16, scale to fit inside the target
	// frame then pad the remainder centered.
	ModePad AspectMode = "pad"
)

// AspectPlan is the filter chain for converting a source to 9:16.
type AspectPlan struct {
	Mode   AspectMode
	Filter string
}

// PlanAspect decides how to bring a width×height source to 9:16.
func PlanAspect(width, height int) (AspectPlan, error) {
	if width <= 0 || height <= 0 {
		return AspectPlan{}, fmt.Errorf("invalid source dimensions %dx%d", width, height)
	}

	inputAspect := float64(width) / float64(height)
	targetAspect := float64(TargetWidth) / float64(TargetHeight)

	switch {
	case math.Abs(inputAspect-targetAspect) < aspectEpsilon:
		return AspectPlan{
			Mode:   ModeScale,
			Filter: fmt.Sprintf("scale=%d:%d:flags=lanczos", TargetWidth, TargetHeight),
		}, nil
	case inputAspect > targetAspect:
		newWidth := int(float64(height) * targetAspect)
		xOffset := (width - newWidth) / 2
		return AspectPlan{
			Mode: ModeCrop,
			Filter: fmt.Sprintf("crop=%d:%d:%d:0,scale=%d:%d:flags=lanczos",
				newWidth, height, xOffset, TargetWidth, TargetHeight),
		}, nil
	default:
		// Narrower than 9:16: scale to fit inside the target frame, then
		// pad the remainder centered.
		return AspectPlan{
			Mode: ModePad,
			Filter: fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:flags=lanczos,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
				TargetWidth, TargetHeight, TargetWidth, TargetHeight),
		}, nil
	}
}

// ConvertAspect re-encodes inputPath to the canonical 9:16 mp4 at
// outputPath following the plan. High quality settings: CRF 18, AAC 192k,
// faststart for progressive playback.
func (e *Encoder) ConvertAspect(ctx context.Context, inputPath, outputPath string, plan AspectPlan, duration time.Duration, progress ProgressFunc) error {
	args := []string{
		"-i", inputPath,
		"-vf", plan.Filter,
		"-c:v", "libx264", "-preset", "slow", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
	return e.run(ctx, args, outputPath, duration, progress)
}

// SafeImport normalizes an arbitrary staged file into a canonical 9:16 mp4,
// tolerating container quirks (broken timestamps, junk trailers) that a
// plain remux would reject.
func (e *Encoder) SafeImport(ctx context.Context, inputPath, outputPath string, plan AspectPlan, duration time.Duration, progress ProgressFunc) error {
	args := []string{
		"-err_detect", "ignore_err",
		"-fflags", "+genpts",
		"-i", inputPath,
		"-vf", plan.Filter,
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
	return e.run(ctx, args, outputPath, duration, progress)
}

// Cut re-encodes the [start, start+length) span of inputPath into
// outputPath. Frame-accurate: seek before decode, fresh encode.
func (e *Encoder) Cut(ctx context.Context, inputPath, outputPath string, start, length float64) error {
	args := []string{
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", inputPath,
		"-c:v", "libx264", "-preset", "slow", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k",
		"-y", outputPath,
	}
	return e.run(ctx, args, outputPath, 0, nil)
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
