package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/subtitle"
)

// handleBurn renders a caption into the video frames, producing a new
// child video with a fresh unique filename to defeat browser caching.
func (d *Deps) handleBurn(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData

	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	caption, err := d.findCaption(video.ID, dictStr(input, "caption_id"))
	if err != nil {
		return nil, err
	}
	captionPath, err := d.Resolver.CaptionPath(caption.Filename)
	if err != nil {
		return nil, jobs.NotFoundf("caption file not found: %s", caption.Filename)
	}

	style := subtitle.StyleFromDict(dictDict(input, "style"))

	burnedName := "burned_" + uuid.NewString() + "_" + video.Filename
	if !strings.HasSuffix(burnedName, ".mp4") {
		burnedName = baseName(burnedName) + ".mp4"
	}
	outputPath := filepath.Join(d.Resolver.Dirs().Processed, burnedName)

	var duration time.Duration
	if probe, probeErr := d.Prober.Probe(ctx, videoPath); probeErr == nil {
		duration = probe.Duration
	}

	progress(10, "Burning captions...")
	if err := d.burnWithFontFallback(ctx, videoPath, captionPath, outputPath, style, duration, progress); err != nil {
		return nil, err
	}

	progress(90, "Creating database entry...")
	burned, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID:     video.ProjectID,
		Title:         video.Title + " (Captioned)",
		Filename:      burnedName,
		ParentVideoID: video.ID,
		IsClip:        video.IsClip,
		Duration:      video.Duration,
		SizeBytes:     fileSize(outputPath),
	})
	if err != nil {
		return nil, err
	}

	return model.Dict{"video_id": burned.ID, "filename": burnedName}, nil
}

// findCaption resolves the explicit caption or falls back to the video's
// newest one.
func (d *Deps) findCaption(videoID, captionID string) (*model.Caption, error) {
	if captionID != "" {
		caption, err := d.Repos.Captions.ByID(captionID)
		if err != nil {
			return nil, err
		}
		if caption == nil {
			return nil, jobs.NotFoundf("caption %s not found", captionID)
		}
		return caption, nil
	}

	captions, err := d.Repos.Captions.ByVideo(videoID)
	if err != nil {
		return nil, err
	}
	if len(captions) == 0 {
		return nil, jobs.NotFoundf("no caption found for video %s", videoID)
	}
	return captions[0], nil
}

// burnWithFontFallback converts the SRT to a styled ASS script and burns
// it. An encoder failure pointing at font selection retries once with a
// guaranteed-available system font.
func (d *Deps) burnWithFontFallback(ctx context.Context, videoPath, captionPath, outputPath string, style subtitle.Style, duration time.Duration, progress jobs.ProgressFunc) error {
	burnProgress := func(fraction float64) {
		progress(10+int(fraction*75), "Burning captions...")
	}

	assPath, err := subtitle.CreateASSFile(captionPath, style)
	if err != nil {
		return err
	}
	defer os.Remove(assPath)

	err = d.Encoder.Burn(ctx, videoPath, assPath, outputPath, duration, burnProgress)
	if err == nil {
		return nil
	}

	var toolErr *jobs.Error
	if !errors.As(err, &toolErr) || !media.IsFontError(toolErr.Stderr) || style.FontName == subtitle.FallbackFont {
		return err
	}

	style.FontName = subtitle.FallbackFont
	fallbackASS, assErr := subtitle.CreateASSFile(captionPath, style)
	if assErr != nil {
		return err
	}
	defer os.Remove(fallbackASS)

	return d.Encoder.Burn(ctx, videoPath, fallbackASS, outputPath, duration, burnProgress)
}
