package handlers

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// handleMakeVertical re-renders an existing video as a 9:16 derivative
// registered as a child clip.
func (d *Deps) handleMakeVertical(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	progress(20, "Detecting dimensions...")
	probe, err := d.Prober.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	plan, err := media.PlanAspect(probe.Width, probe.Height)
	if err != nil {
		return nil, jobs.Tool("source has no video stream", "", err)
	}

	outputName := "vertical_" + uuid.NewString() + "_" + video.Filename
	outputPath := filepath.Join(d.Resolver.Dirs().Processed, outputName)

	progress(40, "Converting to vertical...")
	err = d.Encoder.ConvertAspect(ctx, videoPath, outputPath, plan, probe.Duration, func(fraction float64) {
		progress(40+int(fraction*50), "Converting to vertical...")
	})
	if err != nil {
		return nil, err
	}

	vertical, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID:     video.ProjectID,
		Title:         "Vertical - " + video.Title,
		Filename:      outputName,
		ParentVideoID: video.ID,
		IsClip:        true,
		Duration:      probe.Seconds(),
		Width:         media.TargetWidth,
		Height:        media.TargetHeight,
		SizeBytes:     fileSize(outputPath),
	})
	if err != nil {
		return nil, err
	}

	return model.Dict{"video_id": vertical.ID, "filename": outputName}, nil
}
