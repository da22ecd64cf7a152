package handlers

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// handleTrim cuts a [start, end) span into a freshly named clip pointing
// back at its source.
func (d *Deps) handleTrim(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	startTime := dictFloat(input, "start_time", -1)
	endTime := dictFloat(input, "end_time", -1)
	title := dictStr(input, "title")
	if title == "" {
		title = "Trimmed Video"
	}

	if startTime < 0 || endTime < 0 {
		return nil, jobs.Validationf("start_time and end_time are required")
	}
	if endTime <= startTime {
		return nil, jobs.Validationf("end_time must be after start_time")
	}

	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	trimmedName := "trim_" + uuid.NewString() + ".mp4"
	outputPath := filepath.Join(d.Resolver.Dirs().Processed, trimmedName)

	progress(10, "Trimming video...")
	if err := d.Encoder.Cut(ctx, videoPath, outputPath, startTime, endTime-startTime); err != nil {
		return nil, err
	}

	progress(90, "Creating database entry...")
	trimmed, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID:     video.ProjectID,
		Title:         title,
		Filename:      trimmedName,
		ParentVideoID: video.ID,
		IsClip:        true,
		Duration:      endTime - startTime,
		SizeBytes:     fileSize(outputPath),
	})
	if err != nil {
		return nil, err
	}

	return model.Dict{"video_id": trimmed.ID, "filename": trimmedName}, nil
}
