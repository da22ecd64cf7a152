package handlers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// handleUpload normalizes a file the HTTP layer already staged into the
// uploads directory and registers it.
func (d *Deps) handleUpload(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	stagedName := dictStr(input, "filename")
	title := dictStr(input, "title")
	if title == "" {
		title = "Uploaded Video"
	}

	if stagedName == "" || job.ProjectID == "" {
		return nil, jobs.Validationf("filename and project_id are required")
	}

	stagedPath := filepath.Join(d.Resolver.Dirs().Uploads, filepath.Base(stagedName))
	if fileSize(stagedPath) == 0 {
		return nil, jobs.NotFoundf("staged upload not found: %s", stagedName)
	}

	finalName := uuid.NewString() + ".mp4"
	finalPath := filepath.Join(d.Resolver.Dirs().Uploads, finalName)

	return d.importFile(ctx, job, progress, stagedPath, finalName, finalPath, title)
}

// importFile runs the shared safe-import pipeline: probe, normalize to the
// canonical 9:16 mp4, drop the staged input, register the video.
func (d *Deps) importFile(ctx context.Context, job *model.Job, progress jobs.ProgressFunc, stagedPath, finalName, finalPath, title string) (model.Dict, error) {
	probe, err := d.Prober.Probe(ctx, stagedPath)
	if err != nil {
		return nil, err
	}
	plan, err := media.PlanAspect(probe.Width, probe.Height)
	if err != nil {
		return nil, jobs.Tool("staged file has no video stream", "", err)
	}

	progress(30, "Importing video safely...")
	err = d.Encoder.SafeImport(ctx, stagedPath, finalPath, plan, probe.Duration, func(fraction float64) {
		progress(30+int(fraction*60), "Importing video safely...")
	})
	if err != nil {
		return nil, err
	}

	if stagedPath != finalPath {
		os.Remove(stagedPath)
	}

	progress(95, "Finalizing...")
	video, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID: job.ProjectID,
		Title:     title,
		Filename:  finalName,
		Duration:  probe.Seconds(),
		Width:     media.TargetWidth,
		Height:    media.TargetHeight,
		SizeBytes: fileSize(finalPath),
	})
	if err != nil {
		return nil, err
	}

	return model.Dict{"video_id": video.ID, "filename": finalName}, nil
}
