package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/fetch"
	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// handleDownload fetches a URL, converts it to the canonical 9:16 form and
// registers the resulting video.
//
// Progress map: 0-50% download, 60-95% convert, 95-100% registration.
func (d *Deps) handleDownload(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	url := dictStr(input, "url")
	resolution := dictStr(input, "resolution")
	if resolution == "" {
		resolution = "720"
	}

	if url == "" || job.ProjectID == "" {
		return nil, jobs.Validationf("url and project_id are required")
	}
	if !fetch.IsValidURL(url) {
		return nil, jobs.Validationf("invalid url: %s", url)
	}

	title := dictStr(input, "title")
	if title == "" {
		title = d.Fetcher.ExtractTitle(ctx, url)
	}

	baseID := uuid.NewString()
	rawName := "raw_" + baseID + ".mp4"
	processedName := baseID + ".mp4"
	rawPath := filepath.Join(d.Resolver.Dirs().Uploads, rawName)
	processedPath := filepath.Join(d.Resolver.Dirs().Uploads, processedName)

	progress(10, fmt.Sprintf("Downloading %sp format...", resolution))
	err := d.Fetcher.Download(ctx, url, rawPath, resolution, d.proxyFor(input), func(fraction float64) {
		if fraction >= 0 {
			progress(10+int(fraction*40), "Downloading...")
		}
	})
	if err != nil {
		return nil, err
	}
	defer os.Remove(rawPath)

	if err := d.checkCancelled(job.ID); err != nil {
		return nil, err
	}

	probe, err := d.Prober.Probe(ctx, rawPath)
	if err != nil {
		return nil, err
	}
	plan, err := media.PlanAspect(probe.Width, probe.Height)
	if err != nil {
		return nil, jobs.Tool("downloaded file has no video stream", "", err)
	}

	progress(60, "Converting to vertical format...")
	err = d.Encoder.ConvertAspect(ctx, rawPath, processedPath, plan, probe.Duration, func(fraction float64) {
		progress(60+int(fraction*35), "Converting to vertical format...")
	})
	if err != nil {
		return nil, err
	}

	progress(95, "Finalizing...")
	video, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID: job.ProjectID,
		Title:     title,
		Filename:  processedName,
		SourceURL: url,
		Duration:  probe.Seconds(),
		Width:     media.TargetWidth,
		Height:    media.TargetHeight,
		SizeBytes: fileSize(processedPath),
	})
	if err != nil {
		return nil, err
	}

	return model.Dict{"video_id": video.ID, "filename": processedName}, nil
}
