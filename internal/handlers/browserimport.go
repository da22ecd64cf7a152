package handlers

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
)

// handleBrowserImport treats a file staged by the remote-browser subsystem
// as an upload: normalize, register, drop the stage file.
func (d *Deps) handleBrowserImport(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	tempPath := dictStr(input, "temp_path")
	originalName := dictStr(input, "original_name")

	if tempPath == "" || job.ProjectID == "" {
		return nil, jobs.Validationf("temp_path and project_id are required")
	}
	if fileSize(tempPath) == 0 {
		return nil, jobs.NotFoundf("source file not found: %s", tempPath)
	}

	title := originalName
	if title == "" {
		title = "Imported Video"
	}

	finalName := uuid.NewString() + ".mp4"
	finalPath := filepath.Join(d.Resolver.Dirs().Uploads, finalName)

	progress(20, "Normalizing video format...")
	return d.importFile(ctx, job, progress, tempPath, finalName, finalPath, title)
}
