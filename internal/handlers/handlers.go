// Package handlers binds one handler to each job type. Handlers are
// idempotent within an attempt: fresh UUID-based output names mean a retry
// never collides with a previous attempt's files, and no Video/Caption row
// is created unless the output artifact exists.
package handlers

import (
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/verticut/verticut/internal/config"
	"github.com/verticut/verticut/internal/fetch"
	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/scenedetect"
	"github.com/verticut/verticut/internal/storage"
	"github.com/verticut/verticut/internal/transcribe"
)

// Deps carries everything the handlers need: repositories, tool adapters
// and the artifact filesystem.
type Deps struct {
	Cfg         *config.Config
	Repos       *repo.Repos
	Encoder     *media.Encoder
	Prober      *media.Prober
	Fetcher     *fetch.Fetcher
	Transcriber *transcribe.Transcriber
	Scenes      *scenedetect.Detector
	Resolver    *storage.Resolver

	// Proxy is the global download proxy from the admin config; a job's
	// input proxy overrides it.
	Proxy string
}

// Register binds every handler to its job type on the pool.
func Register(pool *jobs.Pool, d *Deps) {
	pool.Register(model.TypeDownload, d.handleDownload)
	pool.Register(model.TypeUpload, d.handleUpload)
	pool.Register(model.TypeCaption, d.handleCaption)
	pool.Register(model.TypeBurn, d.handleBurn)
	pool.Register(model.TypeSplitScenes, d.handleSplitScenes)
	pool.Register(model.TypeSplitFixed, d.handleSplitFixed)
	pool.Register(model.TypeTrim, d.handleTrim)
	pool.Register(model.TypeMakeVertical, d.handleMakeVertical)
	pool.Register(model.TypeBrowserImport, d.handleBrowserImport)
}

// resolveVideo loads a video row and the path to its bytes.
func (d *Deps) resolveVideo(videoID string) (*model.Video, string, error) {
	if videoID == "" {
		return nil, "", jobs.Validationf("video_id is required")
	}
	video, err := d.Repos.Videos.ByID(videoID)
	if err != nil {
		return nil, "", err
	}
	if video == nil {
		return nil, "", jobs.NotFoundf("video %s not found", videoID)
	}
	path, err := d.Resolver.VideoPath(video.Filename)
	if err != nil {
		return nil, "", jobs.NotFoundf("video file not found: %s", video.Filename)
	}
	return video, path, nil
}

// checkCancelled is the cancel observation point between external-process
// invocations: a cancelled row aborts the handler without touching the
// job's terminal state.
func (d *Deps) checkCancelled(jobID string) error {
	job, err := d.Repos.Jobs.ByID(jobID)
	if err != nil || job == nil {
		return nil
	}
	if job.Status == model.StatusCancelled {
		return jobs.ErrCancelled
	}
	return nil
}

// proxyFor picks the job's proxy, falling back to the global one.
func (d *Deps) proxyFor(input model.Dict) string {
	if p := dictStr(input, "proxy"); p != "" {
		return p
	}
	return d.Proxy
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func baseName(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}

// sanitizeFilename reduces arbitrary text to a safe bare filename.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(c)
		case c == ' ':
			b.WriteRune('_')
		case c == '-' || c == '_' || c == '.':
			b.WriteRune(c)
		}
	}
	safe := strings.Trim(b.String(), "._")
	if safe == "" {
		return "video_" + time.Now().UTC().Format("20060102150405")
	}
	return safe
}

// Input dict accessors. JSON decoding hands numbers back as float64.

func dictStr(d model.Dict, key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func dictFloat(d model.Dict, key string, def float64) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		// Tolerate numeric strings from older clients.
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func dictBool(d model.Dict, key string) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return false
}

func dictDict(d model.Dict, key string) model.Dict {
	switch v := d[key].(type) {
	case model.Dict:
		return v
	case map[string]any:
		return model.Dict(v)
	}
	return nil
}
