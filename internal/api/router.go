package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerAPIRoutes registers all API endpoints on the given mux
func registerAPIRoutes(mux *http.ServeMux, h *Handler) {
	// Projects
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.GetProject)
	mux.HandleFunc("PUT /api/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.DeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/restore", h.RestoreProject)

	// Videos
	mux.HandleFunc("GET /api/projects/{id}/videos", h.ListVideos)
	mux.HandleFunc("POST /api/projects/{id}/videos/bulk-delete", h.BulkDeleteVideos)
	mux.HandleFunc("GET /api/projects/{id}/videos/{vid}", h.GetVideo)
	mux.HandleFunc("PUT /api/projects/{id}/videos/{vid}", h.UpdateVideo)
	mux.HandleFunc("DELETE /api/projects/{id}/videos/{vid}", h.DeleteVideo)

	// Job submission
	mux.HandleFunc("POST /api/download", h.SubmitDownload)
	mux.HandleFunc("POST /api/upload", h.SubmitUpload)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/caption", h.SubmitCaption)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/burn", h.SubmitBurn)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/split-scenes", h.SubmitSplitScenes)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/split-fixed", h.SubmitSplitFixed)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/trim", h.SubmitTrim)
	mux.HandleFunc("POST /api/projects/{p}/videos/{v}/convert-aspect", h.SubmitConvertAspect)

	// Job telemetry and lifecycle
	mux.HandleFunc("GET /api/status/{job_id}", h.JobStatus)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/stream", h.JobStream)
	mux.HandleFunc("POST /api/jobs/cleanup", h.CleanupJobs)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", h.CancelJob)
	mux.HandleFunc("POST /api/jobs/{id}/retry", h.RetryJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.DeleteJob)
	mux.HandleFunc("GET /api/queue/stats", h.QueueStats)

	// Artifact serving; the stream endpoint exists for Range playback
	mux.HandleFunc("GET /video/{project}/{filename}", h.ServeVideo)
	mux.HandleFunc("GET /stream/{project}/{filename}", h.ServeVideo)
	mux.HandleFunc("GET /caption/{project}/{filename}", h.ServeCaption)

	// Storage administration
	mux.HandleFunc("GET /api/storage/stats", h.StorageStats)
	mux.HandleFunc("GET /api/storage/files", h.StorageFiles)
	mux.HandleFunc("POST /api/storage/cleanup", h.StorageCleanup)
	mux.HandleFunc("POST /api/storage/bulk-delete", h.StorageBulkDelete)
}

// NewRouter creates a new HTTP router with all API endpoints
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerAPIRoutes(mux, h)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
