package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/verticut/verticut/internal/config"
	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/storage"
)

// Handler provides HTTP API handlers
type Handler struct {
	cfg      *config.Config
	repos    *repo.Repos
	queue    *jobs.Queue
	pool     *jobs.Pool
	resolver *storage.Resolver
	validate *validator.Validate
}

// NewHandler creates a new API handler
func NewHandler(cfg *config.Config, repos *repo.Repos, queue *jobs.Queue, pool *jobs.Pool, resolver *storage.Resolver) *Handler {
	return &Handler{
		cfg:      cfg,
		repos:    repos,
		queue:    queue,
		pool:     pool,
		resolver: resolver,
		validate: validator.New(),
	}
}

// response helpers

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeValid decodes the JSON body into dst and runs struct validation.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ---- Projects ----

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	UserID      string `json:"user_id"`
}

// ListProjects handles GET /api/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	projects, err := h.repos.Projects.List(userID, includeDeleted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject handles POST /api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	project, err := h.repos.Projects.Create(req.Name, req.UserID, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// GetProject handles GET /api/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.repos.Projects.ByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// UpdateProjectRequest is the body of PUT /api/projects/{id}.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateProject handles PUT /api/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	project, err := h.repos.Projects.Update(r.PathValue("id"), fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// DeleteProject handles DELETE /api/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.repos.Projects.Delete(r.PathValue("id"), hard); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// RestoreProject handles POST /api/projects/{id}/restore
func (h *Handler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.repos.Projects.Restore(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// ---- Videos ----

// ListVideos handles GET /api/projects/{id}/videos
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	videos, err := h.repos.Videos.ByProject(r.PathValue("id"), includeDeleted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if videos == nil {
		videos = []*model.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

// GetVideo handles GET /api/projects/{id}/videos/{vid}
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.repos.Videos.ByID(r.PathValue("vid"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if video == nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// UpdateVideoRequest is the body of PUT /api/projects/{id}/videos/{vid}.
type UpdateVideoRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=500"`
	SourceURL *string `json:"source_url" validate:"omitempty,url"`
}

// UpdateVideo handles PUT /api/projects/{id}/videos/{vid}
func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	var req UpdateVideoRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.SourceURL != nil {
		fields["source_url"] = *req.SourceURL
	}

	video, err := h.repos.Videos.Update(r.PathValue("vid"), fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if video == nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// DeleteVideo handles DELETE /api/projects/{id}/videos/{vid}
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.repos.Videos.Delete(r.PathValue("vid"), hard); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// BulkDeleteRequest is the body of POST /api/projects/{id}/videos/bulk-delete.
type BulkDeleteRequest struct {
	VideoIDs []string `json:"video_ids" validate:"required,min=1,dive,required"`
}

// BulkDeleteVideos handles POST /api/projects/{id}/videos/bulk-delete
func (h *Handler) BulkDeleteVideos(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.repos.Videos.DeleteMany(req.VideoIDs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(req.VideoIDs)})
}

// ---- Job submission ----

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL        string `json:"url" validate:"required,url"`
	ProjectID  string `json:"project_id" validate:"required"`
	Title      string `json:"title"`
	Resolution string `json:"resolution" validate:"omitempty,oneof=360 480 720 1080 max"`
	Proxy      string `json:"proxy"`
	Priority   int    `json:"priority"`
}

// SubmitDownload handles POST /api/download
func (h *Handler) SubmitDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{"url": req.URL}
	if req.Title != "" {
		input["title"] = req.Title
	}
	if req.Resolution != "" {
		input["resolution"] = req.Resolution
	}
	if req.Proxy != "" {
		input["proxy"] = req.Proxy
	}

	h.submit(w, model.TypeDownload, req.ProjectID, "", input, req.Priority)
}

// UploadRequest is the body of POST /api/upload. The file itself was
// already staged into the uploads directory by the transport layer.
type UploadRequest struct {
	Filename  string `json:"filename" validate:"required"`
	ProjectID string `json:"project_id" validate:"required"`
	Title     string `json:"title"`
	Priority  int    `json:"priority"`
}

// SubmitUpload handles POST /api/upload
func (h *Handler) SubmitUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{"filename": req.Filename}
	if req.Title != "" {
		input["title"] = req.Title
	}

	h.submit(w, model.TypeUpload, req.ProjectID, "", input, req.Priority)
}

// CaptionRequest is the body of the caption transform endpoint.
type CaptionRequest struct {
	ModelSize string `json:"model_size" validate:"omitempty,oneof=tiny base small medium large"`
	WordLevel bool   `json:"word_level"`
	Priority  int    `json:"priority"`
}

// SubmitCaption handles POST /api/projects/{p}/videos/{v}/caption
func (h *Handler) SubmitCaption(w http.ResponseWriter, r *http.Request) {
	var req CaptionRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{"word_level": req.WordLevel}
	if req.ModelSize != "" {
		input["model_size"] = req.ModelSize
	}

	h.submitTransform(w, r, model.TypeCaption, input, req.Priority)
}

// BurnRequest is the body of the burn transform endpoint.
type BurnRequest struct {
	CaptionID string     `json:"caption_id"`
	Style     model.Dict `json:"style"`
	Priority  int        `json:"priority"`
}

// SubmitBurn handles POST /api/projects/{p}/videos/{v}/burn
func (h *Handler) SubmitBurn(w http.ResponseWriter, r *http.Request) {
	var req BurnRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{}
	if req.CaptionID != "" {
		input["caption_id"] = req.CaptionID
	}
	if len(req.Style) > 0 {
		input["style"] = req.Style
	}

	h.submitTransform(w, r, model.TypeBurn, input, req.Priority)
}

// SplitScenesRequest is the body of the split-scenes transform endpoint.
type SplitScenesRequest struct {
	MinSceneLen float64 `json:"min_scene_len" validate:"omitempty,gt=0"`
	Threshold   float64 `json:"threshold" validate:"omitempty,gt=0"`
	Priority    int     `json:"priority"`
}

// SubmitSplitScenes handles POST /api/projects/{p}/videos/{v}/split-scenes
func (h *Handler) SubmitSplitScenes(w http.ResponseWriter, r *http.Request) {
	var req SplitScenesRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{}
	if req.MinSceneLen > 0 {
		input["min_scene_len"] = req.MinSceneLen
	}
	if req.Threshold > 0 {
		input["threshold"] = req.Threshold
	}

	h.submitTransform(w, r, model.TypeSplitScenes, input, req.Priority)
}

// SplitFixedRequest is the body of the split-fixed transform endpoint.
type SplitFixedRequest struct {
	Interval float64 `json:"interval" validate:"required,gt=0"`
	Priority int     `json:"priority"`
}

// SubmitSplitFixed handles POST /api/projects/{p}/videos/{v}/split-fixed
func (h *Handler) SubmitSplitFixed(w http.ResponseWriter, r *http.Request) {
	var req SplitFixedRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	h.submitTransform(w, r, model.TypeSplitFixed, model.Dict{"interval": req.Interval}, req.Priority)
}

// TrimRequest is the body of the trim transform endpoint. end <= start is
// rejected at submit time: no Job row is created.
type TrimRequest struct {
	StartTime float64 `json:"start_time" validate:"gte=0"`
	EndTime   float64 `json:"end_time" validate:"required,gtfield=StartTime"`
	Title     string  `json:"title"`
	Priority  int     `json:"priority"`
}

// SubmitTrim handles POST /api/projects/{p}/videos/{v}/trim
func (h *Handler) SubmitTrim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	input := model.Dict{"start_time": req.StartTime, "end_time": req.EndTime}
	if req.Title != "" {
		input["title"] = req.Title
	}

	h.submitTransform(w, r, model.TypeTrim, input, req.Priority)
}

// ConvertAspectRequest is the body of the convert-aspect transform endpoint.
type ConvertAspectRequest struct {
	Priority int `json:"priority"`
}

// SubmitConvertAspect handles POST /api/projects/{p}/videos/{v}/convert-aspect
func (h *Handler) SubmitConvertAspect(w http.ResponseWriter, r *http.Request) {
	var req ConvertAspectRequest
	if r.ContentLength > 0 && !h.decodeValid(w, r, &req) {
		return
	}
	h.submitTransform(w, r, model.TypeMakeVertical, model.Dict{}, req.Priority)
}

// submitTransform validates the target video exists, then submits a job
// scoped to it.
func (h *Handler) submitTransform(w http.ResponseWriter, r *http.Request, jobType string, input model.Dict, priority int) {
	videoID := r.PathValue("v")
	video, err := h.repos.Videos.ByID(videoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if video == nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	jobID, err := h.queue.Submit(jobType, video.ProjectID, videoID, input, priority, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (h *Handler) submit(w http.ResponseWriter, jobType, projectID, videoID string, input model.Dict, priority int) {
	jobID, err := h.queue.Submit(jobType, projectID, videoID, input, priority, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// ---- Job telemetry and lifecycle ----

// JobStatus handles GET /api/status/{job_id}
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.repos.Jobs.ByID(r.PathValue("job_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs with optional status/project filters
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var (
		list []*model.Job
		err  error
	)
	switch {
	case r.URL.Query().Get("status") != "":
		list, err = h.repos.Jobs.ByStatus(model.Status(r.URL.Query().Get("status")))
	case r.URL.Query().Get("project_id") != "":
		list, err = h.repos.Jobs.ByProject(r.URL.Query().Get("project_id"))
	default:
		list, err = h.repos.Jobs.List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*model.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CancelJob handles POST /api/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	err := h.queue.Cancel(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repo.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, repo.ErrJobTerminal) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// RetryJob handles POST /api/jobs/{id}/retry. The existing row re-enters
// pending and is requeued; no new job id is minted.
func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.repos.Jobs.Retry(id); err != nil {
		if errors.Is(err, repo.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, repo.ErrRetryExhausted) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job, err := h.repos.Jobs.ByID(id)
	if err != nil || job == nil {
		writeError(w, http.StatusInternalServerError, "job disappeared during retry")
		return
	}
	h.queue.Push(job.ID, job.Priority, job.CreatedAt)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// DeleteJob handles DELETE /api/jobs/{id}
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Jobs.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// CleanupJobsRequest is the body of POST /api/jobs/cleanup.
type CleanupJobsRequest struct {
	Days int `json:"days" validate:"omitempty,gt=0"`
}

// CleanupJobs handles POST /api/jobs/cleanup, purging old terminal jobs.
func (h *Handler) CleanupJobs(w http.ResponseWriter, r *http.Request) {
	var req CleanupJobsRequest
	if r.ContentLength > 0 && !h.decodeValid(w, r, &req) {
		return
	}
	days := req.Days
	if days <= 0 {
		days = h.cfg.JobRetentionDays
	}

	count, err := h.repos.Jobs.DeleteOld(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// QueueStats handles GET /api/queue/stats
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pool.Stats())
}

// ---- Artifact serving ----

// ServeVideo handles GET /video/{project}/{filename} and
// GET /stream/{project}/{filename}. http.ServeFile honors Range requests,
// which is what the stream endpoint exists for.
func (h *Handler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolver.VideoPath(r.PathValue("filename"))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}

// ServeCaption handles GET /caption/{project}/{filename}
func (h *Handler) ServeCaption(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolver.CaptionPath(r.PathValue("filename"))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}

// ---- Storage administration ----

// StorageStats handles GET /api/storage/stats
func (h *Handler) StorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.resolver.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// StorageFiles handles GET /api/storage/files
func (h *Handler) StorageFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.resolver.Files()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

// StorageCleanupRequest is the body of POST /api/storage/cleanup.
type StorageCleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours" validate:"omitempty,gt=0"`
}

// StorageCleanup handles POST /api/storage/cleanup
func (h *Handler) StorageCleanup(w http.ResponseWriter, r *http.Request) {
	var req StorageCleanupRequest
	if r.ContentLength > 0 && !h.decodeValid(w, r, &req) {
		return
	}
	if req.MaxAgeHours <= 0 {
		req.MaxAgeHours = 48
	}

	removed, freed := h.resolver.Cleanup(time.Duration(req.MaxAgeHours) * time.Hour)
	writeJSON(w, http.StatusOK, map[string]int64{"removed": int64(removed), "freed_bytes": freed})
}

// StorageBulkDeleteRequest is the body of POST /api/storage/bulk-delete.
type StorageBulkDeleteRequest struct {
	Filenames []string `json:"filenames" validate:"required,min=1,dive,required"`
}

// StorageBulkDelete handles POST /api/storage/bulk-delete
func (h *Handler) StorageBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req StorageBulkDeleteRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	removed := h.resolver.Delete(req.Filenames)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
