package model

import (
	"time"
)

// Status represents the current state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job type names. Each has a registered handler in the worker pool.
const (
	TypeDownload      = "download"
	TypeUpload        = "upload"
	TypeCaption       = "caption"
	TypeBurn          = "burn"
	TypeSplitScenes   = "split_scenes"
	TypeSplitFixed    = "split_fixed"
	TypeTrim          = "trim"
	TypeMakeVertical  = "make_vertical"
	TypeBrowserImport = "browser_import"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Caption formats
const (
	FormatSRT = "srt"
	FormatVTT = "vtt"
	FormatASS = "ass"
)

// Dict is an opaque JSON object. Unknown fields survive a round-trip
// through the store untouched.
type Dict map[string]any

// User is a passcode-scoped account. One admin user always exists.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Passcode  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted,omitempty"`
}

// Project groups videos, captions and jobs under an optional owner.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsDeleted   bool      `json:"is_deleted,omitempty"`
}

// Video is a media artifact. Filename is a bare name inside the artifact
// filesystem, never a path. ParentVideoID links derivatives (clips, burned
// versions) back to their source.
type Video struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	SourceURL     string    `json:"source_url,omitempty"`
	Duration      float64   `json:"duration,omitempty"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	IsClip        bool      `json:"is_clip"`
	ParentVideoID string    `json:"parent_video_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsDeleted     bool      `json:"is_deleted,omitempty"`
}

// Caption is a subtitle artifact attached to a video.
type Caption struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Filename  string    `json:"filename"`
	Language  string    `json:"language"`
	Format    string    `json:"format"`
	Style     Dict      `json:"style,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted,omitempty"`
}

// Job is a persistent record of a unit of asynchronous work.
type Job struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Status       Status    `json:"status"`
	Priority     int       `json:"priority"`
	ProjectID    string    `json:"project_id,omitempty"`
	VideoID      string    `json:"video_id,omitempty"`
	InputData    Dict      `json:"input_data,omitempty"`
	OutputData   Dict      `json:"output_data,omitempty"`
	Progress     int       `json:"progress"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusCancelled
}

// Setting is an application-wide key/value pair with a JSON-encoded value.
type Setting struct {
	Key         string    `json:"key"`
	Value       any       `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
