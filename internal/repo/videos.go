package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/store"
)

// Videos provides access to video rows.
type Videos struct {
	st *store.Store
}

func NewVideos(st *store.Store) *Videos {
	return &Videos{st: st}
}

const videoColumns = "id, project_id, title, filename, source_url, duration, width, height, size_bytes, is_clip, parent_video_id, created_at, updated_at, is_deleted"

func scanVideo(row rowScanner) (*model.Video, error) {
	var v model.Video
	var sourceURL, parentVideoID, createdAt, updatedAt sql.NullString
	var duration sql.NullFloat64
	var width, height sql.NullInt64
	var sizeBytes sql.NullInt64
	var isClip, isDeleted int
	err := row.Scan(&v.ID, &v.ProjectID, &v.Title, &v.Filename, &sourceURL, &duration,
		&width, &height, &sizeBytes, &isClip, &parentVideoID, &createdAt, &updatedAt, &isDeleted)
	if err != nil {
		return nil, err
	}
	v.SourceURL = sourceURL.String
	v.Duration = duration.Float64
	v.Width = int(width.Int64)
	v.Height = int(height.Int64)
	v.SizeBytes = sizeBytes.Int64
	v.IsClip = isClip != 0
	v.ParentVideoID = parentVideoID.String
	v.CreatedAt = parseTime(createdAt.String)
	v.UpdatedAt = parseTime(updatedAt.String)
	v.IsDeleted = isDeleted != 0
	return &v, nil
}

// NewVideo carries the fields for Create. ProjectID, Title and Filename are
// required; the rest are optional metadata.
type NewVideo struct {
	ProjectID     string
	Title         string
	Filename      string
	SourceURL     string
	Duration      float64
	Width         int
	Height        int
	SizeBytes     int64
	IsClip        bool
	ParentVideoID string
}

// Create inserts a new video row.
func (r *Videos) Create(nv NewVideo) (*model.Video, error) {
	id := uuid.NewString()
	_, err := r.st.Write(
		`INSERT INTO videos
			(id, project_id, title, filename, source_url, duration, width, height, size_bytes, is_clip, parent_video_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nv.ProjectID, nv.Title, nv.Filename, nullString(nv.SourceURL), nullFloat64(nv.Duration),
		nullInt(nv.Width), nullInt(nv.Height), nullInt64(nv.SizeBytes), boolToInt(nv.IsClip), nullString(nv.ParentVideoID),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Created video", "video_id", id, "title", nv.Title)
	return r.ByID(id)
}

// ByID returns the video or nil if not found or soft-deleted.
func (r *Videos) ByID(id string) (*model.Video, error) {
	row := r.st.QueryRow("SELECT "+videoColumns+" FROM videos WHERE id = ? AND is_deleted = 0", id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ByProject returns a project's videos newest-first.
func (r *Videos) ByProject(projectID string, includeDeleted bool) ([]*model.Video, error) {
	query := "SELECT " + videoColumns + " FROM videos WHERE project_id = ?"
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.st.Query(query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// ByFilename looks a video up by its bare artifact filename.
func (r *Videos) ByFilename(filename string) (*model.Video, error) {
	row := r.st.QueryRow("SELECT "+videoColumns+" FROM videos WHERE filename = ? AND is_deleted = 0", filename)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// videoUpdateFields gates which columns Update may touch.
var videoUpdateFields = map[string]bool{
	"title":           true,
	"filename":        true,
	"source_url":      true,
	"duration":        true,
	"width":           true,
	"height":          true,
	"size_bytes":      true,
	"is_clip":         true,
	"parent_video_id": true,
}

// Update applies the allowed subset of fields and returns the fresh row.
func (r *Videos) Update(id string, fields map[string]any) (*model.Video, error) {
	setClauses, values := buildUpdate(fields, videoUpdateFields)
	if len(setClauses) == 0 {
		return r.ByID(id)
	}
	values = append(values, id)
	_, err := r.st.Write(
		fmt.Sprintf("UPDATE videos SET %s WHERE id = ?", strings.Join(setClauses, ", ")),
		values...,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Updated video", "video_id", id)
	return r.ByID(id)
}

// Delete soft-deletes by default. Bytes on disk are not touched; physical
// reclamation is an admin operation.
func (r *Videos) Delete(id string, hard bool) error {
	var err error
	if hard {
		_, err = r.st.Write("DELETE FROM videos WHERE id = ?", id)
	} else {
		_, err = r.st.Write("UPDATE videos SET is_deleted = 1 WHERE id = ?", id)
	}
	if err == nil {
		logger.Info("Deleted video", "video_id", id, "hard", hard)
	}
	return err
}

// Restore clears the soft-delete flag.
func (r *Videos) Restore(id string) (*model.Video, error) {
	if _, err := r.st.Write("UPDATE videos SET is_deleted = 0 WHERE id = ?", id); err != nil {
		return nil, err
	}
	return r.ByID(id)
}

// DeleteMany soft-deletes a batch of videos in one statement.
func (r *Videos) DeleteMany(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.st.Write(
		fmt.Sprintf("UPDATE videos SET is_deleted = 1 WHERE id IN (%s)", placeholders),
		args...,
	)
	if err == nil {
		logger.Info("Soft deleted videos", "count", len(ids))
	}
	return err
}
