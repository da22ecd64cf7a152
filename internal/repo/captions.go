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

// Captions provides access to caption rows.
type Captions struct {
	st *store.Store
}

func NewCaptions(st *store.Store) *Captions {
	return &Captions{st: st}
}

const captionColumns = "id, video_id, filename, language, format, style, created_at, updated_at, is_deleted"

func scanCaption(row rowScanner) (*model.Caption, error) {
	var c model.Caption
	var style, createdAt, updatedAt sql.NullString
	var isDeleted int
	err := row.Scan(&c.ID, &c.VideoID, &c.Filename, &c.Language, &c.Format, &style,
		&createdAt, &updatedAt, &isDeleted)
	if err != nil {
		return nil, err
	}
	c.Style = unmarshalDict(style.String)
	c.CreatedAt = parseTime(createdAt.String)
	c.UpdatedAt = parseTime(updatedAt.String)
	c.IsDeleted = isDeleted != 0
	return &c, nil
}

// Create inserts a new caption row.
func (r *Captions) Create(videoID, filename, language, format string, style model.Dict) (*model.Caption, error) {
	id := uuid.NewString()
	if language == "" {
		language = "en"
	}
	if format == "" {
		format = model.FormatSRT
	}
	styleJSON, err := marshalDict(style)
	if err != nil {
		return nil, fmt.Errorf("encode style: %w", err)
	}
	_, err = r.st.Write(
		"INSERT INTO captions (id, video_id, filename, language, format, style) VALUES (?, ?, ?, ?, ?, ?)",
		id, videoID, filename, language, format, styleJSON,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Created caption", "caption_id", id, "video_id", videoID)
	return r.ByID(id)
}

// ByID returns the caption or nil if not found or soft-deleted.
func (r *Captions) ByID(id string) (*model.Caption, error) {
	row := r.st.QueryRow("SELECT "+captionColumns+" FROM captions WHERE id = ? AND is_deleted = 0", id)
	c, err := scanCaption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ByVideo returns a video's captions newest-first, so the first element is
// the latest caption (the burn handler's default).
func (r *Captions) ByVideo(videoID string) ([]*model.Caption, error) {
	rows, err := r.st.Query(
		"SELECT "+captionColumns+" FROM captions WHERE video_id = ? AND is_deleted = 0 ORDER BY created_at DESC",
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captions []*model.Caption
	for rows.Next() {
		c, err := scanCaption(rows)
		if err != nil {
			return nil, err
		}
		captions = append(captions, c)
	}
	return captions, rows.Err()
}

// captionUpdateFields gates which columns Update may touch.
var captionUpdateFields = map[string]bool{
	"filename": true,
	"language": true,
	"format":   true,
	"style":    true,
}

// Update applies the allowed subset of fields and returns the fresh row.
// A "style" value may be a model.Dict; it is JSON-encoded before writing.
func (r *Captions) Update(id string, fields map[string]any) (*model.Caption, error) {
	if style, ok := fields["style"].(model.Dict); ok {
		encoded, err := marshalDict(style)
		if err != nil {
			return nil, fmt.Errorf("encode style: %w", err)
		}
		fields["style"] = encoded
	}
	setClauses, values := buildUpdate(fields, captionUpdateFields)
	if len(setClauses) == 0 {
		return r.ByID(id)
	}
	values = append(values, id)
	_, err := r.st.Write(
		fmt.Sprintf("UPDATE captions SET %s WHERE id = ?", strings.Join(setClauses, ", ")),
		values...,
	)
	if err != nil {
		return nil, err
	}
	return r.ByID(id)
}

// Delete soft-deletes by default.
func (r *Captions) Delete(id string, hard bool) error {
	var err error
	if hard {
		_, err = r.st.Write("DELETE FROM captions WHERE id = ?", id)
	} else {
		_, err = r.st.Write("UPDATE captions SET is_deleted = 1 WHERE id = ?", id)
	}
	if err == nil {
		logger.Info("Deleted caption", "caption_id", id, "hard", hard)
	}
	return err
}
