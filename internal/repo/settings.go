package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/store"
)

// Settings provides access to application-wide key/value configuration.
// Values round-trip through JSON.
type Settings struct {
	st *store.Store
}

func NewSettings(st *store.Store) *Settings {
	return &Settings{st: st}
}

// Get returns the decoded value for key, or def when the key is absent.
func (r *Settings) Get(key string, def any) (any, error) {
	var raw string
	err := r.st.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		// Pre-JSON legacy rows stored bare strings
		return raw, nil
	}
	return value, nil
}

// Set stores value under key, JSON-encoded.
func (r *Settings) Set(key string, value any, description string) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = r.st.Write(
		"INSERT OR REPLACE INTO settings (key, value, description) VALUES (?, ?, ?)",
		key, string(encoded), nullString(description),
	)
	return err
}

// Delete removes a setting.
func (r *Settings) Delete(key string) error {
	_, err := r.st.Write("DELETE FROM settings WHERE key = ?", key)
	return err
}

// All returns every setting.
func (r *Settings) All() ([]*model.Setting, error) {
	rows, err := r.st.Query("SELECT key, value, description, updated_at FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*model.Setting
	for rows.Next() {
		var s model.Setting
		var raw string
		var description, updatedAt sql.NullString
		if err := rows.Scan(&s.Key, &raw, &description, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &s.Value); err != nil {
			s.Value = raw
		}
		s.Description = description.String
		s.UpdatedAt = parseTime(updatedAt.String)
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}
