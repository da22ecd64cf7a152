package repo

import (
	"encoding/json"
	"time"

	"github.com/verticut/verticut/internal/model"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Helper functions for SQL values. Zero values map to NULL so optional
// columns stay empty instead of storing "".

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

func nullInt64(i int64) any {
	if i == 0 {
		return nil
	}
	return i
}

func nullFloat64(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Also accept SQLite's space-separated datetime form.
		t, _ = time.Parse("2006-01-02 15:04:05", s)
	}
	return t
}

// marshalDict encodes a JSON dict column, NULL when empty.
func marshalDict(d model.Dict) (any, error) {
	if len(d) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalDict decodes a JSON dict column, nil when NULL/empty.
func unmarshalDict(s string) model.Dict {
	if s == "" {
		return nil
	}
	var d model.Dict
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil
	}
	return d
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
