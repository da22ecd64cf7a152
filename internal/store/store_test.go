package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenCreatesSchema(t *testing.T) {
	st := newTestStore(t)

	// All six tables exist
	for _, table := range []string{"users", "projects", "videos", "jobs", "captions", "settings"} {
		var name string
		err := st.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestWriteAndQuery(t *testing.T) {
	st := newTestStore(t)

	affected, err := st.Write("INSERT INTO settings (key, value) VALUES (?, ?)", "theme", `"dark"`)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	var value string
	err = st.QueryRow("SELECT value FROM settings WHERE key = ?", "theme").Scan(&value)
	require.NoError(t, err)
	require.Equal(t, `"dark"`, value)
}

func TestUniqueViolation(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Write("INSERT INTO users (id, username, passcode) VALUES ('u1', 'alice', 'pc1')")
	require.NoError(t, err)

	_, err = st.Write("INSERT INTO users (id, username, passcode) VALUES ('u2', 'alice', 'pc2')")
	require.Error(t, err)
	require.True(t, store.IsUniqueViolation(err))
}

func TestUpdatedAtTrigger(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Write("INSERT INTO projects (id, name) VALUES ('p1', 'before')")
	require.NoError(t, err)

	var created string
	require.NoError(t, st.QueryRow("SELECT updated_at FROM projects WHERE id = 'p1'").Scan(&created))

	// The trigger stamps with second precision; make sure the clock moved.
	time.Sleep(1100 * time.Millisecond)

	_, err = st.Write("UPDATE projects SET name = 'after' WHERE id = 'p1'")
	require.NoError(t, err)

	var updated string
	require.NoError(t, st.QueryRow("SELECT updated_at FROM projects WHERE id = 'p1'").Scan(&updated))
	require.NotEqual(t, created, updated, "trigger should maintain updated_at")
}

func TestForeignKeyCascade(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Write("INSERT INTO projects (id, name) VALUES ('p1', 'proj')")
	require.NoError(t, err)
	_, err = st.Write("INSERT INTO videos (id, project_id, title, filename) VALUES ('v1', 'p1', 'vid', 'f.mp4')")
	require.NoError(t, err)
	_, err = st.Write("INSERT INTO jobs (id, type, project_id) VALUES ('j1', 'trim', 'p1')")
	require.NoError(t, err)

	_, err = st.Write("DELETE FROM projects WHERE id = 'p1'")
	require.NoError(t, err)

	var count int
	require.NoError(t, st.QueryRow("SELECT COUNT(*) FROM videos").Scan(&count))
	require.Zero(t, count, "videos should cascade with project")
	require.NoError(t, st.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&count))
	require.Zero(t, count, "jobs should cascade with project")
}

func TestParentVideoSetNull(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Write("INSERT INTO projects (id, name) VALUES ('p1', 'proj')")
	require.NoError(t, err)
	_, err = st.Write("INSERT INTO videos (id, project_id, title, filename) VALUES ('src', 'p1', 'source', 's.mp4')")
	require.NoError(t, err)
	_, err = st.Write("INSERT INTO videos (id, project_id, title, filename, parent_video_id) VALUES ('clip', 'p1', 'clip', 'c.mp4', 'src')")
	require.NoError(t, err)

	_, err = st.Write("DELETE FROM videos WHERE id = 'src'")
	require.NoError(t, err)

	var parent any
	require.NoError(t, st.QueryRow("SELECT parent_video_id FROM videos WHERE id = 'clip'").Scan(&parent))
	require.Nil(t, parent, "lineage pointer should null on hard delete of source")
}

func TestVacuumAnalyze(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Vacuum())
	require.NoError(t, st.Analyze())
}
