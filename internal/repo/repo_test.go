package repo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/store"
)

func newTestRepos(t *testing.T) *repo.Repos {
	t.Helper()
	r, _ := newTestReposStore(t)
	return r
}

func newTestReposStore(t *testing.T) (*repo.Repos, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return repo.New(st), st
}

func mustProject(t *testing.T, r *repo.Repos) *model.Project {
	t.Helper()
	project, err := r.Projects.Create("Test Project", "", "")
	require.NoError(t, err)
	require.NotNil(t, project)
	return project
}

func mustVideo(t *testing.T, r *repo.Repos, projectID string) *model.Video {
	t.Helper()
	video, err := r.Videos.Create(repo.NewVideo{
		ProjectID: projectID,
		Title:     "Test Video",
		Filename:  "test.mp4",
	})
	require.NoError(t, err)
	require.NotNil(t, video)
	return video
}
