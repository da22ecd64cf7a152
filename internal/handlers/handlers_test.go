package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/storage"
	"github.com/verticut/verticut/internal/store"
)

func newTestDeps(t *testing.T) *Deps {
	t.Helper()

	root := t.TempDir()
	st, err := store.Open(filepath.Join(root, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dirs := storage.Dirs{
		Uploads:   filepath.Join(root, "uploads"),
		Processed: filepath.Join(root, "processed"),
		Captions:  filepath.Join(root, "captions"),
	}
	require.NoError(t, dirs.Ensure())

	return &Deps{
		Repos:    repo.New(st),
		Resolver: storage.NewResolver(dirs),
	}
}

func noProgress(int, string) {}

func writeArtifact(t *testing.T, d *Deps, name string) {
	t.Helper()
	path := filepath.Join(d.Resolver.Dirs().Uploads, name)
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0644))
}

func requireKind(t *testing.T, err error, kind jobs.Kind) {
	t.Helper()
	var he *jobs.Error
	require.ErrorAs(t, err, &he)
	require.Equal(t, kind, he.Kind)
}

func TestDownloadRejectsMissingInput(t *testing.T) {
	d := newTestDeps(t)

	_, err := d.handleDownload(context.Background(), &model.Job{ID: "j1", InputData: model.Dict{}}, noProgress)
	requireKind(t, err, jobs.KindValidation)

	_, err = d.handleDownload(context.Background(), &model.Job{
		ID:        "j2",
		ProjectID: "p1",
		InputData: model.Dict{"url": "not a url"},
	}, noProgress)
	requireKind(t, err, jobs.KindValidation)
}

func TestTrimRejectsBadRange(t *testing.T) {
	d := newTestDeps(t)

	_, err := d.handleTrim(context.Background(), &model.Job{
		ID:        "j1",
		VideoID:   "v1",
		InputData: model.Dict{"start_time": 5.0, "end_time": 5.0},
	}, noProgress)
	requireKind(t, err, jobs.KindValidation)

	_, err = d.handleTrim(context.Background(), &model.Job{
		ID:        "j2",
		VideoID:   "v1",
		InputData: model.Dict{"start_time": 5.0},
	}, noProgress)
	requireKind(t, err, jobs.KindValidation)
}

func TestResolveVideoReportsMissing(t *testing.T) {
	d := newTestDeps(t)

	// no such row
	_, _, err := d.resolveVideo("ghost")
	requireKind(t, err, jobs.KindNotFound)

	// row exists but bytes are gone: reportable, not a deletion
	project, err := d.Repos.Projects.Create("P", "", "")
	require.NoError(t, err)
	video, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID: project.ID,
		Title:     "V",
		Filename:  "missing.mp4",
	})
	require.NoError(t, err)

	_, _, err = d.resolveVideo(video.ID)
	requireKind(t, err, jobs.KindNotFound)

	still, err := d.Repos.Videos.ByID(video.ID)
	require.NoError(t, err)
	require.NotNil(t, still, "unresolvable bytes never auto-delete the row")
}

func TestBurnRequiresCaption(t *testing.T) {
	d := newTestDeps(t)
	project, err := d.Repos.Projects.Create("P", "", "")
	require.NoError(t, err)
	video, err := d.Repos.Videos.Create(repo.NewVideo{
		ProjectID: project.ID,
		Title:     "V",
		Filename:  "v.mp4",
	})
	require.NoError(t, err)
	writeArtifact(t, d, "v.mp4")

	_, err = d.handleBurn(context.Background(), &model.Job{
		ID:        "j1",
		VideoID:   video.ID,
		InputData: model.Dict{},
	}, noProgress)
	requireKind(t, err, jobs.KindNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "My_Video-1.mp4", sanitizeFilename("My Video-1.mp4"))
	require.Equal(t, "clip", sanitizeFilename("clip///"))
	require.NotEmpty(t, sanitizeFilename("///"))
}

func TestDictHelpers(t *testing.T) {
	d := model.Dict{
		"s":    "text",
		"f":    float64(2.5),
		"fs":   "3.5",
		"b":    true,
		"nest": map[string]any{"k": "v"},
	}
	require.Equal(t, "text", dictStr(d, "s"))
	require.Empty(t, dictStr(d, "missing"))
	require.Equal(t, 2.5, dictFloat(d, "f", 0))
	require.Equal(t, 3.5, dictFloat(d, "fs", 0))
	require.Equal(t, 9.0, dictFloat(d, "missing", 9))
	require.True(t, dictBool(d, "b"))
	require.False(t, dictBool(d, "missing"))
	require.Equal(t, model.Dict{"k": "v"}, dictDict(d, "nest"))
	require.Nil(t, dictDict(d, "missing"))
}
