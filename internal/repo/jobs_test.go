package repo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

func TestJobCreateDefaults(t *testing.T) {
	r := newTestRepos(t)

	job, err := r.Jobs.Create(model.TypeDownload, "", "", model.Dict{"url": "http://example.com/a.mp4"}, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, model.StatusPending, job.Status)
	require.Equal(t, 5, job.Priority)
	require.Equal(t, 3, job.MaxRetries)
	require.Equal(t, 0, job.RetryCount)
	require.Zero(t, job.Progress)
	require.True(t, job.StartedAt.IsZero())
	require.True(t, job.CompletedAt.IsZero())
	require.Equal(t, "http://example.com/a.mp4", job.InputData["url"])
}

func TestJobInputRoundTrip(t *testing.T) {
	r := newTestRepos(t)

	input := model.Dict{
		"url":     "http://example.com",
		"count":   float64(3),
		"nested":  map[string]any{"a": true, "b": nil},
		"list":    []any{"x", float64(1)},
		"unknown": "preserved",
	}
	job, err := r.Jobs.Create(model.TypeDownload, "", "", input, 0, 0)
	require.NoError(t, err)

	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, input, got.InputData)
}

func TestUpdateStatusTimestamps(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)

	// running sets started_at once
	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusRunning, repo.StatusUpdate{}))
	running, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.False(t, running.StartedAt.IsZero())
	require.True(t, running.CompletedAt.IsZero())

	// terminal sets completed_at
	hundred := 100
	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusCompleted, repo.StatusUpdate{Progress: &hundred}))
	done, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, done.Status)
	require.Equal(t, 100, done.Progress)
	require.False(t, done.StartedAt.IsZero())
	require.False(t, done.CompletedAt.IsZero())
}

func TestCancelFromPendingSetsCompletedAt(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)

	require.NoError(t, r.Jobs.Cancel(job.ID))
	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
	require.True(t, got.StartedAt.IsZero(), "cancel from pending never ran")
	require.False(t, got.CompletedAt.IsZero())
}

func TestCancelTerminalRejected(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusCompleted, repo.StatusUpdate{}))

	err = r.Jobs.Cancel(job.ID)
	require.ErrorIs(t, err, repo.ErrJobTerminal)
}

func TestOutputMerge(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeCaption, "", "", nil, 0, 0)
	require.NoError(t, err)

	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusRunning, repo.StatusUpdate{
		Output: model.Dict{"progress_message": "Transcribing..."},
	}))
	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusCompleted, repo.StatusUpdate{
		Output: model.Dict{"caption_id": "c1", "filename": "out.srt"},
	}))

	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, "c1", got.OutputData["caption_id"])
	require.Equal(t, "out.srt", got.OutputData["filename"])
	require.Equal(t, "Transcribing...", got.OutputData["progress_message"], "earlier keys survive the merge")
}

func TestRetryBudget(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeDownload, "", "", nil, 0, 2)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusFailed, repo.StatusUpdate{Error: "boom"}))
		require.NoError(t, r.Jobs.Retry(job.ID))

		got, err := r.Jobs.ByID(job.ID)
		require.NoError(t, err)
		require.Equal(t, model.StatusPending, got.Status)
		require.Equal(t, i, got.RetryCount)
		require.Empty(t, got.ErrorMessage, "retry nulls the error")
		require.Zero(t, got.Progress, "retry resets progress")
	}

	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusFailed, repo.StatusUpdate{Error: "boom"}))
	err = r.Jobs.Retry(job.ID)
	require.ErrorIs(t, err, repo.ErrRetryExhausted)

	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, got.Status)
	require.LessOrEqual(t, got.RetryCount, got.MaxRetries)
}

func TestCancelSticksAgainstLateWrites(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeSplitFixed, "", "", nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusRunning, repo.StatusUpdate{}))
	require.NoError(t, r.Jobs.Cancel(job.ID))

	// a progress tick from the still-running handler is a no-op
	stillRunning, err := r.Jobs.UpdateProgress(job.ID, 40, model.Dict{"progress_message": "Cutting part 2/5..."})
	require.NoError(t, err)
	require.False(t, stillRunning)

	// late running/completed/failed transitions are refused
	for _, status := range []model.Status{model.StatusRunning, model.StatusCompleted, model.StatusFailed} {
		err := r.Jobs.UpdateStatus(job.ID, status, repo.StatusUpdate{})
		require.ErrorIs(t, err, repo.ErrJobTerminal, "status=%s", status)
	}

	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
	require.Nil(t, got.OutputData)
}

func TestUpdateProgressOnlyTouchesRunningRows(t *testing.T) {
	r := newTestRepos(t)
	job, err := r.Jobs.Create(model.TypeCaption, "", "", nil, 0, 0)
	require.NoError(t, err)

	// pending rows are not running
	stillRunning, err := r.Jobs.UpdateProgress(job.ID, 10, nil)
	require.NoError(t, err)
	require.False(t, stillRunning)

	require.NoError(t, r.Jobs.UpdateStatus(job.ID, model.StatusRunning, repo.StatusUpdate{}))
	stillRunning, err = r.Jobs.UpdateProgress(job.ID, 55, model.Dict{"progress_message": "Transcribing..."})
	require.NoError(t, err)
	require.True(t, stillRunning)

	got, err := r.Jobs.ByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, got.Status)
	require.Equal(t, 55, got.Progress)
	require.Equal(t, "Transcribing...", got.OutputData["progress_message"])
}

func TestPendingOrdering(t *testing.T) {
	r := newTestRepos(t)

	a, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // created_at has second precision
	b, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 5, 0)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	c, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)

	pending, err := r.Jobs.Pending(0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, b.ID, pending[0].ID, "highest priority first")
	require.Equal(t, a.ID, pending[1].ID, "FIFO within priority tier")
	require.Equal(t, c.ID, pending[2].ID)
}

func TestRecoverOrphans(t *testing.T) {
	r := newTestRepos(t)

	withBudget, err := r.Jobs.Create(model.TypeCaption, "", "", nil, 0, 3)
	require.NoError(t, err)
	require.NoError(t, r.Jobs.UpdateStatus(withBudget.ID, model.StatusRunning, repo.StatusUpdate{}))

	exhausted, err := r.Jobs.Create(model.TypeCaption, "", "", nil, 0, 1)
	require.NoError(t, err)
	require.NoError(t, r.Jobs.UpdateStatus(exhausted.ID, model.StatusRunning, repo.StatusUpdate{}))
	// burn the budget
	require.NoError(t, r.Jobs.UpdateStatus(exhausted.ID, model.StatusFailed, repo.StatusUpdate{Error: "x"}))
	require.NoError(t, r.Jobs.Retry(exhausted.ID))
	require.NoError(t, r.Jobs.UpdateStatus(exhausted.ID, model.StatusRunning, repo.StatusUpdate{}))

	recovered, err := r.Jobs.RecoverOrphans()
	require.NoError(t, err)
	require.Equal(t, []string{withBudget.ID}, recovered)

	first, err := r.Jobs.ByID(withBudget.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, first.Status)
	require.Equal(t, 1, first.RetryCount)

	second, err := r.Jobs.ByID(exhausted.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, second.Status)
	require.NotEmpty(t, second.ErrorMessage)
}

func TestDeleteOldJobs(t *testing.T) {
	r, st := newTestReposStore(t)

	old, err := r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.Jobs.UpdateStatus(old.ID, model.StatusCompleted, repo.StatusUpdate{}))
	_, err = r.Jobs.Create(model.TypeTrim, "", "", nil, 0, 0)
	require.NoError(t, err)

	// Age the completion timestamp past the retention window.
	_, err = st.Write("UPDATE jobs SET completed_at = '2001-01-01T00:00:00Z' WHERE id = ?", old.ID)
	require.NoError(t, err)

	count, err := r.Jobs.DeleteOld(30)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	gone, err := r.Jobs.ByID(old.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}
