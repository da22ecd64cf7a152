package repo

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/store"
)

// Sentinel errors for job state transitions.
var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobTerminal    = errors.New("job already in terminal state")
	ErrRetryExhausted = errors.New("job has exceeded max retries")
)

// Jobs provides access to job rows. UpdateStatus is the only mutator of
// status, progress and lifecycle timestamps; Retry is the only way a
// terminal job re-enters pending.
type Jobs struct {
	st *store.Store
}

func NewJobs(st *store.Store) *Jobs {
	return &Jobs{st: st}
}

const jobColumns = "id, type, status, priority, project_id, video_id, input_data, output_data, progress, error_message, retry_count, max_retries, created_at, started_at, completed_at, updated_at"

func scanJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	var status string
	var projectID, videoID, inputData, outputData, errorMessage sql.NullString
	var createdAt, startedAt, completedAt, updatedAt sql.NullString
	err := row.Scan(&j.ID, &j.Type, &status, &j.Priority, &projectID, &videoID,
		&inputData, &outputData, &j.Progress, &errorMessage, &j.RetryCount, &j.MaxRetries,
		&createdAt, &startedAt, &completedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = model.Status(status)
	j.ProjectID = projectID.String
	j.VideoID = videoID.String
	j.InputData = unmarshalDict(inputData.String)
	j.OutputData = unmarshalDict(outputData.String)
	j.ErrorMessage = errorMessage.String
	j.CreatedAt = parseTime(createdAt.String)
	j.StartedAt = parseTime(startedAt.String)
	j.CompletedAt = parseTime(completedAt.String)
	j.UpdatedAt = parseTime(updatedAt.String)
	return &j, nil
}

// Create inserts a new pending job. maxRetries <= 0 uses the default of 3.
func (r *Jobs) Create(jobType, projectID, videoID string, input model.Dict, priority, maxRetries int) (*model.Job, error) {
	id := uuid.NewString()
	inputJSON, err := marshalDict(input)
	if err != nil {
		return nil, fmt.Errorf("encode input data: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	_, err = r.st.Write(
		`INSERT INTO jobs (id, type, status, priority, project_id, video_id, input_data, max_retries)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, jobType, string(model.StatusPending), priority,
		nullString(projectID), nullString(videoID), inputJSON, maxRetries,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Created job", "job_id", id, "type", jobType, "priority", priority)
	return r.ByID(id)
}

// ByID returns the job or nil if not found.
func (r *Jobs) ByID(id string) (*model.Job, error) {
	row := r.st.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// Pending returns pending jobs ordered by priority DESC, created_at ASC.
// limit <= 0 returns all of them (the crash-recovery pathway).
func (r *Jobs) Pending(limit int) ([]*model.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE status = ? ORDER BY priority DESC, created_at ASC"
	args := []any{string(model.StatusPending)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryJobs(query, args...)
}

// ByStatus returns jobs with the given status, newest-first.
func (r *Jobs) ByStatus(status model.Status) ([]*model.Job, error) {
	return r.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY created_at DESC",
		string(status),
	)
}

// ByProject returns all of a project's jobs, newest-first.
func (r *Jobs) ByProject(projectID string) ([]*model.Job, error) {
	return r.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE project_id = ? ORDER BY created_at DESC",
		projectID,
	)
}

// List returns every job, newest-first.
func (r *Jobs) List() ([]*model.Job, error) {
	return r.queryJobs("SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC")
}

func (r *Jobs) queryJobs(query string, args ...any) ([]*model.Job, error) {
	rows, err := r.st.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// StatusUpdate carries the optional fields of UpdateStatus. A nil Progress
// leaves progress untouched; a non-nil Output is merged into output_data.
type StatusUpdate struct {
	Progress *int
	Error    string
	Output   model.Dict
}

// terminalStatuses is the WHERE-clause guard keeping terminal rows closed:
// only Retry may reopen a completed, failed or cancelled job.
const terminalStatuses = "('completed', 'failed', 'cancelled')"

// UpdateStatus transitions a job and maintains its lifecycle timestamps:
// started_at is set on the first transition to running, completed_at on the
// first terminal transition. Output dicts merge key-by-key so progress
// messages and handler results coexist. Every transition is refused with
// ErrJobTerminal once the row reached a terminal state — a cancel that
// lands mid-attempt must stick, and only Retry reopens a finished job.
func (r *Jobs) UpdateStatus(id string, status model.Status, upd StatusUpdate) error {
	setClauses := []string{"status = ?"}
	values := []any{string(status)}

	if upd.Progress != nil {
		setClauses = append(setClauses, "progress = ?")
		values = append(values, *upd.Progress)
	}
	if upd.Error != "" {
		setClauses = append(setClauses, "error_message = ?")
		values = append(values, upd.Error)
	}
	if len(upd.Output) > 0 {
		merged, err := r.mergedOutput(id, upd.Output)
		if err != nil {
			return err
		}
		setClauses = append(setClauses, "output_data = ?")
		values = append(values, merged)
	}

	switch status {
	case model.StatusRunning:
		setClauses = append(setClauses, "started_at = COALESCE(started_at, ?)")
		values = append(values, nowUTC())
	case model.StatusCompleted, model.StatusFailed, model.StatusCancelled:
		setClauses = append(setClauses, "completed_at = COALESCE(completed_at, ?)")
		values = append(values, nowUTC())
	}

	values = append(values, id)
	query := "UPDATE jobs SET "
	for i, c := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE id = ? AND status NOT IN " + terminalStatuses

	affected, err := r.st.Write(query, values...)
	if err != nil {
		return err
	}
	if affected == 0 {
		job, lookupErr := r.ByID(id)
		if lookupErr != nil {
			return lookupErr
		}
		if job == nil {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return fmt.Errorf("%w (status: %s): %s", ErrJobTerminal, job.Status, id)
	}
	return nil
}

// UpdateProgress records handler progress without touching status. The
// write is confined to rows still running, so a cancel landing mid-attempt
// is never overwritten. Returns false when the job is no longer running.
func (r *Jobs) UpdateProgress(id string, progress int, output model.Dict) (bool, error) {
	setClauses := []string{"progress = ?"}
	values := []any{progress}

	if len(output) > 0 {
		merged, err := r.mergedOutput(id, output)
		if err != nil {
			return false, err
		}
		setClauses = append(setClauses, "output_data = ?")
		values = append(values, merged)
	}

	values = append(values, id)
	query := "UPDATE jobs SET "
	for i, c := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE id = ? AND status = 'running'"

	affected, err := r.st.Write(query, values...)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *Jobs) mergedOutput(id string, out model.Dict) (any, error) {
	job, err := r.ByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	merged := model.Dict{}
	for k, v := range job.OutputData {
		merged[k] = v
	}
	for k, v := range out {
		merged[k] = v
	}
	return marshalDict(merged)
}

// Cancel flips a non-terminal job to cancelled. Returns ErrJobTerminal when
// the job already finished.
func (r *Jobs) Cancel(id string) error {
	job, err := r.ByID(id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.IsTerminal() {
		return fmt.Errorf("%w (status: %s): %s", ErrJobTerminal, job.Status, id)
	}
	if err := r.UpdateStatus(id, model.StatusCancelled, StatusUpdate{}); err != nil {
		return err
	}
	logger.Info("Cancelled job", "job_id", id)
	return nil
}

// Retry moves a job back to pending, nulling the error, resetting progress
// and incrementing retry_count. Fails with ErrRetryExhausted when the
// budget is used up.
func (r *Jobs) Retry(id string) error {
	job, err := r.ByID(id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.RetryCount >= job.MaxRetries {
		return fmt.Errorf("%w: %s", ErrRetryExhausted, id)
	}
	_, err = r.st.Write(
		`UPDATE jobs SET status = ?, retry_count = retry_count + 1,
			error_message = NULL, progress = 0, completed_at = NULL
		 WHERE id = ?`,
		string(model.StatusPending), id,
	)
	if err == nil {
		logger.Info("Retrying job", "job_id", id, "attempt", job.RetryCount+1)
	}
	return err
}

// RecoverOrphans sweeps rows left in running by a crashed process: back to
// pending with the retry counted when budget remains, otherwise failed.
// Returns the ids requeued as pending.
func (r *Jobs) RecoverOrphans() ([]string, error) {
	orphans, err := r.ByStatus(model.StatusRunning)
	if err != nil {
		return nil, err
	}
	var recovered []string
	for _, job := range orphans {
		if job.RetryCount < job.MaxRetries {
			_, err := r.st.Write(
				`UPDATE jobs SET status = ?, retry_count = retry_count + 1,
					error_message = NULL, progress = 0
				 WHERE id = ?`,
				string(model.StatusPending), job.ID,
			)
			if err != nil {
				return recovered, err
			}
			logger.Warn("Recovered orphaned job", "job_id", job.ID)
			recovered = append(recovered, job.ID)
			continue
		}
		err := r.UpdateStatus(job.ID, model.StatusFailed, StatusUpdate{
			Error: "interrupted by process restart with no retry budget left",
		})
		if err != nil {
			return recovered, err
		}
		logger.Warn("Failed orphaned job with exhausted budget", "job_id", job.ID)
	}
	return recovered, nil
}

// Delete permanently removes a job row.
func (r *Jobs) Delete(id string) error {
	_, err := r.st.Write("DELETE FROM jobs WHERE id = ?", id)
	if err == nil {
		logger.Info("Deleted job", "job_id", id)
	}
	return err
}

// DeleteOld purges terminal jobs whose completed_at is older than the
// retention window.
func (r *Jobs) DeleteOld(days int) (int64, error) {
	count, err := r.st.Write(
		`DELETE FROM jobs
		 WHERE status IN (?, ?, ?)
		 AND datetime(completed_at) < datetime('now', '-' || ? || ' days')`,
		string(model.StatusCompleted), string(model.StatusFailed), string(model.StatusCancelled), days,
	)
	if err == nil && count > 0 {
		logger.Info("Deleted old jobs", "count", count)
	}
	return count, err
}
