package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/metrics"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// pollInterval bounds how long a stop signal waits on an idle worker.
const pollInterval = 500 * time.Millisecond

// ProgressFunc reports handler progress for a running job. Percent is
// clamped to [0, 100]; message lands in output_data.progress_message.
type ProgressFunc func(percent int, message string)

// HandlerFunc executes one job. The returned dict is merged into the job's
// output_data on success. Errors are classified by the worker: tagged
// *Error values map to retry policy, anything else is treated as retryable.
type HandlerFunc func(ctx context.Context, job *model.Job, progress ProgressFunc) (model.Dict, error)

// Worker is a long-lived goroutine pulling jobs from the queue.
type Worker struct {
	id   int
	pool *Pool

	currentMu sync.Mutex
	currentID string
}

// WorkerStatus is one worker's entry in queue stats.
type WorkerStatus struct {
	ID           int    `json:"worker_id"`
	CurrentJobID string `json:"current_job_id,omitempty"`
}

// Stats summarizes the queue and pool for the stats endpoint.
type Stats struct {
	QueueDepth int            `json:"queue_size"`
	NumWorkers int            `json:"num_workers"`
	Started    bool           `json:"started"`
	Workers    []WorkerStatus `json:"workers"`
}

// Pool runs a fixed set of workers dispatching jobs by type to registered
// handlers and translating outcomes into store status transitions.
type Pool struct {
	queue    *Queue
	jobs     *repo.Jobs
	handlers map[string]HandlerFunc
	workers  []*Worker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startMu sync.Mutex
	started bool

	// progress rate limiting, one timestamp per running job
	progressMu   sync.Mutex
	lastProgress map[string]time.Time
}

// NewPool creates a pool of numWorkers workers over the queue.
func NewPool(queue *Queue, jobs *repo.Jobs, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:        queue,
		jobs:         jobs,
		handlers:     make(map[string]HandlerFunc),
		ctx:          ctx,
		cancel:       cancel,
		lastProgress: make(map[string]time.Time),
	}
	for i := 0; i < numWorkers; i++ {
		p.workers = append(p.workers, &Worker{id: i + 1, pool: p})
	}
	return p
}

// Register binds a handler to a job type. Must be called before Start.
func (p *Pool) Register(jobType string, handler HandlerFunc) {
	p.handlers[jobType] = handler
	logger.Info("Registered job handler", "type", jobType)
}

// Start launches the workers.
func (p *Pool) Start() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		logger.Warn("Worker pool already started")
		return
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go w.run()
	}
	p.started = true
	logger.Info("Worker pool started", "workers", len(p.workers))
}

// Stop signals the workers and optionally waits for them to drain their
// current jobs.
func (p *Pool) Stop(wait bool) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if !p.started {
		return
	}
	p.cancel()
	if wait {
		p.wg.Wait()
	}
	p.started = false
	logger.Info("Worker pool stopped")
}

// Stats returns queue depth plus per-worker state.
func (p *Pool) Stats() Stats {
	stats := Stats{
		QueueDepth: p.queue.Depth(),
		NumWorkers: len(p.workers),
		Started:    p.queue.Started(),
	}
	for _, w := range p.workers {
		w.currentMu.Lock()
		stats.Workers = append(stats.Workers, WorkerStatus{ID: w.id, CurrentJobID: w.currentID})
		w.currentMu.Unlock()
	}
	return stats
}

// run is the main worker loop: poll the queue with a short sleep so the
// stop signal is observed within pollInterval.
func (w *Worker) run() {
	defer w.pool.wg.Done()
	logger.Info("Worker started", "worker_id", w.id)

	for {
		select {
		case <-w.pool.ctx.Done():
			logger.Info("Worker stopped", "worker_id", w.id)
			return
		default:
		}

		jobID, ok := w.pool.queue.Next()
		if !ok {
			select {
			case <-w.pool.ctx.Done():
				logger.Info("Worker stopped", "worker_id", w.id)
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		w.processJob(jobID)
	}
}

func (w *Worker) setCurrent(id string) {
	w.currentMu.Lock()
	w.currentID = id
	w.currentMu.Unlock()
	metrics.SetWorkersBusy(w.pool.busyCount())
}

func (p *Pool) busyCount() int {
	n := 0
	for _, w := range p.workers {
		w.currentMu.Lock()
		if w.currentID != "" {
			n++
		}
		w.currentMu.Unlock()
	}
	return n
}

// processJob runs one job end to end: reload, transition to running,
// dispatch, record the outcome, apply retry policy.
func (w *Worker) processJob(jobID string) {
	w.setCurrent(jobID)
	defer w.setCurrent("")
	defer w.pool.clearProgress(jobID)

	job, err := w.pool.jobs.ByID(jobID)
	if err != nil {
		logger.Error("Failed to load job", "worker_id", w.id, "job_id", jobID, "error", err)
		return
	}
	if job == nil {
		logger.Error("Job not found", "worker_id", w.id, "job_id", jobID)
		return
	}
	if job.Status == model.StatusCancelled {
		logger.Info("Dropping cancelled job", "worker_id", w.id, "job_id", jobID)
		return
	}

	zero := 0
	if err := w.pool.jobs.UpdateStatus(jobID, model.StatusRunning, repo.StatusUpdate{Progress: &zero}); err != nil {
		if errors.Is(err, repo.ErrJobTerminal) {
			// Cancelled in the window between the reload and this write.
			logger.Info("Dropping cancelled job", "worker_id", w.id, "job_id", jobID)
			return
		}
		logger.Error("Failed to mark job running", "job_id", jobID, "error", err)
		return
	}
	w.pool.queue.Broadcast(Event{Type: "started", Job: job})
	logger.Info("Processing job", "worker_id", w.id, "job_id", jobID, "type", job.Type)

	handler, ok := w.pool.handlers[job.Type]
	if !ok {
		w.failJob(job, Fatalf("no handler registered for job type: %s", job.Type))
		return
	}

	start := time.Now()
	result, err := w.invoke(handler, job)
	if err != nil {
		if err == ErrCancelled {
			// The handler observed the cancel flag; the row is already
			// cancelled, nothing to record.
			logger.Info("Job cancelled mid-run", "job_id", jobID)
			return
		}
		w.failJob(job, err)
		return
	}

	hundred := 100
	if err := w.pool.jobs.UpdateStatus(jobID, model.StatusCompleted, repo.StatusUpdate{
		Progress: &hundred,
		Output:   result,
	}); err != nil {
		if errors.Is(err, repo.ErrJobTerminal) {
			// Cancelled while the handler ran to completion. The cancel
			// sticks; artifacts the handler already registered remain.
			logger.Info("Job finished after cancel, keeping cancelled state", "job_id", jobID)
			return
		}
		logger.Error("Failed to record completion", "job_id", jobID, "error", err)
		return
	}
	metrics.JobCompleted(job.Type)
	logger.Info("Job completed", "worker_id", w.id, "job_id", jobID,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if final, err := w.pool.jobs.ByID(jobID); err == nil && final != nil {
		w.pool.queue.Broadcast(Event{Type: "completed", Job: final})
	}
}

// invoke dispatches to the handler with panic containment: a panicking
// handler fails its job, not the worker.
func (w *Worker) invoke(handler HandlerFunc, job *model.Job) (result model.Dict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Kind:   KindFatal,
				Msg:    fmt.Sprintf("handler panic: %v", r),
				Stderr: string(debug.Stack()),
			}
		}
	}()
	return handler(w.pool.ctx, job, w.pool.progressFunc(job.ID))
}

// failJob records the failure and, when the error is retryable and budget
// remains, resets the job to pending and pushes it straight back onto the
// queue so the retry runs without waiting for a restart.
func (w *Worker) failJob(job *model.Job, jobErr error) {
	if w.pool.ctx.Err() != nil {
		// Shutdown interrupted the handler. Leave the row running so the
		// next startup's orphan recovery requeues it.
		logger.Info("Job interrupted by shutdown", "job_id", job.ID)
		return
	}

	logger.Error("Job failed", "worker_id", w.id, "job_id", job.ID, "error", jobErr)

	if err := w.pool.jobs.UpdateStatus(job.ID, model.StatusFailed, repo.StatusUpdate{
		Error: jobErr.Error(),
	}); err != nil {
		if errors.Is(err, repo.ErrJobTerminal) {
			// Cancelled while the handler was failing; the cancel sticks
			// and no retry is scheduled.
			logger.Info("Job failed after cancel, keeping cancelled state", "job_id", job.ID)
			return
		}
		logger.Error("Failed to record failure", "job_id", job.ID, "error", err)
		return
	}
	metrics.JobFailed(job.Type)

	fresh, err := w.pool.jobs.ByID(job.ID)
	if err != nil || fresh == nil {
		return
	}

	if retryable(jobErr) && fresh.RetryCount < fresh.MaxRetries {
		if err := w.pool.jobs.Retry(job.ID); err != nil {
			logger.Error("Failed to reset job for retry", "job_id", job.ID, "error", err)
			w.pool.queue.Broadcast(Event{Type: "failed", Job: fresh})
			return
		}
		w.pool.queue.Push(job.ID, fresh.Priority, fresh.CreatedAt)
		metrics.JobRetried(job.Type)
		w.pool.queue.Broadcast(Event{Type: "retrying", Job: fresh})
		return
	}

	w.pool.queue.Broadcast(Event{Type: "failed", Job: fresh})
}

func (p *Pool) clearProgress(jobID string) {
	p.progressMu.Lock()
	delete(p.lastProgress, jobID)
	p.progressMu.Unlock()
}

// progressFunc builds the per-job progress reporter. Updates are rate
// limited to one store write per second per job; best-effort, failures are
// logged and swallowed.
func (p *Pool) progressFunc(jobID string) ProgressFunc {
	return func(percent int, message string) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}

		now := time.Now()
		p.progressMu.Lock()
		if last, ok := p.lastProgress[jobID]; ok && now.Sub(last) < time.Second {
			p.progressMu.Unlock()
			return
		}
		p.lastProgress[jobID] = now
		p.progressMu.Unlock()

		var output model.Dict
		if message != "" {
			output = model.Dict{"progress_message": message}
		}
		stillRunning, err := p.jobs.UpdateProgress(jobID, percent, output)
		if err != nil {
			logger.Error("Failed to update job progress", "job_id", jobID, "error", err)
			return
		}
		if !stillRunning {
			// Cancelled (or otherwise finished) mid-attempt; the handler's
			// next cancel checkpoint will observe it.
			return
		}
		if job, err := p.jobs.ByID(jobID); err == nil && job != nil {
			p.queue.Broadcast(Event{Type: "progress", Job: job})
		}
	}
}
