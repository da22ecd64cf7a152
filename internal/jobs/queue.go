// Package jobs implements the durable job queue and its worker pool. The
// in-memory priority heap fronts the pending set in the store; the store is
// the source of truth and the heap is rebuilt from it on startup.
package jobs

import (
	"container/heap"
	"sync"
	"time"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/metrics"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// item is a queue entry. Ordering is priority DESC, then created_at ASC,
// then submission sequence for a stable FIFO tiebreak.
type item struct {
	jobID     string
	priority  int
	createdAt time.Time
	seq       int64
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	if !h[i].createdAt.Equal(h[j].createdAt) {
		return h[i].createdAt.Before(h[j].createdAt)
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Event is a queue notification for SSE subscribers.
type Event struct {
	Type string     `json:"type"` // "submitted", "started", "progress", "completed", "failed", "cancelled", "retrying"
	Job  *model.Job `json:"job,omitempty"`
}

// Queue serializes admission of pending jobs and hands them to workers.
type Queue struct {
	mu      sync.Mutex
	items   itemHeap
	seq     int64
	started bool

	jobs *repo.Jobs

	subsMu      sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewQueue creates an empty queue over the job repository.
func NewQueue(jobs *repo.Jobs) *Queue {
	return &Queue{
		jobs:        jobs,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Start rehydrates the queue from the store: orphaned running rows are
// recovered first, then every pending row is enqueued exactly once. This is
// the crash-recovery pathway.
func (q *Queue) Start() error {
	recovered, err := q.jobs.RecoverOrphans()
	if err != nil {
		return err
	}
	if len(recovered) > 0 {
		logger.Info("Recovered orphaned jobs", "count", len(recovered))
	}

	pending, err := q.jobs.Pending(0)
	if err != nil {
		return err
	}

	q.mu.Lock()
	for _, job := range pending {
		q.pushLocked(job.ID, job.Priority, job.CreatedAt)
	}
	q.started = true
	depth := len(q.items)
	q.mu.Unlock()

	metrics.SetQueueDepth(depth)
	if len(pending) > 0 {
		logger.Info("Loaded pending jobs", "count", len(pending))
	}
	return nil
}

// Submit creates the pending row and enqueues it. maxRetries <= 0 uses the
// default budget.
func (q *Queue) Submit(jobType, projectID, videoID string, input model.Dict, priority, maxRetries int) (string, error) {
	job, err := q.jobs.Create(jobType, projectID, videoID, input, priority, maxRetries)
	if err != nil {
		return "", err
	}

	q.Push(job.ID, job.Priority, job.CreatedAt)
	metrics.JobSubmitted(jobType)
	q.Broadcast(Event{Type: "submitted", Job: job})
	return job.ID, nil
}

// Push enqueues a job id. Used by Submit, the worker's retry pathway and
// the retry API; startup rehydration pushes under the lock directly.
func (q *Queue) Push(jobID string, priority int, createdAt time.Time) {
	q.mu.Lock()
	q.pushLocked(jobID, priority, createdAt)
	depth := len(q.items)
	q.mu.Unlock()
	metrics.SetQueueDepth(depth)
}

func (q *Queue) pushLocked(jobID string, priority int, createdAt time.Time) {
	q.seq++
	heap.Push(&q.items, &item{jobID: jobID, priority: priority, createdAt: createdAt, seq: q.seq})
}

// Next pops the highest-priority job id, or ok=false when the queue is
// empty. Cancelled ids are still handed out; the worker drops them after
// reloading the row.
func (q *Queue) Next() (jobID string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	it := heap.Pop(&q.items).(*item)
	metrics.SetQueueDepth(len(q.items))
	return it.jobID, true
}

// Depth returns the number of queued job ids.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Started reports whether Start has run.
func (q *Queue) Started() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started
}

// Cancel marks the job row cancelled. The id is not removed from the heap;
// workers check status on pop.
func (q *Queue) Cancel(jobID string) error {
	if err := q.jobs.Cancel(jobID); err != nil {
		return err
	}
	job, err := q.jobs.ByID(jobID)
	if err == nil && job != nil {
		q.Broadcast(Event{Type: "cancelled", Job: job})
	}
	return nil
}

// Subscribe returns a channel receiving queue events. Slow subscribers drop
// events rather than blocking the queue.
func (q *Queue) Subscribe() chan Event {
	ch := make(chan Event, 100)
	q.subsMu.Lock()
	q.subscribers[ch] = struct{}{}
	q.subsMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription.
func (q *Queue) Unsubscribe(ch chan Event) {
	q.subsMu.Lock()
	delete(q.subscribers, ch)
	q.subsMu.Unlock()
	close(ch)
}

// Broadcast sends an event to all subscribers without blocking.
func (q *Queue) Broadcast(event Event) {
	q.subsMu.RLock()
	defer q.subsMu.RUnlock()
	for ch := range q.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
