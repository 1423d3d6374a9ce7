// Package queue serializes task execution: at most one task is active, all
// others wait in FIFO order. State is persisted after every mutation so a
// restart can recover the queue.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShayCichocki/crew/internal/logging"
	"github.com/ShayCichocki/crew/pkg/models"
)

// ActivationFunc is invoked synchronously whenever a task becomes active,
// before the mutating call returns. It must not call back into the Queue.
type ActivationFunc func(models.TaskRequest)

// Queue is a persisted single-active FIFO task queue.
type Queue struct {
	mu         sync.Mutex
	state      models.QueueState
	path       string
	onActivate ActivationFunc
	log        *logging.Logger
}

// New creates a queue persisted at path. If a snapshot exists it is loaded;
// a previously-active task is returned to the head of the pending list so the
// caller decides when to restart it.
func New(path string, onActivate ActivationFunc) (*Queue, error) {
	q := &Queue{
		path:       path,
		onActivate: onActivate,
		log:        logging.Component("queue"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read queue snapshot: %w", err)
		}
		return q, nil
	}

	if err := json.Unmarshal(data, &q.state); err != nil {
		return nil, fmt.Errorf("parse queue snapshot: %w", err)
	}

	if q.state.Active != nil {
		q.log.Infof("recovering interrupted task %s to head of queue", q.state.Active.ID)
		q.state.Pending = append([]models.TaskRequest{*q.state.Active}, q.state.Pending...)
		q.state.Active = nil
		if err := q.persistLocked(); err != nil {
			return nil, err
		}
	}

	return q, nil
}

// Enqueue adds a task. If nothing is active the task activates immediately
// and position 0 is returned; otherwise the task waits and its 1-based
// pending position is returned. Enqueuing never changes which task is active.
func (q *Queue) Enqueue(req models.TaskRequest) (int, error) {
	q.mu.Lock()

	// Recovered snapshots can hold pending tasks with nothing active; those
	// keep priority over a new submission.
	if q.state.Active == nil && len(q.state.Pending) == 0 {
		q.state.Active = &req
		if err := q.persistLocked(); err != nil {
			q.state.Active = nil
			q.mu.Unlock()
			return 0, err
		}
		q.mu.Unlock()
		if q.onActivate != nil {
			q.onActivate(req)
		}
		return 0, nil
	}

	q.state.Pending = append(q.state.Pending, req)
	pos := len(q.state.Pending)
	if err := q.persistLocked(); err != nil {
		q.state.Pending = q.state.Pending[:len(q.state.Pending)-1]
		q.mu.Unlock()
		return 0, err
	}
	q.mu.Unlock()
	return pos, nil
}

// Dequeue activates the earliest pending task if nothing is active. It
// returns the activated task, or nil when the queue is empty or a task is
// already active.
func (q *Queue) Dequeue() (*models.TaskRequest, error) {
	q.mu.Lock()

	if q.state.Active != nil || len(q.state.Pending) == 0 {
		q.mu.Unlock()
		return nil, nil
	}

	next := q.state.Pending[0]
	q.state.Pending = q.state.Pending[1:]
	q.state.Active = &next
	if err := q.persistLocked(); err != nil {
		q.mu.Unlock()
		return nil, err
	}
	q.mu.Unlock()

	if q.onActivate != nil {
		q.onActivate(next)
	}
	return &next, nil
}

// CompleteActive clears the active slot if it holds taskID. It does not
// activate the next task; callers follow with Dequeue.
func (q *Queue) CompleteActive(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Active == nil || q.state.Active.ID != taskID {
		return nil
	}
	q.state.Active = nil
	return q.persistLocked()
}

// Cancel removes a task from the queue, active or pending. It reports
// whether the task was found.
func (q *Queue) Cancel(taskID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Active != nil && q.state.Active.ID == taskID {
		q.state.Active = nil
		return true, q.persistLocked()
	}

	for i, req := range q.state.Pending {
		if req.ID == taskID {
			q.state.Pending = append(q.state.Pending[:i], q.state.Pending[i+1:]...)
			return true, q.persistLocked()
		}
	}
	return false, nil
}

// CancelPending removes a pending task, never touching the active slot.
// A task that has already activated is reported as not found.
func (q *Queue) CancelPending(taskID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, req := range q.state.Pending {
		if req.ID == taskID {
			q.state.Pending = append(q.state.Pending[:i], q.state.Pending[i+1:]...)
			return true, q.persistLocked()
		}
	}
	return false, nil
}

// Position returns 0 for the active task, the 1-based pending position
// otherwise, or -1 if the task is not queued.
func (q *Queue) Position(taskID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Active != nil && q.state.Active.ID == taskID {
		return 0
	}
	for i, req := range q.state.Pending {
		if req.ID == taskID {
			return i + 1
		}
	}
	return -1
}

// Active returns a copy of the active task, or nil.
func (q *Queue) Active() *models.TaskRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Active == nil {
		return nil
	}
	active := *q.state.Active
	return &active
}

// Snapshot returns a copy of the current queue state.
func (q *Queue) Snapshot() models.QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := models.QueueState{Pending: make([]models.TaskRequest, len(q.state.Pending))}
	copy(snap.Pending, q.state.Pending)
	if q.state.Active != nil {
		active := *q.state.Active
		snap.Active = &active
	}
	return snap
}

// persistLocked writes the snapshot atomically. Callers hold q.mu.
func (q *Queue) persistLocked() error {
	data, err := json.MarshalIndent(q.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue state: %w", err)
	}

	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queue.tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write queue state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename queue state: %w", err)
	}
	return nil
}
