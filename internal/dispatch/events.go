// Package dispatch runs the task pipeline: analyze, confirm, assemble,
// budget, launch, and synthesize, one active task at a time.
package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/crew/internal/logging"
)

// EventType represents the type of dispatch event.
type EventType string

const (
	// EventTaskQueued indicates a task entered the queue.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStateChanged indicates a task moved between lifecycle states.
	EventTaskStateChanged EventType = "task_state_changed"
	// EventConfirmationNeeded indicates a low-confidence match awaits the operator.
	EventConfirmationNeeded EventType = "confirmation_needed"
	// EventCostEstimated carries the approved cost estimate for a task.
	EventCostEstimated EventType = "cost_estimated"
	// EventSpecialistStarted indicates a specialist invocation began.
	EventSpecialistStarted EventType = "specialist_started"
	// EventSpecialistFinished indicates a specialist settled, by any outcome.
	EventSpecialistFinished EventType = "specialist_finished"
	// EventCheckpointActivity indicates a durable write in the task's result area.
	EventCheckpointActivity EventType = "checkpoint_activity"
	// EventTaskStuck indicates the health monitor force-failed a task.
	EventTaskStuck EventType = "task_stuck"
	// EventTaskDone indicates a terminal DispatchResult was written.
	EventTaskDone EventType = "task_done"
)

// Event is one entry in the lifecycle event stream.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// TaskID is the ID of the related task.
	TaskID string `json:"taskId"`
	// State is the task's lifecycle state, for state-change events.
	State string `json:"state,omitempty"`
	// AgentName identifies the specialist, for specialist events.
	AgentName string `json:"agentName,omitempty"`
	// Message provides additional context.
	Message string `json:"message,omitempty"`
	// CostUSD is the estimated cost, for cost events.
	CostUSD float64 `json:"costUsd,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter fans events out to a single buffered subscriber channel. Emission
// never blocks the pipeline: a full channel drops the event after a short
// grace period.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	log          *logging.Logger
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		events: make(chan Event, bufferSize),
		log:    logging.Component("events"),
	}
}

// Emit sends an event to the stream. If the buffer is full it waits briefly
// for the subscriber to drain, then drops the event.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.log.Warnf("event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event stream.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the event stream.
func (e *Emitter) Close() {
	close(e.events)
}
