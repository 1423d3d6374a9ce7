package models

import "time"

// TaskState represents the lifecycle state of a dispatched task.
type TaskState string

const (
	// TaskStateQueued indicates the task is waiting in the queue.
	TaskStateQueued TaskState = "queued"
	// TaskStateAnalyzing indicates the task is being decomposed.
	TaskStateAnalyzing TaskState = "analyzing"
	// TaskStateConfirming indicates the decomposition awaits external confirmation.
	TaskStateConfirming TaskState = "confirming"
	// TaskStateDispatching indicates the team is being assembled and launched.
	TaskStateDispatching TaskState = "dispatching"
	// TaskStateInProgress indicates specialists are executing.
	TaskStateInProgress TaskState = "in_progress"
	// TaskStateReview indicates results are being synthesized.
	TaskStateReview TaskState = "review"
	// TaskStateDone indicates the task reached a successful terminal state.
	TaskStateDone TaskState = "done"
	// TaskStateFailed indicates the task reached a failed terminal state.
	TaskStateFailed TaskState = "failed"
	// TaskStateCancelled indicates the task was cancelled before execution.
	TaskStateCancelled TaskState = "cancelled"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateQueued, TaskStateAnalyzing, TaskStateConfirming,
		TaskStateDispatching, TaskStateInProgress, TaskStateReview,
		TaskStateDone, TaskStateFailed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from the state.
func (s TaskState) Terminal() bool {
	return s == TaskStateDone || s == TaskStateFailed || s == TaskStateCancelled
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Failure is reachable from analyzing, dispatching, and in_progress;
// cancellation is reachable from queued and confirming.
func (s TaskState) CanTransition(next TaskState) bool {
	switch s {
	case TaskStateQueued:
		return next == TaskStateAnalyzing || next == TaskStateCancelled
	case TaskStateAnalyzing:
		return next == TaskStateConfirming || next == TaskStateFailed
	case TaskStateConfirming:
		return next == TaskStateDispatching || next == TaskStateCancelled
	case TaskStateDispatching:
		return next == TaskStateInProgress || next == TaskStateFailed
	case TaskStateInProgress:
		return next == TaskStateReview || next == TaskStateFailed
	case TaskStateReview:
		return next == TaskStateDone
	default:
		return false
	}
}

// TaskRequest is a free-text business task submitted by an operator.
type TaskRequest struct {
	// ID is the unique identifier for this request.
	ID string `json:"id"`
	// Text is the operator's free-text description of the work.
	Text string `json:"text"`
	// CreatedAt is when the request was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// Complexity is the analyzer's estimate of how demanding a task is.
type Complexity string

const (
	// ComplexityLow is simple, single-domain work.
	ComplexityLow Complexity = "low"
	// ComplexityMedium is multi-step work within a few domains.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh is broad or ambiguous work needing a full team.
	ComplexityHigh Complexity = "high"
)

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	return c == ComplexityLow || c == ComplexityMedium || c == ComplexityHigh
}

// Subtask is one unit of the analyzer's decomposition.
type Subtask struct {
	// Description says what this piece of the task is.
	Description string `json:"description"`
	// Domain is the business area the subtask belongs to (e.g. "marketing").
	Domain string `json:"domain"`
}

// TaskDecomposition is the structured breakdown of a task request.
// It is produced once by the analyzer and may be edited before confirmation.
type TaskDecomposition struct {
	// Subtasks are the individual pieces of work.
	Subtasks []Subtask `json:"subtasks"`
	// Domains lists the distinct business areas involved.
	Domains []string `json:"domains"`
	// EstimatedComplexity drives team sizing and cost estimation.
	EstimatedComplexity Complexity `json:"estimated_complexity"`
}
