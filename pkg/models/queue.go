package models

// QueueState is the persisted snapshot of the serial task queue.
// Active is non-nil iff a task is currently permitted to progress.
type QueueState struct {
	// Active is the single task allowed to progress, if any.
	Active *TaskRequest `json:"active"`
	// Pending are tasks waiting in FIFO order.
	Pending []TaskRequest `json:"pending"`
}
