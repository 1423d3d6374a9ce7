package models

// SubtaskStatus represents the state of a single specialist's work.
type SubtaskStatus string

const (
	// SubtaskRunning indicates the specialist invocation is in flight.
	SubtaskRunning SubtaskStatus = "running"
	// SubtaskCompleted indicates the specialist finished successfully.
	SubtaskCompleted SubtaskStatus = "completed"
	// SubtaskFailed indicates the specialist failed or timed out.
	SubtaskFailed SubtaskStatus = "failed"
)

// SubtaskResult is the outcome of one specialist invocation. It is written
// to the checkpoint store on every status transition.
type SubtaskResult struct {
	// ID identifies the subtask slot within the task.
	ID string `json:"id"`
	// SkillPlugin is the plugin the specialist executed under.
	SkillPlugin string `json:"skill_plugin"`
	// SkillName is the skill the specialist executed.
	SkillName string `json:"skill_name"`
	// AgentName is the display name of the specialist agent.
	AgentName string `json:"agent_name"`
	// Status is the current state of the subtask.
	Status SubtaskStatus `json:"status"`
	// Result holds the specialist's output text, if any. Partial output
	// is preserved even when Status is failed.
	Result string `json:"result,omitempty"`
	// Error holds the failure reason when Status is failed.
	Error string `json:"error,omitempty"`
}

// DispatchStatus is the terminal status of a whole task dispatch.
type DispatchStatus string

const (
	// DispatchCompleted means every specialist completed.
	DispatchCompleted DispatchStatus = "completed"
	// DispatchFailed means at least one specialist failed, the budget
	// gate rejected the task, or the health monitor declared it stuck.
	DispatchFailed DispatchStatus = "failed"
)

// DispatchResult is the terminal outcome of a task. It is written exactly
// once; Status is completed iff every SubtaskResult completed. A failed
// result still carries every specialist's individual outcome.
type DispatchResult struct {
	// TaskID is the task this result belongs to.
	TaskID string `json:"task_id"`
	// Status is the terminal status.
	Status DispatchStatus `json:"status"`
	// Reason is a human-readable explanation for failed results
	// (budget rejection, stuck detection, specialist errors).
	Reason string `json:"reason,omitempty"`
	// Subtasks are the per-specialist outcomes, in launch order.
	Subtasks []SubtaskResult `json:"subtasks"`
	// SynthesizedResult is the combined output assembled after all
	// specialists settled, when available.
	SynthesizedResult string `json:"synthesized_result,omitempty"`
}

// AllCompleted returns true if every subtask completed.
func (r *DispatchResult) AllCompleted() bool {
	if len(r.Subtasks) == 0 {
		return false
	}
	for _, st := range r.Subtasks {
		if st.Status != SubtaskCompleted {
			return false
		}
	}
	return true
}
