package models

import "time"

// AgentStatus represents the observed state of a running specialist.
type AgentStatus string

const (
	// AgentActive indicates the agent is executing.
	AgentActive AgentStatus = "active"
	// AgentIdle indicates the agent has settled and is awaiting cleanup.
	AgentIdle AgentStatus = "idle"
	// AgentError indicates the agent failed.
	AgentError AgentStatus = "error"
)

// AgentInfo is the transient, in-memory record of a specialist agent.
// It exists for observability only: created when the specialist starts,
// cleared when its task reaches a terminal state.
type AgentInfo struct {
	// ID is the unique agent identifier.
	ID string `json:"id"`
	// Name is the display name (e.g. "copywriter-alpha").
	Name string `json:"name"`
	// Status is the observed agent state.
	Status AgentStatus `json:"status"`
	// TaskID is the task the agent belongs to.
	TaskID string `json:"task_id"`
	// SubtaskID is the subtask slot the agent is working.
	SubtaskID string `json:"subtask_id"`
	// LastAction is a short description of the agent's latest activity.
	LastAction string `json:"last_action"`
	// LastSeen is refreshed on every update to the record.
	LastSeen time.Time `json:"last_seen"`
	// Error holds the failure reason when Status is error.
	Error string `json:"error,omitempty"`
}
