// Package tracker maintains an in-memory view of running specialists for
// observability. It never affects dispatch correctness.
package tracker

import (
	"sync"
	"time"

	"github.com/ShayCichocki/crew/pkg/models"
)

// MaxLogEntries caps the activity log; the oldest entry is dropped first.
const MaxLogEntries = 100

// LogEntry is one line of agent activity.
type LogEntry struct {
	Time    time.Time `json:"time"`
	AgentID string    `json:"agentId"`
	Message string    `json:"message"`
}

// Tracker records agent state and a capped activity log. Construct one per
// engine; tests can hold independent instances.
type Tracker struct {
	mu     sync.RWMutex
	agents map[string]models.AgentInfo
	logs   []LogEntry
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{agents: make(map[string]models.AgentInfo)}
}

// Upsert merges info into the agent's record. Empty fields in the update
// never erase existing values; LastSeen always refreshes.
func (t *Tracker) Upsert(info models.AgentInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.agents[info.ID]
	if !ok {
		existing = models.AgentInfo{ID: info.ID}
	}

	if info.Name != "" {
		existing.Name = info.Name
	}
	if info.Status != "" {
		existing.Status = info.Status
	}
	if info.TaskID != "" {
		existing.TaskID = info.TaskID
	}
	if info.SubtaskID != "" {
		existing.SubtaskID = info.SubtaskID
	}
	if info.LastAction != "" {
		existing.LastAction = info.LastAction
	}
	if info.Error != "" {
		existing.Error = info.Error
	}
	existing.LastSeen = time.Now()

	t.agents[info.ID] = existing
}

// Get returns an agent's record, if tracked.
func (t *Tracker) Get(id string) (models.AgentInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.agents[id]
	return info, ok
}

// List returns all tracked agents.
func (t *Tracker) List() []models.AgentInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.AgentInfo, 0, len(t.agents))
	for _, info := range t.agents {
		out = append(out, info)
	}
	return out
}

// AddLog appends an activity line for a tracked agent. Unknown agent IDs are
// a safe no-op. The log holds at most MaxLogEntries entries.
func (t *Tracker) AddLog(agentID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.agents[agentID]; !ok {
		return
	}

	t.logs = append(t.logs, LogEntry{
		Time:    time.Now(),
		AgentID: agentID,
		Message: message,
	})
	if len(t.logs) > MaxLogEntries {
		t.logs = t.logs[len(t.logs)-MaxLogEntries:]
	}
}

// Logs returns up to n most recent log entries, oldest first. n <= 0 returns
// everything.
func (t *Tracker) Logs(n int) []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	start := 0
	if n > 0 && len(t.logs) > n {
		start = len(t.logs) - n
	}
	out := make([]LogEntry, len(t.logs)-start)
	copy(out, t.logs[start:])
	return out
}

// ClearForTask removes every agent working the given task.
func (t *Tracker) ClearForTask(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, info := range t.agents {
		if info.TaskID == taskID {
			delete(t.agents, id)
		}
	}
}
