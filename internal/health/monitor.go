// Package health detects stuck tasks by watching for checkpoint inactivity.
package health

import (
	"sync"
	"time"

	"github.com/ShayCichocki/crew/internal/logging"
)

// StuckFunc is called at most once per monitoring session when a task shows
// no checkpoint activity within the window. reason is human-readable.
type StuckFunc func(taskID, reason string)

// Monitor arms one inactivity timer per task. Any checkpoint activity resets
// the timer via Poke; a firing timer reports the task as stuck.
type Monitor struct {
	window  time.Duration
	onStuck StuckFunc
	log     *logging.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewMonitor creates a monitor with the given inactivity window.
func NewMonitor(window time.Duration, onStuck StuckFunc) *Monitor {
	return &Monitor{
		window:  window,
		onStuck: onStuck,
		log:     logging.Component("health"),
		timers:  make(map[string]*time.Timer),
	}
}

// StartMonitoring arms the inactivity timer for a task. Starting an
// already-monitored task resets its timer.
func (m *Monitor) StartMonitoring(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[taskID]; ok {
		timer.Stop()
	}
	m.timers[taskID] = time.AfterFunc(m.window, func() {
		m.fire(taskID)
	})
}

// Poke resets a task's timer. Unknown tasks are a no-op, so late checkpoint
// events after completion are harmless.
func (m *Monitor) Poke(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	timer, ok := m.timers[taskID]
	if !ok {
		return
	}
	timer.Stop()
	m.timers[taskID] = time.AfterFunc(m.window, func() {
		m.fire(taskID)
	})
}

// StopMonitoring disarms a task's timer. Called on every task exit path.
func (m *Monitor) StopMonitoring(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[taskID]; ok {
		timer.Stop()
		delete(m.timers, taskID)
	}
}

// Monitoring reports whether a task currently has an armed timer.
func (m *Monitor) Monitoring(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[taskID]
	return ok
}

func (m *Monitor) fire(taskID string) {
	m.mu.Lock()
	if _, ok := m.timers[taskID]; !ok {
		// StopMonitoring raced the firing timer.
		m.mu.Unlock()
		return
	}
	delete(m.timers, taskID)
	m.mu.Unlock()

	m.log.Warnf("task %s stuck: no checkpoint activity for %v", taskID, m.window)
	if m.onStuck != nil {
		m.onStuck(taskID, "no checkpoint activity for "+m.window.String())
	}
}
