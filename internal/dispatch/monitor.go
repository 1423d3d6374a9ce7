package dispatch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/crew/internal/checkpoint"
	"github.com/ShayCichocki/crew/internal/health"
	"github.com/ShayCichocki/crew/internal/logging"
)

// checkpointMonitor watches a task's result and checkpoint directories and
// converts file writes into checkpoint-activity events and health pokes.
type checkpointMonitor struct {
	taskID  string
	watcher *fsnotify.Watcher
	emitter *Emitter
	health  *health.Monitor
	log     *logging.Logger
	done    chan struct{}
}

// watchCheckpoints starts a monitor for one task. A watcher failure is
// tolerated: the health monitor then relies on the launcher's explicit pokes.
func watchCheckpoints(store *checkpoint.Store, taskID string, emitter *Emitter, hm *health.Monitor) *checkpointMonitor {
	m := &checkpointMonitor{
		taskID:  taskID,
		emitter: emitter,
		health:  hm,
		log:     logging.Component("monitor"),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Warnf("checkpoint watcher unavailable for task %s: %v", taskID, err)
		return m
	}

	for _, dir := range []string{store.ResultsDir(taskID), store.CheckpointsDir(taskID)} {
		if err := watcher.Add(dir); err != nil {
			m.log.Warnf("watch %s: %v", dir, err)
		}
	}

	m.watcher = watcher
	go m.run()
	return m
}

func (m *checkpointMonitor) run() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			m.health.Poke(m.taskID)
			m.emitter.Emit(Event{
				Type:    EventCheckpointActivity,
				TaskID:  m.taskID,
				Message: filepath.Base(event.Name),
			})
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warnf("checkpoint watcher error: %v", err)
		}
	}
}

// stop shuts down the monitor.
func (m *checkpointMonitor) stop() {
	close(m.done)
	if m.watcher != nil {
		m.watcher.Close()
	}
}
