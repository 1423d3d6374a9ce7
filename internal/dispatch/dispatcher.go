package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/crew/internal/checkpoint"
	"github.com/ShayCichocki/crew/internal/health"
	"github.com/ShayCichocki/crew/internal/logging"
	"github.com/ShayCichocki/crew/internal/queue"
	"github.com/ShayCichocki/crew/internal/skills"
	"github.com/ShayCichocki/crew/internal/state"
	"github.com/ShayCichocki/crew/internal/team"
	"github.com/ShayCichocki/crew/internal/tracker"
	"github.com/ShayCichocki/crew/pkg/models"
)

// ErrUnknownTask is returned for operations on task IDs the dispatcher has
// never seen.
var ErrUnknownTask = errors.New("unknown task")

// History records terminal dispatch outcomes. *state.DB satisfies it.
type History interface {
	RecordDispatch(rec state.DispatchRecord) error
}

// Analyzer is the decomposition seam; *analyzer.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.TaskDecomposition, error)
}

// taskRun is the in-memory state of one submitted task. The single-active
// invariant holds because the queue activates at most one task, and only
// activation starts a pipeline goroutine.
type taskRun struct {
	req     models.TaskRequest
	mu      sync.Mutex
	state   models.TaskState
	decomp  *models.TaskDecomposition
	matches []models.SkillMatch
	team    *models.TeamSpec

	confirm     chan struct{}
	confirmOnce sync.Once
	cancelRun   context.CancelFunc
	finalize    sync.Once
	monitor     *checkpointMonitor
	stuckReason string
}

// Dispatcher owns the task pipeline and every exposed operation.
type Dispatcher struct {
	analyzer  Analyzer
	matcher   *skills.Matcher
	assembler *team.Assembler
	guard     *team.Guard
	launcher  *Launcher
	store     *checkpoint.Store
	tracker   *tracker.Tracker
	health    *health.Monitor
	queue     *queue.Queue
	emitter   *Emitter
	broadcast *Broadcaster
	history   History
	log       *logging.Logger

	mu   sync.Mutex
	runs map[string]*taskRun
}

// Config wires a Dispatcher's collaborators. Queue and Health are created by
// the Dispatcher itself so it can own their callbacks.
type Config struct {
	Analyzer  Analyzer
	Matcher   *skills.Matcher
	Assembler *team.Assembler
	Guard     *team.Guard
	Launcher  *Launcher
	Store     *checkpoint.Store
	Tracker   *tracker.Tracker
	Emitter   *Emitter
	Broadcast *Broadcaster
	History   History

	QueuePath        string
	HealthInactivity time.Duration
}

// New creates a dispatcher and loads any persisted queue state. Recovered
// tasks wait at the head of the queue until Resume is called.
func New(cfg Config) (*Dispatcher, error) {
	d := &Dispatcher{
		analyzer:  cfg.Analyzer,
		matcher:   cfg.Matcher,
		assembler: cfg.Assembler,
		guard:     cfg.Guard,
		launcher:  cfg.Launcher,
		store:     cfg.Store,
		tracker:   cfg.Tracker,
		emitter:   cfg.Emitter,
		broadcast: cfg.Broadcast,
		history:   cfg.History,
		log:       logging.Component("dispatcher"),
		runs:      make(map[string]*taskRun),
	}

	d.health = health.NewMonitor(cfg.HealthInactivity, d.onStuck)
	if cfg.Launcher != nil {
		cfg.Launcher.health = d.health
	}

	q, err := queue.New(cfg.QueuePath, d.onActivate)
	if err != nil {
		return nil, err
	}
	d.queue = q
	return d, nil
}

// Submit accepts a free-text task and returns its ID and queue position.
// Position 0 means the task activated immediately.
func (d *Dispatcher) Submit(text string) (string, int, error) {
	req := models.TaskRequest{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.store.SaveRequest(req); err != nil {
		return "", 0, fmt.Errorf("persist request: %w", err)
	}

	d.mu.Lock()
	d.runs[req.ID] = &taskRun{
		req:     req,
		state:   models.TaskStateQueued,
		confirm: make(chan struct{}),
	}
	d.mu.Unlock()

	pos, err := d.queue.Enqueue(req)
	if err != nil {
		return "", 0, fmt.Errorf("enqueue: %w", err)
	}

	d.emit(Event{Type: EventTaskQueued, TaskID: req.ID, Message: fmt.Sprintf("position %d", pos)})
	return req.ID, pos, nil
}

// Resume activates the next pending task if nothing is active, returning
// the activated request or nil. Called once at startup to restart work
// recovered from a previous process.
func (d *Dispatcher) Resume() (*models.TaskRequest, error) {
	return d.queue.Dequeue()
}

// Confirm approves a task waiting in the confirming state, moving it to
// dispatching.
func (d *Dispatcher) Confirm(taskID string) error {
	run := d.run(taskID)
	if run == nil {
		return ErrUnknownTask
	}

	run.mu.Lock()
	st := run.state
	run.mu.Unlock()
	if st != models.TaskStateConfirming {
		return fmt.Errorf("task %s is %s, not awaiting confirmation", taskID, st)
	}

	run.confirmOnce.Do(func() { close(run.confirm) })
	return nil
}

// Cancel removes a queued or confirming task. Mid-execution tasks cannot be
// cancelled; the health monitor is the halt path for those.
func (d *Dispatcher) Cancel(taskID string) error {
	run := d.run(taskID)
	if run == nil {
		return ErrUnknownTask
	}

	run.mu.Lock()
	st := run.state
	run.mu.Unlock()

	switch st {
	case models.TaskStateQueued:
		// Only pending tasks are removed here. A task whose activation is
		// already scheduled keeps its pipeline and must be cancelled from
		// the confirming state instead.
		found, err := d.queue.CancelPending(taskID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("task %s is starting and cannot be cancelled yet", taskID)
		}
		d.setState(run, models.TaskStateCancelled)
		return nil
	case models.TaskStateConfirming:
		if run.cancelRun != nil {
			run.cancelRun()
		}
		return nil
	default:
		return fmt.Errorf("task %s is %s and cannot be cancelled", taskID, st)
	}
}

// StatusReport is the full queryable view of one task.
type StatusReport struct {
	TaskID        string                    `json:"taskId"`
	State         models.TaskState          `json:"state"`
	QueuePosition int                       `json:"queuePosition"`
	Request       *models.TaskRequest       `json:"request,omitempty"`
	Decomposition *models.TaskDecomposition `json:"decomposition,omitempty"`
	Matches       []models.SkillMatch       `json:"matches,omitempty"`
	Team          *models.TeamSpec          `json:"team,omitempty"`
	Results       []models.SubtaskResult    `json:"results,omitempty"`
	Final         *models.DispatchResult    `json:"final,omitempty"`
}

// Status reports everything known about a task. Slots not yet written are
// simply absent; querying a freshly-submitted task never errors.
func (d *Dispatcher) Status(taskID string) (*StatusReport, error) {
	report := &StatusReport{TaskID: taskID, QueuePosition: d.queue.Position(taskID)}

	if run := d.run(taskID); run != nil {
		run.mu.Lock()
		report.State = run.state
		report.Decomposition = run.decomp
		report.Matches = run.matches
		report.Team = run.team
		run.mu.Unlock()
		req := run.req
		report.Request = &req
	}

	if report.Request == nil {
		req, ok, err := d.store.LoadRequest(taskID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnknownTask
		}
		report.Request = &req
	}
	if report.Decomposition == nil {
		if decomp, ok, err := d.store.LoadDecomposition(taskID); err == nil && ok {
			report.Decomposition = decomp
		}
	}

	results, err := d.store.LoadSubtaskResults(taskID)
	if err == nil {
		report.Results = results
	}
	if final, ok, err := d.store.LoadFinal(taskID); err == nil && ok {
		report.Final = &final
		if report.State == "" {
			if final.Status == models.DispatchCompleted {
				report.State = models.TaskStateDone
			} else {
				report.State = models.TaskStateFailed
			}
		}
	}
	return report, nil
}

// Queue returns a snapshot of the active and pending tasks.
func (d *Dispatcher) Queue() models.QueueState {
	return d.queue.Snapshot()
}

// Agents returns the live agent list.
func (d *Dispatcher) Agents() []models.AgentInfo {
	return d.tracker.List()
}

// AgentLogs returns up to n recent agent log lines.
func (d *Dispatcher) AgentLogs(n int) []tracker.LogEntry {
	return d.tracker.Logs(n)
}

// Events returns the lifecycle event stream.
func (d *Dispatcher) Events() <-chan Event {
	return d.emitter.Events()
}

// onActivate is the queue's activation callback. It starts the single
// pipeline goroutine for the newly active task.
func (d *Dispatcher) onActivate(req models.TaskRequest) {
	go d.runTask(req)
}

// runTask drives one task through its whole lifecycle.
func (d *Dispatcher) runTask(req models.TaskRequest) {
	run := d.ensureRun(req)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run.mu.Lock()
	run.cancelRun = cancel
	run.mu.Unlock()

	d.setState(run, models.TaskStateAnalyzing)
	decomp, err := d.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		d.failTask(run, models.TaskStateAnalyzing, "analysis failed: "+err.Error(), nil)
		return
	}

	run.mu.Lock()
	run.decomp = decomp
	run.mu.Unlock()
	if err := d.store.SaveDecomposition(req.ID, decomp); err != nil {
		d.failTask(run, models.TaskStateAnalyzing, "persist decomposition: "+err.Error(), nil)
		return
	}

	matches := d.matcher.Match(decomp.Subtasks)
	run.mu.Lock()
	run.matches = matches
	run.mu.Unlock()

	d.setState(run, models.TaskStateConfirming)
	if anyNeedsConfirmation(matches) {
		d.emit(Event{
			Type:    EventConfirmationNeeded,
			TaskID:  req.ID,
			Message: confirmationSummary(matches),
		})
		select {
		case <-run.confirm:
		case <-ctx.Done():
			d.cancelTask(run)
			return
		}
	}

	d.setState(run, models.TaskStateDispatching)
	spec := d.assembler.Assemble(req, decomp, matches)
	run.mu.Lock()
	run.team = &spec
	run.mu.Unlock()

	d.emit(Event{
		Type:    EventCostEstimated,
		TaskID:  req.ID,
		CostUSD: spec.EstimatedCost.EstimatedCostUSD,
	})

	if err := d.guard.Approve(req.ID, spec.EstimatedCost); err != nil {
		d.failTask(run, models.TaskStateDispatching, err.Error(), nil)
		return
	}

	d.health.StartMonitoring(req.ID)
	run.mu.Lock()
	run.monitor = watchCheckpoints(d.store, req.ID, d.emitter, d.health)
	run.mu.Unlock()

	d.setState(run, models.TaskStateInProgress)
	result := d.launcher.Launch(ctx, req, decomp, spec)

	run.mu.Lock()
	stuck := run.stuckReason
	run.mu.Unlock()
	if stuck != "" {
		result.Status = models.DispatchFailed
		result.Reason = "stuck: " + stuck
		d.finish(run, result, models.TaskStateFailed)
		return
	}

	if result.Status == models.DispatchCompleted {
		d.setState(run, models.TaskStateReview)
		d.finish(run, result, models.TaskStateDone)
	} else {
		d.finish(run, result, models.TaskStateFailed)
	}
}

// failTask writes a terminal failed DispatchResult with a human-readable
// reason. Failures surface through status queries, never panics.
func (d *Dispatcher) failTask(run *taskRun, from models.TaskState, reason string, subtasks []models.SubtaskResult) {
	d.log.Warnf("task %s failed while %s: %s", run.req.ID, from, reason)
	d.finish(run, models.DispatchResult{
		TaskID:   run.req.ID,
		Status:   models.DispatchFailed,
		Reason:   reason,
		Subtasks: subtasks,
	}, models.TaskStateFailed)
}

// cancelTask settles a task cancelled while awaiting confirmation.
func (d *Dispatcher) cancelTask(run *taskRun) {
	run.finalize.Do(func() {
		d.setState(run, models.TaskStateCancelled)
		if err := d.queue.CompleteActive(run.req.ID); err != nil {
			d.log.Errorf("complete active after cancel: %v", err)
		}
		if _, err := d.queue.Dequeue(); err != nil {
			d.log.Errorf("dequeue after cancel: %v", err)
		}
	})
}

// finish writes the terminal DispatchResult exactly once, releases every
// per-task resource, and advances the queue.
func (d *Dispatcher) finish(run *taskRun, result models.DispatchResult, terminal models.TaskState) {
	run.finalize.Do(func() {
		taskID := run.req.ID

		if err := d.store.SaveFinal(taskID, result); err != nil {
			d.log.Errorf("persist final result for %s: %v", taskID, err)
		}
		if d.history != nil {
			err := d.history.RecordDispatch(state.DispatchRecord{
				TaskID:      taskID,
				Status:      string(result.Status),
				Reason:      result.Reason,
				CompletedAt: time.Now().UTC(),
			})
			if err != nil {
				d.log.Errorf("record dispatch history: %v", err)
			}
		}

		d.health.StopMonitoring(taskID)
		run.mu.Lock()
		if run.monitor != nil {
			run.monitor.stop()
			run.monitor = nil
		}
		run.mu.Unlock()
		d.tracker.ClearForTask(taskID)

		d.setState(run, terminal)
		d.emit(Event{
			Type:    EventTaskDone,
			TaskID:  taskID,
			State:   string(terminal),
			Message: result.Reason,
		})

		if err := d.queue.CompleteActive(taskID); err != nil {
			d.log.Errorf("complete active: %v", err)
		}
		if _, err := d.queue.Dequeue(); err != nil {
			d.log.Errorf("dequeue next: %v", err)
		}
	})
}

// onStuck is the health monitor callback. It records the stuck reason and
// cancels the run's context; the pipeline goroutine writes the terminal
// result once the launcher has fully unwound, so the queue never advances
// while the stuck task's specialists are still running.
func (d *Dispatcher) onStuck(taskID, reason string) {
	run := d.run(taskID)
	if run == nil {
		return
	}

	d.log.Warnf("task %s stuck: %s", taskID, reason)
	d.emit(Event{Type: EventTaskStuck, TaskID: taskID, Message: reason})

	run.mu.Lock()
	run.stuckReason = reason
	cancel := run.cancelRun
	run.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setState transitions a run's lifecycle state, emitting an event. Illegal
// transitions are logged and skipped rather than corrupting the lifecycle.
func (d *Dispatcher) setState(run *taskRun, next models.TaskState) {
	run.mu.Lock()
	current := run.state
	if current == next {
		run.mu.Unlock()
		return
	}
	if !current.CanTransition(next) {
		run.mu.Unlock()
		d.log.Errorf("illegal transition for task %s: %s -> %s", run.req.ID, current, next)
		return
	}
	run.state = next
	run.mu.Unlock()

	d.emit(Event{Type: EventTaskStateChanged, TaskID: run.req.ID, State: string(next)})
}

func (d *Dispatcher) emit(event Event) {
	d.emitter.Emit(event)
	d.broadcast.Send(event)
}

func (d *Dispatcher) run(taskID string) *taskRun {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs[taskID]
}

// ensureRun returns the run for a task, creating one for tasks recovered
// from a persisted queue snapshot after a restart.
func (d *Dispatcher) ensureRun(req models.TaskRequest) *taskRun {
	d.mu.Lock()
	defer d.mu.Unlock()

	if run, ok := d.runs[req.ID]; ok {
		return run
	}
	run := &taskRun{
		req:     req,
		state:   models.TaskStateQueued,
		confirm: make(chan struct{}),
	}
	d.runs[req.ID] = run
	return run
}

func anyNeedsConfirmation(matches []models.SkillMatch) bool {
	for _, m := range matches {
		if m.NeedsConfirmation {
			return true
		}
	}
	return false
}

func confirmationSummary(matches []models.SkillMatch) string {
	for _, m := range matches {
		if m.NeedsConfirmation {
			return fmt.Sprintf("low-confidence match %q (%.2f), confirm to dispatch", m.UserLabel, m.Confidence)
		}
	}
	return "confirmation required"
}
