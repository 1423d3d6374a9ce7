package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/crew/internal/backend"
	"github.com/ShayCichocki/crew/internal/checkpoint"
	"github.com/ShayCichocki/crew/internal/health"
	"github.com/ShayCichocki/crew/internal/logging"
	"github.com/ShayCichocki/crew/internal/skills"
	"github.com/ShayCichocki/crew/internal/tracker"
	"github.com/ShayCichocki/crew/pkg/models"
)

// Launcher runs a team: the lead invocation first, then every specialist
// concurrently, each under its own timeout.
type Launcher struct {
	backend  backend.Backend
	store    *checkpoint.Store
	tracker  *tracker.Tracker
	emitter  *Emitter
	health   *health.Monitor
	registry *skills.Registry
	log      *logging.Logger

	specialistTimeout time.Duration
	teamTimeout       time.Duration
}

// LauncherConfig wires a Launcher's collaborators.
type LauncherConfig struct {
	Backend           backend.Backend
	Store             *checkpoint.Store
	Tracker           *tracker.Tracker
	Emitter           *Emitter
	Registry          *skills.Registry
	SpecialistTimeout time.Duration
	TeamTimeout       time.Duration
}

// NewLauncher creates a launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	return &Launcher{
		backend:           cfg.Backend,
		store:             cfg.Store,
		tracker:           cfg.Tracker,
		emitter:           cfg.Emitter,
		registry:          cfg.Registry,
		log:               logging.Component("launcher"),
		specialistTimeout: cfg.SpecialistTimeout,
		teamTimeout:       cfg.TeamTimeout,
	}
}

// Launch executes the team and returns the composed dispatch result. The
// caller persists it; Launch itself writes only prompts and per-specialist
// results. One specialist failing or timing out never aborts its siblings.
func (l *Launcher) Launch(ctx context.Context, task models.TaskRequest, decomp *models.TaskDecomposition, spec models.TeamSpec) models.DispatchResult {
	teamCtx, cancel := context.WithTimeout(ctx, l.teamTimeout)
	defer cancel()

	if err := l.writePrompts(task, decomp, spec); err != nil {
		l.log.Errorf("write prompts for task %s: %v", task.ID, err)
	}

	leadOutput := l.runLead(teamCtx, task, spec)

	results := make([]models.SubtaskResult, len(spec.Specialists))
	var wg sync.WaitGroup
	for i, specialist := range spec.Specialists {
		wg.Add(1)
		go func(idx int, s models.SpecialistSpec) {
			defer wg.Done()
			results[idx] = l.runSpecialist(teamCtx, task, decomp, s, idx)
		}(i, specialist)
	}
	wg.Wait()

	result := models.DispatchResult{
		TaskID:   task.ID,
		Subtasks: results,
	}
	if result.AllCompleted() {
		result.Status = models.DispatchCompleted
		result.SynthesizedResult = synthesize(leadOutput, results)
	} else {
		result.Status = models.DispatchFailed
		result.Reason = failureReason(results)
		// Partial output is still worth keeping.
		result.SynthesizedResult = synthesize(leadOutput, results)
	}
	return result
}

// runLead executes the coordination invocation. Its timeout is the smaller
// of the specialist and team windows. Lead failure is logged and tolerated:
// coordination output is preparation, not task work.
func (l *Launcher) runLead(ctx context.Context, task models.TaskRequest, spec models.TeamSpec) string {
	timeout := l.specialistTimeout
	if l.teamTimeout < timeout {
		timeout = l.teamTimeout
	}

	leadID := task.ID + "-lead"
	l.tracker.Upsert(models.AgentInfo{
		ID:         leadID,
		Name:       "lead",
		Status:     models.AgentActive,
		TaskID:     task.ID,
		LastAction: "coordinating",
	})
	l.emitter.Emit(Event{Type: EventSpecialistStarted, TaskID: task.ID, AgentName: "lead"})

	result, err := l.backend.Execute(ctx, backend.ExecuteOptions{
		Prompt:  spec.LeadPrompt,
		Timeout: timeout,
	})

	status := models.AgentIdle
	var output string
	switch {
	case err != nil:
		status = models.AgentError
		l.log.Warnf("lead invocation for task %s failed: %v", task.ID, err)
	case !result.IsSuccess():
		status = models.AgentError
		l.log.Warnf("lead invocation for task %s exited %d: %s", task.ID, result.ExitCode, result.Error)
	default:
		output = result.Output
	}

	l.tracker.Upsert(models.AgentInfo{ID: leadID, Status: status, LastAction: "done"})
	l.tracker.AddLog(leadID, "lead settled")
	l.health.Poke(task.ID)
	l.emitter.Emit(Event{Type: EventSpecialistFinished, TaskID: task.ID, AgentName: "lead"})
	return output
}

// runSpecialist executes one specialist to settlement and writes its result
// to the checkpoint store on both the running and terminal transitions.
func (l *Launcher) runSpecialist(ctx context.Context, task models.TaskRequest, decomp *models.TaskDecomposition, s models.SpecialistSpec, idx int) models.SubtaskResult {
	subtaskID := fmt.Sprintf("sub-%d", idx+1)
	agentID := task.ID + "-" + subtaskID

	subtask := models.SubtaskResult{
		ID:          subtaskID,
		SkillPlugin: s.SkillPlugin,
		SkillName:   s.SkillName,
		AgentName:   s.Role,
		Status:      models.SubtaskRunning,
	}
	if err := l.store.SaveSubtaskResult(task.ID, subtask); err != nil {
		l.log.Errorf("save running result for %s: %v", agentID, err)
	}

	l.tracker.Upsert(models.AgentInfo{
		ID:         agentID,
		Name:       s.Role,
		Status:     models.AgentActive,
		TaskID:     task.ID,
		SubtaskID:  subtaskID,
		LastAction: "executing",
	})
	l.tracker.AddLog(agentID, "specialist started")
	l.emitter.Emit(Event{Type: EventSpecialistStarted, TaskID: task.ID, AgentName: s.Role})

	result, err := l.backend.Execute(ctx, backend.ExecuteOptions{
		Prompt:  l.specialistPrompt(task, decomp, s),
		Timeout: l.specialistTimeout,
	})

	switch {
	case err != nil:
		subtask.Status = models.SubtaskFailed
		if result != nil && result.Error != "" {
			subtask.Error = result.Error
		} else {
			subtask.Error = err.Error()
		}
		if result != nil {
			subtask.Result = result.Output
		}
	case !result.IsSuccess():
		subtask.Status = models.SubtaskFailed
		subtask.Error = fmt.Sprintf("exit %d: %s", result.ExitCode, result.Error)
		subtask.Result = result.Output
	default:
		subtask.Status = models.SubtaskCompleted
		subtask.Result = result.Output
	}

	// Settlement is progress even when the specialist timed out.
	if err := l.store.SaveSubtaskResult(task.ID, subtask); err != nil {
		l.log.Errorf("save terminal result for %s: %v", agentID, err)
	}
	l.health.Poke(task.ID)

	agentStatus := models.AgentIdle
	if subtask.Status == models.SubtaskFailed {
		agentStatus = models.AgentError
	}
	l.tracker.Upsert(models.AgentInfo{
		ID:         agentID,
		Status:     agentStatus,
		LastAction: "settled",
		Error:      subtask.Error,
	})
	l.tracker.AddLog(agentID, "specialist settled: "+string(subtask.Status))
	l.emitter.Emit(Event{
		Type:      EventSpecialistFinished,
		TaskID:    task.ID,
		AgentName: s.Role,
		Message:   string(subtask.Status),
	})

	return subtask
}

// writePrompts persists the lead prompt and one prompt per specialist.
func (l *Launcher) writePrompts(task models.TaskRequest, decomp *models.TaskDecomposition, spec models.TeamSpec) error {
	if err := l.store.SavePrompt(task.ID, "lead", spec.LeadPrompt); err != nil {
		return err
	}
	for _, s := range spec.Specialists {
		if err := l.store.SavePrompt(task.ID, s.Role, l.specialistPrompt(task, decomp, s)); err != nil {
			return err
		}
	}
	return nil
}

// specialistPrompt builds a role-scoped prompt including the skill's
// truncated instructional content.
func (l *Launcher) specialistPrompt(task models.TaskRequest, decomp *models.TaskDecomposition, s models.SpecialistSpec) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, a specialist on a small team.\n\n", s.Role)
	sb.WriteString("Task:\n")
	sb.WriteString(task.Text)
	sb.WriteString("\n\nSub-tasks in scope for your skill:\n")
	for _, st := range decomp.Subtasks {
		fmt.Fprintf(&sb, "- [%s] %s\n", st.Domain, st.Description)
	}

	if content, ok := l.registry.Content(s.SkillPlugin, s.SkillName); ok && content != "" {
		sb.WriteString("\nSkill instructions:\n")
		sb.WriteString(skills.TruncateContent(content))
		sb.WriteString("\n")
	}
	if len(s.ContextKeys) > 0 {
		sb.WriteString("\nBusiness context keys: ")
		sb.WriteString(strings.Join(s.ContextKeys, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("\nDo the sub-tasks matching your skill and reply with the finished deliverable only.")
	return sb.String()
}

// synthesize composes the final result text from the lead plan and each
// specialist's output.
func synthesize(leadOutput string, results []models.SubtaskResult) string {
	var sb strings.Builder
	if leadOutput != "" {
		sb.WriteString(leadOutput)
		sb.WriteString("\n\n")
	}
	for _, r := range results {
		if r.Result == "" {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n%s\n\n", r.AgentName, r.Result)
	}
	return strings.TrimSpace(sb.String())
}

// failureReason summarizes which specialists failed.
func failureReason(results []models.SubtaskResult) string {
	var failed []string
	for _, r := range results {
		if r.Status != models.SubtaskCompleted {
			failed = append(failed, fmt.Sprintf("%s (%s): %s", r.ID, r.AgentName, r.Error))
		}
	}
	if len(failed) == 0 {
		return "no specialists ran"
	}
	return "specialists failed: " + strings.Join(failed, "; ")
}
