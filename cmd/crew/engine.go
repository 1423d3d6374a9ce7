package main

import (
	"fmt"
	"path/filepath"

	"github.com/ShayCichocki/crew/internal/analyzer"
	"github.com/ShayCichocki/crew/internal/backend"
	"github.com/ShayCichocki/crew/internal/checkpoint"
	"github.com/ShayCichocki/crew/internal/config"
	"github.com/ShayCichocki/crew/internal/dispatch"
	"github.com/ShayCichocki/crew/internal/logging"
	"github.com/ShayCichocki/crew/internal/skills"
	"github.com/ShayCichocki/crew/internal/state"
	"github.com/ShayCichocki/crew/internal/team"
	"github.com/ShayCichocki/crew/internal/tracker"
	"github.com/ShayCichocki/crew/pkg/models"
)

// engine bundles everything a command needs to run or inspect tasks.
type engine struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	registry   *skills.Registry
	db         *state.DB
}

// loadConfig honors the --config flag, falling back to the usual search path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newEngine wires the full pipeline from configuration.
func newEngine() (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Path:   filepath.Join(cfg.Paths.DataDir, "logs"),
		Format: cfg.Logging.Format,
	}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	exec, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := skills.LoadRegistry(cfg.Paths.SkillsFile)
	if err != nil {
		return nil, fmt.Errorf("load skill registry: %w", err)
	}

	db, err := state.Open(filepath.Join(cfg.Paths.DataDir, "crew.db"))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	store, err := checkpoint.NewStore(filepath.Join(cfg.Paths.DataDir, "tasks"))
	if err != nil {
		return nil, err
	}

	tr := tracker.New()
	emitter := dispatch.NewEmitter(256)

	launcher := dispatch.NewLauncher(dispatch.LauncherConfig{
		Backend:           exec,
		Store:             store,
		Tracker:           tr,
		Emitter:           emitter,
		Registry:          registry,
		SpecialistTimeout: cfg.Timeouts.Specialist,
		TeamTimeout:       cfg.Timeouts.Team,
	})

	dispatcher, err := dispatch.New(dispatch.Config{
		Analyzer:         analyzer.New(exec),
		Matcher:          skills.NewMatcher(registry),
		Assembler:        team.NewAssembler(nil),
		Guard:            team.NewGuard(cfg.Budget.PerTaskUSD, cfg.Budget.MonthlyUSD, db),
		Launcher:         launcher,
		Store:            store,
		Tracker:          tr,
		Emitter:          emitter,
		Broadcast:        dispatch.NewBroadcaster(cfg.Broadcast.URL),
		History:          db,
		QueuePath:        filepath.Join(cfg.Paths.DataDir, "queue.json"),
		HealthInactivity: cfg.Timeouts.HealthInactivity,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &engine{
		cfg:        cfg,
		dispatcher: dispatcher,
		registry:   registry,
		db:         db,
	}, nil
}

// newBackend selects the execution backend from configuration.
func newBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend.Kind {
	case "api":
		return backend.NewAPIBackend(backend.APIConfig{
			Model:         cfg.Anthropic.Model,
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
	default:
		b := backend.NewCLIBackend(
			backend.WithBinaryPath(cfg.Backend.Binary),
			backend.WithDefaultTimeout(cfg.Timeouts.Specialist),
		)
		if !b.Available() {
			return nil, fmt.Errorf("claude CLI not found in PATH\n\n"+
				"Install it with:\n"+
				"  npm install -g @anthropic-ai/claude-code\n\n"+
				"or set backend.kind to \"api\" with an ANTHROPIC_API_KEY (binary: %s)", cfg.Backend.Binary)
		}
		return b, nil
	}
}

func (e *engine) close() {
	if e.db != nil {
		e.db.Close()
	}
	logging.Get().Close()
}

// stateLabel renders a task state for terminal output.
func stateLabel(s models.TaskState) string {
	switch s {
	case models.TaskStateDone:
		return green(string(s))
	case models.TaskStateFailed, models.TaskStateCancelled:
		return red(string(s))
	case models.TaskStateInProgress, models.TaskStateDispatching:
		return yellow(string(s))
	default:
		return string(s)
	}
}
