package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.Kind != "cli" {
		t.Errorf("Backend.Kind = %q, want cli", cfg.Backend.Kind)
	}
	if cfg.Budget.PerTaskUSD != 5.0 {
		t.Errorf("Budget.PerTaskUSD = %v, want 5.0", cfg.Budget.PerTaskUSD)
	}
	if cfg.Budget.MonthlyUSD != 100.0 {
		t.Errorf("Budget.MonthlyUSD = %v, want 100.0", cfg.Budget.MonthlyUSD)
	}
	if cfg.Timeouts.Specialist != 5*time.Minute {
		t.Errorf("Timeouts.Specialist = %v, want 5m", cfg.Timeouts.Specialist)
	}
	if cfg.Timeouts.Team != 10*time.Minute {
		t.Errorf("Timeouts.Team = %v, want 10m", cfg.Timeouts.Team)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `backend:
  kind: api
budget:
  per_task_usd: 2.5
  monthly_usd: 40
timeouts:
  specialist: 3m
  team: 8m
  health_inactivity: 90s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Backend.Kind != "api" {
		t.Errorf("Backend.Kind = %q, want api", cfg.Backend.Kind)
	}
	if cfg.Budget.PerTaskUSD != 2.5 {
		t.Errorf("PerTaskUSD = %v, want 2.5", cfg.Budget.PerTaskUSD)
	}
	if cfg.Timeouts.Specialist != 3*time.Minute {
		t.Errorf("Specialist = %v, want 3m", cfg.Timeouts.Specialist)
	}
	if cfg.Timeouts.HealthInactivity != 90*time.Second {
		t.Errorf("HealthInactivity = %v, want 90s", cfg.Timeouts.HealthInactivity)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Unset keys fall back to defaults.
	if cfg.Backend.Binary != "claude" {
		t.Errorf("Backend.Binary = %q, want claude", cfg.Backend.Binary)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero per-task budget", func(c *Config) { c.Budget.PerTaskUSD = 0 }, true},
		{"monthly below per-task", func(c *Config) { c.Budget.MonthlyUSD = 1 }, true},
		{"zero specialist timeout", func(c *Config) { c.Timeouts.Specialist = 0 }, true},
		{"unknown backend kind", func(c *Config) { c.Backend.Kind = "grpc" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
