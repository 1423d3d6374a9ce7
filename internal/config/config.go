// Package config handles configuration loading and management for crew.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the crew engine.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

// AnthropicConfig holds Anthropic API settings for the API backend.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseAWSBedrock routes API calls through AWS Bedrock instead of the
	// direct Anthropic API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// BackendConfig selects and configures the execution backend.
type BackendConfig struct {
	// Kind is "cli" (claude subprocess) or "api" (Anthropic SDK).
	Kind string `mapstructure:"kind"`
	// Binary is the CLI binary path for the cli backend.
	Binary string `mapstructure:"binary"`
}

// BudgetConfig holds spend ceilings enforced before any launch.
type BudgetConfig struct {
	// PerTaskUSD is the maximum estimated cost of a single task.
	PerTaskUSD float64 `mapstructure:"per_task_usd"`
	// MonthlyUSD caps estimated spend plus month-to-date spend.
	MonthlyUSD float64 `mapstructure:"monthly_usd"`
}

// TimeoutsConfig holds the three independent timeout layers.
type TimeoutsConfig struct {
	// Specialist is the per-specialist wall-clock timeout.
	Specialist time.Duration `mapstructure:"specialist"`
	// Team bounds lead plus all specialists together.
	Team time.Duration `mapstructure:"team"`
	// HealthInactivity is the window of checkpoint silence after which
	// a task is declared stuck.
	HealthInactivity time.Duration `mapstructure:"health_inactivity"`
}

// PathsConfig holds filesystem locations for durable state.
type PathsConfig struct {
	// DataDir is the base directory for task checkpoints, the queue
	// snapshot, the spend ledger, and logs.
	DataDir string `mapstructure:"data_dir"`
	// SkillsFile is the skill registry file.
	SkillsFile string `mapstructure:"skills_file"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BroadcastConfig holds the optional remote status connection.
type BroadcastConfig struct {
	// URL receives lifecycle events as JSON POSTs. Empty disables broadcast.
	URL string `mapstructure:"url"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, CREW_*)
//  2. Project config (.crew.yaml in current directory or parent)
//  3. User config (~/.config/crew/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over user config.
	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CREW")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir)
	cfg.Paths.SkillsFile = expandPath(cfg.Paths.SkillsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir)
	cfg.Paths.SkillsFile = expandPath(cfg.Paths.SkillsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that ceilings and timeouts are sane.
func (c *Config) Validate() error {
	if c.Budget.PerTaskUSD <= 0 {
		return fmt.Errorf("budget.per_task_usd must be positive, got %v", c.Budget.PerTaskUSD)
	}
	if c.Budget.MonthlyUSD < c.Budget.PerTaskUSD {
		return fmt.Errorf("budget.monthly_usd (%v) must be at least per_task_usd (%v)",
			c.Budget.MonthlyUSD, c.Budget.PerTaskUSD)
	}
	if c.Timeouts.Specialist <= 0 || c.Timeouts.Team <= 0 || c.Timeouts.HealthInactivity <= 0 {
		return fmt.Errorf("all timeouts must be positive")
	}
	switch c.Backend.Kind {
	case "cli", "api":
	default:
		return fmt.Errorf("backend.kind must be \"cli\" or \"api\", got %q", c.Backend.Kind)
	}
	return nil
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{},
		Backend:   BackendConfig{Kind: "cli", Binary: "claude"},
		Budget:    BudgetConfig{PerTaskUSD: 5.0, MonthlyUSD: 100.0},
		Timeouts: TimeoutsConfig{
			Specialist:       5 * time.Minute,
			Team:             10 * time.Minute,
			HealthInactivity: 2 * time.Minute,
		},
		Paths: PathsConfig{
			DataDir:    defaultDataDir(),
			SkillsFile: filepath.Join(getUserConfigDir(), "skills.yaml"),
		},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Broadcast: BroadcastConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.binary", d.Backend.Binary)
	v.SetDefault("budget.per_task_usd", d.Budget.PerTaskUSD)
	v.SetDefault("budget.monthly_usd", d.Budget.MonthlyUSD)
	v.SetDefault("timeouts.specialist", "5m")
	v.SetDefault("timeouts.team", "10m")
	v.SetDefault("timeouts.health_inactivity", "2m")
	v.SetDefault("paths.data_dir", d.Paths.DataDir)
	v.SetDefault("paths.skills_file", d.Paths.SkillsFile)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("broadcast.url", "")
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "crew")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "crew")
	}
	return filepath.Join(home, ".config", "crew")
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "crew")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".crew")
	}
	return filepath.Join(home, ".local", "share", "crew")
}

// findProjectConfig searches for .crew.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".crew.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
