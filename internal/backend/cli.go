package backend

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// CLIBackend runs prompts through the claude CLI in print mode.
type CLIBackend struct {
	binaryPath string
	timeout    time.Duration
	runner     CommandRunner
}

// CLIOption configures a CLIBackend.
type CLIOption func(*CLIBackend)

// WithBinaryPath sets a custom path to the CLI binary.
func WithBinaryPath(path string) CLIOption {
	return func(b *CLIBackend) {
		b.binaryPath = path
	}
}

// WithDefaultTimeout sets the default invocation timeout.
func WithDefaultTimeout(d time.Duration) CLIOption {
	return func(b *CLIBackend) {
		b.timeout = d
	}
}

// WithRunner sets a custom command runner (for testing).
func WithRunner(r CommandRunner) CLIOption {
	return func(b *CLIBackend) {
		b.runner = r
	}
}

// NewCLIBackend creates a claude CLI backend.
func NewCLIBackend(opts ...CLIOption) *CLIBackend {
	b := &CLIBackend{
		binaryPath: "claude",
		timeout:    DefaultTimeout,
		runner:     &ExecRunner{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "cli".
func (b *CLIBackend) Name() string {
	return "cli"
}

// Execute runs the CLI with --print and the given prompt.
func (b *CLIBackend) Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error) {
	start := time.Now()

	timeout := b.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--print"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.Prompt != "" {
		args = append(args, opts.Prompt)
	}

	stdout, stderr, exitCode, err := b.runner.Run(ctx, b.binaryPath, args, opts.WorkDir, "")

	result := &ExecuteResult{
		Output:   stdout,
		ExitCode: exitCode,
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.Error = fmt.Sprintf("timeout after %v", timeout)
		result.ExitCode = -1
		return result, ctx.Err()
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Error = stderr
		} else {
			result.Error = err.Error()
		}
		return result, err
	}

	return result, nil
}

// Available checks if the CLI binary is available in PATH.
func (b *CLIBackend) Available() bool {
	_, err := exec.LookPath(b.binaryPath)
	return err == nil
}
