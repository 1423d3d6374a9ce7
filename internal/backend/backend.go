// Package backend provides execution backends for analyzer, lead, and
// specialist invocations. A backend accepts a prompt plus optional model and
// timeout, and returns free text with an exit signal. Calls are slow
// (minutes, not milliseconds) and weakly structured; callers parse output
// defensively and treat a nonzero exit as a hard error.
package backend

import (
	"context"
	"time"
)

// DefaultTimeout is the fallback invocation timeout.
const DefaultTimeout = 5 * time.Minute

// Backend is the interface for executing a single prompt.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Execute runs a prompt to completion and returns the output.
	Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error)
}

// ExecuteOptions configures a backend invocation.
type ExecuteOptions struct {
	// Prompt is the full prompt text.
	Prompt string
	// Model optionally overrides the backend's default model.
	Model string
	// WorkDir is the working directory for subprocess backends.
	WorkDir string
	// Timeout bounds the invocation (0 = DefaultTimeout).
	Timeout time.Duration
}

// ExecuteResult holds the outcome of a backend invocation.
type ExecuteResult struct {
	// Output is the backend's text output, possibly partial on failure.
	Output string
	// ExitCode is the process exit code; -1 for timeouts and API errors.
	ExitCode int
	// Duration is how long the invocation ran.
	Duration time.Duration
	// Error is the failure message when the invocation did not succeed.
	Error string
}

// IsSuccess returns true if the invocation succeeded.
func (r *ExecuteResult) IsSuccess() bool {
	return r.ExitCode == 0 && r.Error == ""
}
