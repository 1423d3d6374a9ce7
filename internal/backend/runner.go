package backend

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CommandRunner executes external commands. The abstraction allows mocking
// subprocess execution in tests.
type CommandRunner interface {
	// Run executes a command and returns stdout, stderr, and the exit code.
	// The working directory is set to dir if non-empty; stdin is fed the
	// given string if non-empty.
	Run(ctx context.Context, name string, args []string, dir string, stdin string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner is the default CommandRunner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its output.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, dir string, stdin string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	return stdoutBuf.String(), stderrBuf.String(), exitCode, err
}

var _ CommandRunner = (*ExecRunner)(nil)
