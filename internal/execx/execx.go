package execx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// Command describes one external program invocation.
type Command struct {
	// Program is the executable to run, resolved via PATH.
	Program string
	// Args are the program arguments.
	Args []string
	// Env holds extra environment variables appended to the inherited set.
	Env map[string]string
}

// Result is the captured outcome of a finished command.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// ExitCode is the program's exit status (0 on success).
	ExitCode int
}

// Runner executes external commands. The production implementation shells
// out; tests substitute a fake to script outcomes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// CommandRunner runs commands through the forge executor with output capture
// and a per-command timeout.
type CommandRunner struct {
	// timeout bounds each invocation; zero means no bound beyond ctx.
	timeout time.Duration
}

// NewCommandRunner creates a runner with the given per-command timeout.
func NewCommandRunner(timeout time.Duration) *CommandRunner {
	return &CommandRunner{timeout: timeout}
}

// Run executes the command, capturing stdout and stderr. A non-zero exit
// status is returned as an error with the captured stderr folded in.
func (r *CommandRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	opts := []executor.Option{
		executor.WithCapture(true, true, false),
	}
	if len(cmd.Env) > 0 {
		opts = append(opts, executor.WithEnv(cmd.Env))
	}

	execResult, err := executor.New(cmd.Program, cmd.Args...).Execute(ctx, opts...)

	result := &Result{}
	if execResult != nil {
		result.Stdout = execResult.Stdout
		result.Stderr = execResult.Stderr
		result.ExitCode = execResult.ExitCode
	}

	if err != nil {
		if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
			return result, fmt.Errorf("%s: %w: %s", cmd.Program, err, stderr)
		}

		return result, fmt.Errorf("%s: %w", cmd.Program, err)
	}

	return result, nil
}
