package remediation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/steveyegge/oaiguard/internal/logging"
	"github.com/steveyegge/oaiguard/internal/types"
)

// DefaultCommandTimeout bounds a single command.
const DefaultCommandTimeout = 180 * time.Second

// Executor starts a process. It is the seam tests replace.
type Executor interface {
	// Execute runs name with args and returns its exit code. A non-nil error
	// means the process could not be started or was killed.
	Execute(ctx context.Context, name string, args []string) (stdout, stderr string, rc int, err error)
}

// ExecExecutor runs real processes without a shell.
type ExecExecutor struct{}

// Execute implements Executor.
func (ExecExecutor) Execute(ctx context.Context, name string, args []string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), 0, nil
	}
	if ctx.Err() != nil {
		return stdout.String(), stderr.String(), -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	return stdout.String(), stderr.String(), -1, err
}

// Runner turns command strings into CommandResults.
type Runner struct {
	Exec    Executor
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner returns a Runner over real processes.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{Exec: ExecExecutor{}, Timeout: timeout, Logger: logger}
}

// Run splits cmd into words and executes it. Failures never escape as
// errors: a command that cannot start reports rc -1 with the cause in stderr.
func (r *Runner) Run(ctx context.Context, cmd string) types.CommandResult {
	cmd = strings.TrimSpace(cmd)
	res := types.CommandResult{Cmd: cmd}

	argv, err := shlex.Split(cmd)
	if err != nil || len(argv) == 0 {
		res.RC = -1
		if err != nil {
			res.Stderr = fmt.Sprintf("cannot parse command: %v", err)
		} else {
			res.Stderr = "empty command"
		}
		return res
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exe := r.Exec
	if exe == nil {
		exe = ExecExecutor{}
	}
	start := time.Now()
	stdout, stderr, rc, err := exe.Execute(runCtx, argv[0], argv[1:])
	res.RC = rc
	res.Stdout = types.TruncateTail(stdout, types.OutputLimit)
	res.Stderr = types.TruncateTail(stderr, types.OutputLimit)
	if err != nil {
		res.RC = -1
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v", timeout)
		}
		res.Stderr = types.TruncateTail(joinNonEmpty(res.Stderr, err.Error()), types.OutputLimit)
	}

	logging.OrDefault(r.Logger).Debug("command finished", "cmd", cmd, "rc", res.RC, "duration", time.Since(start))
	return res
}

// RunAll runs every command in order regardless of earlier failures.
func (r *Runner) RunAll(ctx context.Context, cmds []string) []types.CommandResult {
	results := make([]types.CommandResult, 0, len(cmds))
	for _, c := range cmds {
		results = append(results, r.Run(ctx, c))
	}
	return results
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return strings.TrimRight(a, "\n") + "\n" + b
}
