package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// execRunner implements Runner by spawning the configured external binary.
type execRunner struct {
	binary       string
	planTimeout  time.Duration
	applyTimeout time.Duration
	logger       *slog.Logger
}

// NewExecRunner creates a Runner that drives the given IaC binary with
// per-call timeouts.
func NewExecRunner(binary string, planTimeout, applyTimeout time.Duration, logger *slog.Logger) Runner {
	return &execRunner{
		binary:       binary,
		planTimeout:  planTimeout,
		applyTimeout: applyTimeout,
		logger:       logger,
	}
}

// command builds the child process. The process gets its own group so a
// timeout kill also reaps any grandchildren the tool spawned.
func (e *execRunner) command(ctx context.Context, workdir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = workdir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	return cmd
}

// Plan runs a dry-run and parses the change summary.
func (e *execRunner) Plan(ctx context.Context, workdir string) (*PlanOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, e.planTimeout)
	defer cancel()

	cmd := e.command(ctx, workdir, "plan", "-json", "-input=false", "-no-color")

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	e.logger.Debug("starting plan",
		slog.String("binary", e.binary),
		slog.String("workdir", workdir),
	)

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return &PlanOutput{
			RawOutput: buf.String(),
			Kind:      KindTimeout,
			Errors:    []string{fmt.Sprintf("plan timed out after %s", e.planTimeout)},
		}, nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The child never ran (binary missing, workdir gone).
			return nil, fmt.Errorf("failed to run plan: %w", err)
		}
	}

	return parsePlanOutput(buf.String(), exitCode), nil
}

// Apply executes the change-set, streaming stdout lines through the returned
// handle while buffering the full transcript for the terminal result.
func (e *execRunner) Apply(ctx context.Context, workdir string) (*Apply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.applyTimeout)

	cmd := e.command(ctx, workdir, "apply", "-auto-approve", "-json", "-input=false", "-no-color")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start apply: %w", err)
	}

	e.logger.Debug("starting apply",
		slog.String("binary", e.binary),
		slog.String("workdir", workdir),
	)

	apply := &Apply{
		lines: make(chan string, 64),
		done:  make(chan Result, 1),
	}

	go func() {
		defer cancel()

		var transcript strings.Builder
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			transcript.WriteString(line)
			transcript.WriteByte('\n')
			apply.lines <- line
		}
		scanErr := scanner.Err()
		if scanErr != nil {
			// Keep draining so the child never blocks on a full pipe
			// and Wait below returns without the timeout.
			_, _ = io.Copy(io.Discard, stdout)
		}
		close(apply.lines)

		waitErr := cmd.Wait()

		result := Result{RawOutput: transcript.String()}
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			result.Kind = KindTimeout
			result.ExitCode = -1
			result.Errors = []string{fmt.Sprintf("apply timed out after %s", e.applyTimeout)}
		case waitErr != nil:
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
			} else {
				result.ExitCode = -1
			}
			result.Kind = KindApply
			result.Errors = []string{waitErr.Error()}
		default:
			result.Success = true
		}

		if scanErr != nil {
			result.Success = false
			if result.Kind == "" {
				result.Kind = KindApply
			}
			result.Errors = append(result.Errors, fmt.Sprintf("output stream truncated: %v", scanErr))
		}

		apply.done <- result
	}()

	return apply, nil
}
