// Package runner drives the external infrastructure-as-code binary. Each call
// spawns exactly one child process; plan parses the tool's machine-readable
// change summary, apply streams output line by line while buffering the full
// transcript. A per-call timeout forcefully terminates the child so a session
// is never left hanging.
package runner

import (
	"context"
)

// Kind distinguishes failure modes explicitly rather than inferring them from
// the exit code alone.
type Kind string

const (
	// KindNone means success.
	KindNone Kind = ""
	// KindParse means the tool's output could not be parsed.
	KindParse Kind = "parse"
	// KindValidation means the tool rejected the configuration.
	KindValidation Kind = "validation"
	// KindTimeout means the child was forcefully terminated on deadline.
	KindTimeout Kind = "timeout"
	// KindApply means the apply itself failed.
	KindApply Kind = "apply"
)

// PlanOutput is the parsed result of one plan invocation.
// Prior results are superseded, never merged.
type PlanOutput struct {
	ToAdd     int
	ToChange  int
	ToDestroy int
	RawOutput string
	Success   bool
	Kind      Kind
	Errors    []string
}

// Result is the terminal outcome of an apply invocation.
type Result struct {
	Success   bool
	Kind      Kind
	ExitCode  int
	RawOutput string
	Errors    []string
}

// Apply is a handle on an in-flight apply. Lines delivers child output as it
// arrives; Wait blocks until the terminal result. The lines channel is closed
// before Wait returns.
type Apply struct {
	lines chan string
	done  chan Result
}

// NewApply returns a handle pre-loaded with the given lines and terminal
// result. Fake runners script applies through it.
func NewApply(lines []string, result Result) *Apply {
	apply := &Apply{
		lines: make(chan string, len(lines)),
		done:  make(chan Result, 1),
	}
	for _, line := range lines {
		apply.lines <- line
	}
	close(apply.lines)
	apply.done <- result
	return apply
}

// Lines returns the stream of child output lines.
func (a *Apply) Lines() <-chan string {
	return a.lines
}

// Wait blocks until the apply finishes and returns the terminal result.
func (a *Apply) Wait() Result {
	return <-a.done
}

// Runner wraps the external IaC binary. Implementations must spawn exactly
// one child process per call and never block the caller on apply: the
// returned handle is consumed asynchronously.
type Runner interface {
	// Plan runs a dry-run in workdir and parses the change summary.
	// Tool failures are reported inside PlanOutput, not as an error: the
	// error return is for spawn-level problems only.
	Plan(ctx context.Context, workdir string) (*PlanOutput, error)

	// Apply executes the planned change-set in workdir, streaming output.
	Apply(ctx context.Context, workdir string) (*Apply, error)
}
