// Package testing provides a scripted Runner for orchestrator and sweeper tests.
package testing

import (
	"context"
	"sync"

	"github.com/allisson/provision/internal/runner"
)

// FakeRunner returns pre-scripted plan and apply outcomes and records the
// workdirs it was invoked with.
type FakeRunner struct {
	mu sync.Mutex

	PlanOutput *runner.PlanOutput
	PlanErr    error

	ApplyLines  []string
	ApplyResult runner.Result
	ApplyErr    error

	// ApplyStarted, when non-nil, is closed as Apply begins so tests can
	// synchronize with the background apply.
	ApplyStarted chan struct{}
	// ApplyRelease, when non-nil, blocks the terminal result until closed.
	ApplyRelease chan struct{}

	PlanWorkdirs  []string
	ApplyWorkdirs []string
}

func (f *FakeRunner) Plan(ctx context.Context, workdir string) (*runner.PlanOutput, error) {
	f.mu.Lock()
	f.PlanWorkdirs = append(f.PlanWorkdirs, workdir)
	f.mu.Unlock()

	if f.PlanErr != nil {
		return nil, f.PlanErr
	}
	output := *f.PlanOutput
	return &output, nil
}

func (f *FakeRunner) Apply(ctx context.Context, workdir string) (*runner.Apply, error) {
	f.mu.Lock()
	f.ApplyWorkdirs = append(f.ApplyWorkdirs, workdir)
	f.mu.Unlock()

	if f.ApplyStarted != nil {
		close(f.ApplyStarted)
	}
	if f.ApplyErr != nil {
		return nil, f.ApplyErr
	}
	if f.ApplyRelease != nil {
		<-f.ApplyRelease
	}
	return runner.NewApply(f.ApplyLines, f.ApplyResult), nil
}
