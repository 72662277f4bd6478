package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script into dir and returns its path.
func fakeBinary(t *testing.T, dir, script string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExecRunner_Plan_Success(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo '{"type":"change_summary","changes":{"add":2,"change":0,"remove":1}}'`)
	execRunner := NewExecRunner(binary, 5*time.Second, 5*time.Second, testLogger())

	output, err := execRunner.Plan(context.Background(), dir)

	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Equal(t, 2, output.ToAdd)
	assert.Equal(t, 1, output.ToDestroy)
}

func TestExecRunner_Plan_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo '{"type":"diagnostic","diagnostic":{"severity":"error","summary":"bad config"}}'
exit 1`)
	execRunner := NewExecRunner(binary, 5*time.Second, 5*time.Second, testLogger())

	output, err := execRunner.Plan(context.Background(), dir)

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Equal(t, KindValidation, output.Kind)
	require.Len(t, output.Errors, 1)
	assert.Equal(t, "bad config", output.Errors[0])
}

func TestExecRunner_Plan_Timeout(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `sleep 10`)
	execRunner := NewExecRunner(binary, 100*time.Millisecond, 5*time.Second, testLogger())

	start := time.Now()
	output, err := execRunner.Plan(context.Background(), dir)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, output.Success)
	assert.Equal(t, KindTimeout, output.Kind)
}

func TestExecRunner_Plan_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	execRunner := NewExecRunner(filepath.Join(dir, "does-not-exist"), time.Second, time.Second, testLogger())

	_, err := execRunner.Plan(context.Background(), dir)

	assert.Error(t, err)
}

func TestExecRunner_Apply_StreamsLinesAndSucceeds(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo 'line one'
echo 'line two'`)
	execRunner := NewExecRunner(binary, 5*time.Second, 5*time.Second, testLogger())

	apply, err := execRunner.Apply(context.Background(), dir)
	require.NoError(t, err)

	var lines []string
	for line := range apply.Lines() {
		lines = append(lines, line)
	}
	result := apply.Wait()

	assert.Equal(t, []string{"line one", "line two"}, lines)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.RawOutput, "line one")
}

func TestExecRunner_Apply_Failure(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo 'partial progress'
exit 3`)
	execRunner := NewExecRunner(binary, 5*time.Second, 5*time.Second, testLogger())

	apply, err := execRunner.Apply(context.Background(), dir)
	require.NoError(t, err)

	for range apply.Lines() {
	}
	result := apply.Wait()

	assert.False(t, result.Success)
	assert.Equal(t, KindApply, result.Kind)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.RawOutput, "partial progress")
}

func TestExecRunner_Apply_OversizedLine(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo 'before'
head -c 2097152 /dev/zero | tr '\0' 'a'
echo`)
	execRunner := NewExecRunner(binary, 5*time.Second, 5*time.Second, testLogger())

	apply, err := execRunner.Apply(context.Background(), dir)
	require.NoError(t, err)

	var lines []string
	for line := range apply.Lines() {
		lines = append(lines, line)
	}
	result := apply.Wait()

	assert.Equal(t, []string{"before"}, lines)
	assert.False(t, result.Success)
	assert.Equal(t, KindApply, result.Kind)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "output stream truncated")
}

func TestExecRunner_Apply_Timeout(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `echo 'started'
sleep 10`)
	execRunner := NewExecRunner(binary, 5*time.Second, 200*time.Millisecond, testLogger())

	apply, err := execRunner.Apply(context.Background(), dir)
	require.NoError(t, err)

	for range apply.Lines() {
	}
	result := apply.Wait()

	assert.False(t, result.Success)
	assert.Equal(t, KindTimeout, result.Kind)
}
