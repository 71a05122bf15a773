package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tablecfg "github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/ingest"
	"github.com/farxc/cuipo/internal/logger"
	"github.com/farxc/cuipo/internal/pipeline"
	"github.com/farxc/cuipo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	ran      []int
	snapshot bool
	err      error
}

func (f *fakeRunner) Stages() []pipeline.Stage { return pipeline.Stages(tablecfg.Default()) }

func (f *fakeRunner) RunStage(_ context.Context, n int) (*pipeline.Result, error) {
	f.ran = append(f.ran, n)
	if f.err != nil {
		return nil, f.err
	}
	start := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	return &pipeline.Result{Stage: n, Name: "fund_source", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		Steps: store.StepCounts{{Step: "fuente", Rows: 2}, {Step: "fuente_cuipo", Rows: 2}}}, nil
}

func (f *fakeRunner) RunAll(_ context.Context, opts pipeline.RunOptions) ([]pipeline.Result, error) {
	f.snapshot = opts.Snapshot
	return []pipeline.Result{{Stage: 0, Name: "snapshot", Steps: store.StepCounts{{Step: "reload", Rows: 3}}}}, f.err
}

func (f *fakeRunner) LoadSnapshot(context.Context) (*pipeline.Result, error) {
	return &pipeline.Result{Stage: 0, Name: "snapshot", Steps: store.StepCounts{{Step: "reload", Rows: 3}}}, nil
}

type fakeIngester struct{ name, body string }

func (f *fakeIngester) Ingest(_ context.Context, filename string, r io.Reader) (*ingest.Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.name, f.body = filename, string(raw)
	return &ingest.Result{Table: "cpc", Inserted: 2, Columns: []string{"cpc", "codigo_clase_o_subclase"}}, nil
}

type fakeRuns struct{ limit int }

func (f *fakeRuns) Latest(_ context.Context, limit int) ([]store.Run, error) {
	f.limit = limit
	kind, msg := "precondition", "required table does not exist"
	return []store.Run{
		{ID: 2, Stage: 3, Name: "budget_line", Status: store.StatusFailure, ErrorKind: &kind, Error: &msg},
		{ID: 1, Stage: 1, Name: "fund_source", Status: store.StatusSuccess, Steps: store.StepCounts{{Step: "fuente", Rows: 2}, {Step: "fuente_cuipo", Rows: 1}}},
	}, nil
}

type harness struct {
	runner   *fakeRunner
	ingester *fakeIngester
	runs     *fakeRuns
	opened   int
	closed   int
}

func (h *harness) open(string) (*services, error) {
	h.opened++
	return &services{
		pipeline:  h.runner,
		ingester:  h.ingester,
		runs:      h.runs,
		appLogger: logger.New(logger.LevelError),
		close:     func() error { h.closed++; return nil },
	}, nil
}

func execute(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(h.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newHarness() *harness {
	return &harness{runner: &fakeRunner{}, ingester: &fakeIngester{}, runs: &fakeRuns{}}
}

func TestStageCommand(t *testing.T) {
	h := newHarness()

	out, err := execute(t, h, "stage", "1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, h.runner.ran)
	assert.Contains(t, out, "fuente_cuipo")
	assert.Contains(t, out, "1.5s")
	assert.Equal(t, 1, h.closed)

	_, err = execute(t, h, "stage", "one")
	assert.ErrorContains(t, err, "invalid stage number")
}

func TestStageCommandFailure(t *testing.T) {
	h := newHarness()
	h.runner.err = &pipeline.StageError{Stage: 5, Name: "functional_area", Kind: pipeline.KindDataShape, Err: errors.New("bad digit")}

	_, err := execute(t, h, "stage", "5", "--monitor")
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.KindDataShape, se.Kind)
	assert.Equal(t, 1, h.closed)
}

func TestRunCommand(t *testing.T) {
	h := newHarness()

	out, err := execute(t, h, "run", "--snapshot")
	require.NoError(t, err)
	assert.True(t, h.runner.snapshot)
	assert.Contains(t, out, "reload")

	h.runner.err = errors.New("stage 1 failed")
	out, err = execute(t, h, "run")
	assert.Error(t, err)
	assert.False(t, h.runner.snapshot)
	assert.Contains(t, out, "snapshot")
}

func TestSnapshotAndStagesCommands(t *testing.T) {
	h := newHarness()

	out, err := execute(t, h, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "reload")

	out, err = execute(t, h, "stages")
	require.NoError(t, err)
	assert.Contains(t, out, "sector_detail")
	assert.Contains(t, out, "[3 4 5]")
}

func TestIngestCommand(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "cpc.csv")
	require.NoError(t, os.WriteFile(path, []byte("cpc\n1\n2\n"), 0o600))

	out, err := execute(t, h, "ingest", path)
	require.NoError(t, err)
	assert.Equal(t, path, h.ingester.name)
	assert.Equal(t, "cpc\n1\n2\n", h.ingester.body)
	assert.Contains(t, out, "table cpc replaced: 2 rows, 2 columns")

	_, err = execute(t, h, "ingest", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = execute(t, h, "ingest")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	h := newHarness()

	out, err := execute(t, h, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, h.runs.limit)
	assert.Contains(t, out, "precondition: required table does not exist")
	assert.Contains(t, out, "3 rows")
}

func TestMonitorStops(t *testing.T) {
	m := NewMonitor()
	log := logger.New(logger.LevelError)
	m.update(log)
	m.Start(time.Hour, log)
	stats := m.Stop()
	assert.GreaterOrEqual(t, stats.PeakGoroutines, 1)
}
