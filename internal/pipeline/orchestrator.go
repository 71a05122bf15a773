package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/farxc/cuipo/internal/logger"
	"github.com/farxc/cuipo/internal/store"
	"github.com/google/uuid"
)

// lockKey identifies the pipeline's advisory lock.
const lockKey int64 = 0x43554950

const snapshotName = "snapshot"

// Result reports one committed stage or snapshot load.
type Result struct {
	RunID      int64            `json:"run_id"`
	BatchID    string           `json:"batch_id,omitempty"`
	Stage      int              `json:"stage"`
	Name       string           `json:"name"`
	Steps      store.StepCounts `json:"steps"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

type RunOptions struct {
	// Snapshot reloads the working table before stage 1.
	Snapshot bool
}

// Orchestrator runs stages one at a time, in dependency order, each inside its
// own transaction.
type Orchestrator struct {
	storage   *store.Storage
	appLogger *logger.Logger
	catalog   config.Catalog
	metrics   *Metrics
	now       func() time.Time

	stages map[int]Stage
	order  []int

	mu sync.Mutex
}

func NewOrchestrator(storage *store.Storage, appLogger *logger.Logger, catalog config.Catalog, metrics *Metrics) (*Orchestrator, error) {
	return newOrchestrator(storage, appLogger, catalog, metrics, Stages(catalog))
}

func newOrchestrator(storage *store.Storage, appLogger *logger.Logger, catalog config.Catalog, metrics *Metrics, stages []Stage) (*Orchestrator, error) {
	order, err := topoSort(stages)
	if err != nil {
		return nil, err
	}
	if err := checkReadSets(stages); err != nil {
		return nil, err
	}

	byNumber := make(map[int]Stage, len(stages))
	for _, s := range stages {
		byNumber[s.Number] = s
	}
	return &Orchestrator{
		storage:   storage,
		appLogger: appLogger,
		catalog:   catalog,
		metrics:   metrics,
		now:       time.Now,
		stages:    byNumber,
		order:     order,
	}, nil
}

// Stages returns the stages in execution order.
func (o *Orchestrator) Stages() []Stage {
	out := make([]Stage, len(o.order))
	for i, n := range o.order {
		out[i] = o.stages[n]
	}
	return out
}

// topoSort orders stages so that every stage follows its dependencies. Ties go to
// the lower stage number.
func topoSort(stages []Stage) ([]int, error) {
	indegree := map[int]int{}
	dependents := map[int][]int{}
	for _, s := range stages {
		if _, dup := indegree[s.Number]; dup {
			return nil, fmt.Errorf("%w: stage %d declared twice", ErrInvalidGraph, s.Number)
		}
		indegree[s.Number] = 0
	}
	for _, s := range stages {
		for _, d := range s.DependsOn {
			if _, ok := indegree[d]; !ok {
				return nil, fmt.Errorf("%w: stage %d depends on unknown stage %d", ErrInvalidGraph, s.Number, d)
			}
			indegree[s.Number]++
			dependents[d] = append(dependents[d], s.Number)
		}
	}

	var ready, order []int
	for n, deg := range indegree {
		if deg == 0 {
			ready = append(ready, n)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, m := range dependents[n] {
			indegree[m]--
			if indegree[m] == 0 {
				ready = append(ready, m)
			}
		}
	}

	if len(order) != len(stages) {
		return nil, fmt.Errorf("%w: dependency cycle", ErrInvalidGraph)
	}
	return order, nil
}

// checkReadSets verifies that every column a stage reads from another stage is
// produced by one of its transitive dependencies.
func checkReadSets(stages []Stage) error {
	owner := map[string]int{}
	byNumber := map[int]Stage{}
	for _, s := range stages {
		byNumber[s.Number] = s
		for _, c := range s.Writes() {
			owner[c] = s.Number
		}
	}

	var ancestors func(n int, seen map[int]bool)
	ancestors = func(n int, seen map[int]bool) {
		for _, d := range byNumber[n].DependsOn {
			if !seen[d] {
				seen[d] = true
				ancestors(d, seen)
			}
		}
	}

	for _, s := range stages {
		deps := map[int]bool{}
		ancestors(s.Number, deps)
		for _, c := range s.Reads {
			w, ok := owner[c]
			if !ok || w == s.Number {
				continue
			}
			if !deps[w] {
				return fmt.Errorf("%w: stage %d reads %s written by stage %d, which it does not depend on", ErrInvalidGraph, s.Number, c, w)
			}
		}
	}
	return nil
}

// RunStage executes one stage.
func (o *Orchestrator) RunStage(ctx context.Context, number int) (*Result, error) {
	st, ok := o.stages[number]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, number)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runStage(ctx, st, "")
}

// RunAll executes every stage in dependency order under one batch id, optionally
// reloading the snapshot first. It stops at the first failure and returns the
// stages that committed before it.
func (o *Orchestrator) RunAll(ctx context.Context, opts RunOptions) ([]Result, error) {
	const component = "Orchestrator-RunAll"
	batch := uuid.NewString()

	o.mu.Lock()
	defer o.mu.Unlock()

	o.appLogger.Info(component, "Starting batch: batch=%s snapshot=%t stages=%v", batch, opts.Snapshot, o.order)

	var results []Result
	if opts.Snapshot {
		res, err := o.loadSnapshot(ctx, batch)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}

	for _, n := range o.order {
		res, err := o.runStage(ctx, o.stages[n], batch)
		if err != nil {
			o.appLogger.Error(component, "Batch stopped: batch=%s stage=%d", batch, n)
			return results, err
		}
		results = append(results, *res)
	}

	o.appLogger.Info(component, "Batch complete: batch=%s", batch)
	return results, nil
}

// LoadSnapshot replaces the working table with the snapshot source. Every stage
// has to run again afterwards.
func (o *Orchestrator) LoadSnapshot(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loadSnapshot(ctx, "")
}

func (o *Orchestrator) loadSnapshot(ctx context.Context, batch string) (*Result, error) {
	return o.execute(ctx, store.SnapshotStage, snapshotName, batch, func(tx store.PipelineTx) (store.StepCounts, error) {
		if err := o.requireTables(ctx, store.SnapshotStage, snapshotName, tx, []string{o.catalog.WorkingTable, o.catalog.SnapshotTable}); err != nil {
			return nil, err
		}
		n, err := tx.ReloadWorking(ctx)
		if err != nil {
			return nil, err
		}
		return store.StepCounts{{Step: "reload", Rows: n}}, nil
	})
}

func (o *Orchestrator) runStage(ctx context.Context, st Stage, batch string) (*Result, error) {
	return o.execute(ctx, st.Number, st.Name, batch, func(tx store.PipelineTx) (store.StepCounts, error) {
		if err := o.checkDependencies(ctx, st, tx); err != nil {
			return nil, err
		}
		if err := o.requireTables(ctx, st.Number, st.Name, tx, st.RequiredTables(o.catalog)); err != nil {
			return nil, err
		}
		return o.apply(ctx, st, tx)
	})
}

// execute wraps work in a locked transaction, records the outcome in the ledger
// and the metrics, and converts failures into a StageError.
func (o *Orchestrator) execute(ctx context.Context, number int, name, batch string, work func(store.PipelineTx) (store.StepCounts, error)) (*Result, error) {
	const component = "Orchestrator-Stage"
	started := o.now()
	o.appLogger.Info(component, "Stage starting: stage=%d name=%s", number, name)

	run := &store.Run{Stage: number, Name: name, StartedAt: started}
	if batch != "" {
		run.BatchID = &batch
	}

	steps, err := o.commit(ctx, run, work)
	run.FinishedAt = o.now()
	elapsed := run.FinishedAt.Sub(started)

	if err != nil {
		serr := classify(number, name, err)
		o.metrics.observe(number, store.StatusFailure, elapsed, nil)

		kind, msg := string(serr.Kind), serr.Err.Error()
		run.Status, run.Steps, run.ErrorKind, run.Error = store.StatusFailure, steps, &kind, &msg
		// ctx may be the reason the stage failed; the failure is still recorded.
		if rerr := o.storage.Runs.Insert(context.WithoutCancel(ctx), run); rerr != nil {
			o.appLogger.Warn(component, "Failed to record failure: stage=%d err=%v", number, rerr)
		}
		o.appLogger.Error(component, "Stage failed: stage=%d name=%s kind=%s err=%v", number, name, serr.Kind, serr.Err)
		return nil, serr
	}

	o.metrics.observe(number, store.StatusSuccess, elapsed, steps)
	o.appLogger.Info(component, "Stage committed: stage=%d name=%s steps=%v elapsed=%s", number, name, steps, elapsed)

	return &Result{
		RunID:      run.ID,
		BatchID:    batch,
		Stage:      number,
		Name:       name,
		Steps:      steps,
		StartedAt:  started,
		FinishedAt: run.FinishedAt,
	}, nil
}

// commit runs work in a transaction holding the pipeline lock and records the
// successful run inside that same transaction.
func (o *Orchestrator) commit(ctx context.Context, run *store.Run, work func(store.PipelineTx) (store.StepCounts, error)) (store.StepCounts, error) {
	tx, err := o.storage.Pipeline.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.Lock(ctx, lockKey); err != nil {
		return nil, err
	}

	steps, err := work(tx)
	if err != nil {
		return nil, err
	}

	run.Status = store.StatusSuccess
	run.Steps = steps
	run.FinishedAt = o.now()
	if err := tx.RecordRun(ctx, run); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return steps, nil
}

func (o *Orchestrator) checkDependencies(ctx context.Context, st Stage, tx store.PipelineTx) error {
	if len(st.DependsOn) == 0 {
		return nil
	}
	snapshot, err := tx.LastSuccess(ctx, store.SnapshotStage)
	if err != nil {
		return err
	}
	for _, d := range st.DependsOn {
		last, err := tx.LastSuccess(ctx, d)
		if err != nil {
			return err
		}
		if last == 0 || last < snapshot {
			return &StageError{
				Stage: st.Number,
				Name:  st.Name,
				Kind:  KindDependency,
				Err:   fmt.Errorf("%w: stage %d", ErrDependency, d),
			}
		}
	}
	return nil
}

func (o *Orchestrator) requireTables(ctx context.Context, number int, name string, tx store.PipelineTx, tables []string) error {
	for _, t := range tables {
		ok, err := tx.TableExists(ctx, t)
		if err != nil {
			return err
		}
		if !ok {
			return &StageError{
				Stage: number,
				Name:  name,
				Kind:  KindPrecondition,
				Table: o.catalog.Schema + "." + t,
				Err:   ErrMissingTable,
			}
		}
	}
	return nil
}

// apply runs copy-forward and every pass of st against the working table.
func (o *Orchestrator) apply(ctx context.Context, st Stage, tx store.PipelineTx) (store.StepCounts, error) {
	var steps store.StepCounts

	if len(st.CopyForward) > 0 {
		n, err := tx.CopyForward(ctx, st.CopyForward)
		if err != nil {
			return nil, err
		}
		steps = append(steps, store.StepCount{Step: "copy_forward", Rows: n})
	}

	refs := Refs{}
	for _, name := range sortedKeys(st.References) {
		entries, err := tx.LoadReference(ctx, st.References[name])
		if err != nil {
			return nil, err
		}
		refs[name] = cuipo.NewLookup(entries)
	}

	rows, err := tx.LoadRows(ctx, st.columns())
	if err != nil {
		return nil, err
	}

	for _, pass := range st.Passes {
		updates, err := computePass(pass, rows, refs)
		if err != nil {
			return nil, err
		}
		n, err := tx.ApplyUpdates(ctx, pass.Writes, updates)
		if err != nil {
			return nil, err
		}
		steps = append(steps, store.StepCount{Step: pass.Name, Rows: n})
	}
	return steps, nil
}

// computePass evaluates pass over the eligible rows and writes the results back
// into rows for the passes that follow.
func computePass(pass Pass, rows []store.Row, refs Refs) ([]store.RowUpdate, error) {
	updates := make([]store.RowUpdate, 0, len(rows))
	for i := range rows {
		if pass.Eligible != nil && !pass.Eligible(rows[i]) {
			continue
		}
		values, err := pass.Compute(rows[i], refs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rows[i].ID, err)
		}
		if len(values) != len(pass.Writes) {
			return nil, errors.New("pass " + pass.Name + " returned a wrong number of values")
		}
		for j, c := range pass.Writes {
			rows[i].Values[c.Name] = values[j]
		}
		updates = append(updates, store.RowUpdate{ID: rows[i].ID, Values: values})
	}
	return updates, nil
}
