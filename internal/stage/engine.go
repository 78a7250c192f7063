package stage

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// Engine runs pipeline stages strictly in order, recording each outcome in
// the run ledger. The chain stops at the first failure: every stage after a
// failed one reads the failed stage's output, so running it would rebuild
// from stale or missing tables.
type Engine struct {
	st     *store.Store
	runlog *RunLog
	stages []Stage
}

// RunOpts restricts which stages run.
type RunOpts struct {
	Only string // run exactly this stage
	From string // run this stage and everything after it
}

// NewEngine creates an engine over the given stage chain.
func NewEngine(st *store.Store, stages []Stage) *Engine {
	return &Engine{st: st, runlog: NewRunLog(st), stages: stages}
}

// Select returns the sub-chain the options call for.
func (e *Engine) Select(opts RunOpts) ([]Stage, error) {
	if opts.Only != "" && opts.From != "" {
		return nil, eris.New("engine: --stage and --from are mutually exclusive")
	}
	if opts.Only == "" && opts.From == "" {
		return e.stages, nil
	}

	name := opts.Only
	if name == "" {
		name = opts.From
	}
	for i, s := range e.stages {
		if s.Name() == name {
			if opts.Only != "" {
				return e.stages[i : i+1], nil
			}
			return e.stages[i:], nil
		}
	}
	return nil, eris.Errorf("engine: unknown stage %q", name)
}

// Run executes the selected stages sequentially. Each stage's row count is
// logged and persisted; a stage failure aborts the run and leaves the
// ledger entry marked failed.
func (e *Engine) Run(ctx context.Context, opts RunOpts) error {
	log := zap.L().With(zap.String("component", "pipeline.engine"))

	stages, err := e.Select(opts)
	if err != nil {
		return err
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "engine: cancelled")
		}

		stLog := log.With(zap.String("stage", s.Name()), zap.String("table", s.Table()))
		stLog.Info("rebuilding")

		runID, err := e.runlog.Start(ctx, s.Name())
		if err != nil {
			return err
		}

		start := time.Now()
		rows, err := s.Build(ctx, e.st)
		elapsed := time.Since(start)

		if err != nil {
			stLog.Error("stage failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			if logErr := e.runlog.Fail(ctx, runID, err.Error()); logErr != nil {
				stLog.Error("failed to record stage failure", zap.Error(logErr))
			}
			return eris.Wrapf(err, "engine: stage %s", s.Name())
		}

		if err := e.runlog.Complete(ctx, runID, rows); err != nil {
			stLog.Error("failed to record stage completion", zap.Error(err))
		}

		stLog.Info("stage complete", zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	}

	return nil
}
