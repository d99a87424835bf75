package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"ctsim/domain/core"
	"ctsim/domain/trial"
	"ctsim/internal"
	"ctsim/ports"

	"golang.org/x/sync/errgroup"
)

// BatchError reports a batch that stopped before every trial ran. The batch
// returned alongside it holds the Completed results in trial order.
type BatchError struct {
	Requested int
	Completed int
	Cause     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch stopped after %d of %d trials: %v", e.Completed, e.Requested, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

// Orchestrator fans a batch of identical trials out over a fixed-size
// worker pool fed from a task queue of trial indices.
type Orchestrator struct {
	runner   TrialRunner
	rng      ports.RNGPort
	workers  int
	observer ports.BatchObserver
	logger   *internal.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithWorkers sets the pool size. Values below 1 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithObserver registers a progress observer
func WithObserver(observer ports.BatchObserver) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *internal.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator for the given trial runner
func NewOrchestrator(runner TrialRunner, rng ports.RNGPort, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		rng:      rng,
		workers:  runtime.GOMAXPROCS(0),
		observer: ports.NoopObserver{},
		logger:   internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Workers returns the configured pool size
func (o *Orchestrator) Workers() int {
	return o.workers
}

// RunBatch simulates numTrials independent trials of cfg. Trial i draws from
// the stream (seed, i), so the batch is reproducible for a given seed and
// independent of the pool size.
//
// Invalid input is rejected before any work starts. On cancellation or a
// worker fault RunBatch returns the completed results together with a
// *BatchError; otherwise the batch has exactly numTrials results.
func (o *Orchestrator) RunBatch(ctx context.Context, numTrials int, cfg trial.Config, seed int64) (*trial.Batch, error) {
	if err := trial.ValidateTrialCount(numTrials, 0); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	batch := trial.NewBatch(cfg, numTrials)
	if numTrials == 0 {
		return batch, nil
	}
	if err := ctx.Err(); err != nil {
		return batch, &BatchError{Requested: numTrials, Cause: fmt.Errorf("%w: %w", core.ErrBatchCancelled, err)}
	}

	workers := min(o.workers, numTrials)
	o.logger.Debug("[Orchestrator] starting %d trials on %d workers (seed %d)", numTrials, workers, seed)
	start := time.Now()

	results := make([]trial.Result, numTrials)
	done := make([]bool, numTrials)
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int, workers)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < numTrials; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := o.runTrial(gctx, cfg, seed, idx)
				if err != nil {
					return err
				}
				results[idx] = res
				done[idx] = true
				completed.Add(1)
				o.observer.TrialCompleted(res)
			}
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)

	if err == nil {
		batch.Results = results
		o.logger.Debug("[Orchestrator] finished %d trials in %v", numTrials, elapsed)
		return batch, nil
	}

	for i, ok := range done {
		if ok {
			batch.Results = append(batch.Results, results[i])
		}
	}

	cause := err
	if !core.IsInfrastructureError(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = fmt.Errorf("%w: %w", core.ErrBatchCancelled, ctxErr)
		} else {
			cause = core.NewInfrastructureError("worker pool", err)
		}
	}

	batchErr := &BatchError{Requested: numTrials, Completed: int(completed.Load()), Cause: cause}
	if core.IsCancelledError(cause) {
		o.logger.Warn("[Orchestrator] %v", batchErr)
	} else {
		o.logger.Error("[Orchestrator] %v", batchErr)
	}
	return batch, batchErr
}

// runTrial runs one trial on its own stream. A panic inside the runner is
// an infrastructure fault, not a statistical one.
func (o *Orchestrator) runTrial(ctx context.Context, cfg trial.Config, seed int64, idx int) (res trial.Result, err error) {
	stream, err := o.rng.TrialStream(ctx, seed, idx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return trial.Result{}, ctxErr
		}
		return trial.Result{}, core.NewInfrastructureError(fmt.Sprintf("random stream for trial %d", idx), err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = core.NewInfrastructureError(fmt.Sprintf("trial %d", idx), fmt.Errorf("panic: %v", r))
		}
	}()

	res = o.runner.Simulate(cfg, stream)
	res.Index = idx
	o.logger.Trace("[Orchestrator] trial %d: p=%.4g n=%d", idx, res.PValue, res.EffectiveSampleSize)
	return res, nil
}
