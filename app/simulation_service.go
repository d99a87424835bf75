package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"ctsim/domain/core"
	"ctsim/domain/run"
	"ctsim/domain/trial"
	"ctsim/internal"
	apperrors "ctsim/internal/errors"
	"ctsim/internal/simulation"
	"ctsim/ports"

	"golang.org/x/sync/semaphore"
)

// CodeVersion is recorded in every run manifest
const CodeVersion = "v0.3.0"

// SimulationService runs simulation batches with admission control, run
// manifests and optional export.
type SimulationService struct {
	orchestrator *simulation.Orchestrator
	simulator    *simulation.Simulator
	exporter     ports.BatchExporter
	observer     ports.BatchObserver
	admission    *semaphore.Weighted
	maxTrials    int
	logger       *internal.Logger
}

// ServiceConfig holds the service's limits
type ServiceConfig struct {
	MaxConcurrentBatches int
	MaxTrials            int
}

// BatchRequest defines one batch of identical trials
type BatchRequest struct {
	NumTrials  int
	Config     trial.Config
	Seed       *int64 // nil draws a fresh seed
	Alpha      float64
	OutputPath string
}

// BatchReport is the outcome of a batch. On cancellation or infrastructure
// failure it carries the partial batch alongside the returned error.
type BatchReport struct {
	Manifest   *run.Manifest `json:"manifest"`
	Summary    trial.Summary `json:"summary"`
	Batch      *trial.Batch  `json:"batch,omitempty"`
	Duration   time.Duration `json:"-"`
	RuntimeMs  int64         `json:"runtime_ms"`
	ExportPath string        `json:"export_path,omitempty"`
}

// SweepRequest defines a power curve over sample sizes
type SweepRequest struct {
	NumTrials   int
	SampleSizes []int
	EffectSize  float64
	DropoutRate float64
	Seed        *int64
	Alpha       float64
}

// PowerPoint is the estimated power at one sample size
type PowerPoint struct {
	SampleSize          int             `json:"sample_size"`
	Seed                int64           `json:"seed"`
	EmpiricalPower      trial.Statistic `json:"empirical_power"`
	PowerAmongDefined   trial.Statistic `json:"power_among_defined"`
	UndefinedPValues    int             `json:"undefined_p_values"`
	MeanEffectiveSample trial.Statistic `json:"mean_effective_sample_size"`
	Fingerprint         core.Hash       `json:"fingerprint"`
}

// PowerCurve is empirical power as a function of per-arm sample size
type PowerCurve struct {
	NumTrials   int          `json:"num_trials"`
	EffectSize  float64      `json:"effect_size"`
	DropoutRate float64      `json:"dropout_rate"`
	Alpha       float64      `json:"alpha"`
	Seed        int64        `json:"seed"`
	Points      []PowerPoint `json:"points"`
}

// NewSimulationService creates a simulation service. exporter and observer may be nil.
func NewSimulationService(orchestrator *simulation.Orchestrator, simulator *simulation.Simulator, exporter ports.BatchExporter, observer ports.BatchObserver, cfg ServiceConfig, logger *internal.Logger) *SimulationService {
	if cfg.MaxConcurrentBatches < 1 {
		cfg.MaxConcurrentBatches = 1
	}
	if observer == nil {
		observer = ports.NoopObserver{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{
		orchestrator: orchestrator,
		simulator:    simulator,
		exporter:     exporter,
		observer:     observer,
		admission:    semaphore.NewWeighted(int64(cfg.MaxConcurrentBatches)),
		maxTrials:    cfg.MaxTrials,
		logger:       logger.With("component", "simulation_service"),
	}
}

// RunBatch validates the request, records a run manifest and executes the batch
func (s *SimulationService) RunBatch(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	if err := trial.ValidateTrialCount(req.NumTrials, s.maxTrials); err != nil {
		return nil, err
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	alpha, err := resolveAlpha(req.Alpha)
	if err != nil {
		return nil, err
	}

	if !s.admission.TryAcquire(1) {
		return nil, apperrors.CapacityExhausted("too many simulation batches in flight", nil)
	}
	defer s.admission.Release(1)

	seed := resolveSeed(req.Seed)
	manifest := run.NewManifest(core.NewRunID(), req.Config, req.NumTrials, seed,
		min(s.orchestrator.Workers(), max(req.NumTrials, 1)),
		s.simulator.TestName(), s.simulator.EstimatorName(), CodeVersion)

	s.logger.Info("[SimulationService] run %s: %d trials (n=%d, effect=%g, dropout=%g, seed=%d)",
		manifest.RunID, req.NumTrials, req.Config.SampleSize, req.Config.EffectSize, req.Config.DropoutRate, seed)

	start := time.Now()
	batch, runErr := s.orchestrator.RunBatch(ctx, req.NumTrials, req.Config, seed)
	duration := time.Since(start)

	report := &BatchReport{
		Manifest:  manifest,
		Batch:     batch,
		Duration:  duration,
		RuntimeMs: duration.Milliseconds(),
	}
	if batch != nil {
		report.Summary = trial.Summarize(batch, alpha)
	}
	s.observer.BatchFinished(report.Summary, duration, runErr)

	if runErr != nil {
		var batchErr *simulation.BatchError
		if errors.As(runErr, &batchErr) {
			s.logger.Warn("[SimulationService] run %s stopped: %d/%d trials completed",
				manifest.RunID, batchErr.Completed, batchErr.Requested)
			return report, runErr
		}
		return nil, runErr
	}

	s.logger.Info("[SimulationService] run %s finished in %v: power=%.3f undefined=%d",
		manifest.RunID, duration, report.Summary.EmpiricalPower.Float(), report.Summary.UndefinedPValues)

	if req.OutputPath != "" && s.exporter != nil {
		if err := s.exporter.Export(ctx, manifest, batch, req.OutputPath); err != nil {
			return report, apperrors.ExportFailed(req.OutputPath, err)
		}
		report.ExportPath = req.OutputPath
		s.logger.Info("[SimulationService] run %s exported to %s", manifest.RunID, req.OutputPath)
	}

	return report, nil
}

// PowerSweep estimates power at each sample size. Point i uses seed+i so the
// whole curve replays from one seed.
func (s *SimulationService) PowerSweep(ctx context.Context, req SweepRequest) (*PowerCurve, error) {
	if len(req.SampleSizes) == 0 {
		return nil, core.NewValidationError(core.ErrSampleSize, "sample_sizes", "must not be empty")
	}
	for _, n := range req.SampleSizes {
		if n <= 0 {
			return nil, core.NewValidationError(core.ErrSampleSize, "sample_sizes", fmt.Sprintf("contains non-positive size %d", n))
		}
	}
	alpha, err := resolveAlpha(req.Alpha)
	if err != nil {
		return nil, err
	}

	seed := resolveSeed(req.Seed)
	curve := &PowerCurve{
		NumTrials:   req.NumTrials,
		EffectSize:  req.EffectSize,
		DropoutRate: req.DropoutRate,
		Alpha:       alpha,
		Seed:        seed,
		Points:      make([]PowerPoint, 0, len(req.SampleSizes)),
	}

	for i, n := range req.SampleSizes {
		pointSeed := seed + int64(i)
		report, err := s.RunBatch(ctx, BatchRequest{
			NumTrials: req.NumTrials,
			Config: trial.Config{
				SampleSize:  n,
				EffectSize:  req.EffectSize,
				DropoutRate: req.DropoutRate,
			},
			Seed:  &pointSeed,
			Alpha: alpha,
		})
		if err != nil {
			return curve, fmt.Errorf("power sweep at sample size %d: %w", n, err)
		}
		curve.Points = append(curve.Points, PowerPoint{
			SampleSize:          n,
			Seed:                pointSeed,
			EmpiricalPower:      report.Summary.EmpiricalPower,
			PowerAmongDefined:   report.Summary.PowerAmongDefined,
			UndefinedPValues:    report.Summary.UndefinedPValues,
			MeanEffectiveSample: report.Summary.MeanEffectiveSample,
			Fingerprint:         report.Manifest.Fingerprint,
		})
	}

	return curve, nil
}

func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return rand.Int64()
}

func resolveAlpha(alpha float64) (float64, error) {
	if alpha == 0 {
		return trial.DefaultAlpha, nil
	}
	if !(alpha > 0 && alpha < 1) {
		return 0, core.NewValidationError(core.ErrInvalidConfig, "alpha", "must be in (0, 1)")
	}
	return alpha, nil
}
