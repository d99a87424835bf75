package container

import (
	"context"
	"fmt"

	"ctsim/adapters/excel"
	"ctsim/adapters/metrics"
	"ctsim/adapters/rng"
	"ctsim/adapters/stats/survival"
	"ctsim/adapters/stats/ttest"
	"ctsim/app"
	"ctsim/internal"
	"ctsim/internal/api"
	"ctsim/internal/config"
	"ctsim/internal/simulation"
	"ctsim/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Metrics
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// Simulation components
	RNG          ports.RNGPort
	Simulator    *simulation.Simulator
	Orchestrator *simulation.Orchestrator
	Exporter     ports.BatchExporter

	// Application services
	SimulationService *app.SimulationService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	level, ok := internal.ParseLogLevel(cfg.Log.Level)
	if !ok {
		level = internal.LogLevelInfo
	}
	logger := internal.NewLogger(level)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		RNG:      rng.NewStreamAdapter(),
	}

	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewCollector(c.Registry)

	c.Simulator = simulation.NewSimulator(ttest.New(cfg.Simulation.Test), survival.NewKaplanMeier())
	c.Orchestrator = simulation.NewOrchestrator(c.Simulator, c.RNG,
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithObserver(c.Metrics),
		simulation.WithLogger(logger),
	)
	c.Exporter = excel.NewWriter(cfg.Simulation.Alpha, logger)

	c.SimulationService = app.NewSimulationService(c.Orchestrator, c.Simulator, c.Exporter, c.Metrics,
		app.ServiceConfig{
			MaxConcurrentBatches: cfg.Server.MaxConcurrentBatches,
			MaxTrials:            cfg.Simulation.MaxTrials,
		}, logger)

	logger.Debug("[Container] test=%s estimator=%s workers=%d", c.Simulator.TestName(), c.Simulator.EstimatorName(), c.Orchestrator.Workers())
	return c, nil
}

// Router builds the HTTP surface
func (c *Container) Router() *gin.Engine {
	gin.SetMode(c.Config.Server.GinMode)
	handler := api.NewSimulationHandler(c.SimulationService, c.Config.Simulation, c.Config.Server.RequestTimeout, c.Logger)
	return api.NewRouter(handler, c.Registry, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	c.Logger.Debug("[Container] shutdown")
	return nil
}
