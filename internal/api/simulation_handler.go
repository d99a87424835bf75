package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ctsim/app"
	"ctsim/internal"
	"ctsim/internal/config"
	apperrors "ctsim/internal/errors"
	"ctsim/internal/simulation"

	"github.com/gin-gonic/gin"
)

// SimulationHandler serves batch and power-curve requests
type SimulationHandler struct {
	service  *app.SimulationService
	defaults config.SimulationConfig
	timeout  time.Duration
	logger   *internal.Logger
}

// NewSimulationHandler creates a handler. Fields omitted from a request fall
// back to defaults.
func NewSimulationHandler(service *app.SimulationService, defaults config.SimulationConfig, timeout time.Duration, logger *internal.Logger) *SimulationHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationHandler{
		service:  service,
		defaults: defaults,
		timeout:  timeout,
		logger:   logger,
	}
}

// SimulationRequest is the body of POST /api/v1/simulations
type SimulationRequest struct {
	NumTrials      *int     `json:"num_trials"`
	SampleSize     *int     `json:"sample_size"`
	EffectSize     *float64 `json:"effect_size"`
	DropoutRate    *float64 `json:"dropout_rate"`
	Seed           *int64   `json:"seed"`
	Alpha          float64  `json:"alpha"`
	IncludeResults bool     `json:"include_results"`
}

// PowerRequest is the body of POST /api/v1/simulations/power
type PowerRequest struct {
	NumTrials   *int     `json:"num_trials"`
	SampleSizes []int    `json:"sample_sizes" binding:"required,min=1"`
	EffectSize  *float64 `json:"effect_size"`
	DropoutRate *float64 `json:"dropout_rate"`
	Seed        *int64   `json:"seed"`
	Alpha       float64  `json:"alpha"`
}

// HandleRunBatch runs one batch and returns its manifest and summary
func (h *SimulationHandler) HandleRunBatch(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.WithCode(apperrors.CodeInvalidInput, err))
		return
	}

	batchReq := app.BatchRequest{
		NumTrials: intOr(req.NumTrials, h.defaults.NumTrials),
		Config:    h.defaults.TrialConfig(),
		Seed:      req.Seed,
		Alpha:     req.Alpha,
	}
	batchReq.Config.SampleSize = intOr(req.SampleSize, batchReq.Config.SampleSize)
	batchReq.Config.EffectSize = floatOr(req.EffectSize, batchReq.Config.EffectSize)
	batchReq.Config.DropoutRate = floatOr(req.DropoutRate, batchReq.Config.DropoutRate)
	if batchReq.Seed == nil {
		batchReq.Seed = h.defaults.SeedPtr()
	}
	if batchReq.Alpha == 0 {
		batchReq.Alpha = h.defaults.Alpha
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.service.RunBatch(ctx, batchReq)
	if err != nil {
		h.logger.Warn("[SimulationHandler] batch failed: %v", err)
		writeBatchError(c, err)
		return
	}

	if !req.IncludeResults {
		trimmed := *report
		trimmed.Batch = nil
		report = &trimmed
	}
	c.JSON(http.StatusOK, report)
}

// HandlePowerSweep estimates power over a list of sample sizes
func (h *SimulationHandler) HandlePowerSweep(c *gin.Context) {
	var req PowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.WithCode(apperrors.CodeInvalidInput, err))
		return
	}

	sweepReq := app.SweepRequest{
		NumTrials:   intOr(req.NumTrials, h.defaults.NumTrials),
		SampleSizes: req.SampleSizes,
		EffectSize:  floatOr(req.EffectSize, h.defaults.EffectSize),
		DropoutRate: floatOr(req.DropoutRate, h.defaults.DropoutRate),
		Seed:        req.Seed,
		Alpha:       req.Alpha,
	}
	if sweepReq.Seed == nil {
		sweepReq.Seed = h.defaults.SeedPtr()
	}
	if sweepReq.Alpha == 0 {
		sweepReq.Alpha = h.defaults.Alpha
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	curve, err := h.service.PowerSweep(ctx, sweepReq)
	if err != nil {
		h.logger.Warn("[SimulationHandler] power sweep failed: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, curve)
}

func (h *SimulationHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

// writeBatchError reports how far a stopped batch got
func writeBatchError(c *gin.Context, err error) {
	var batchErr *simulation.BatchError
	if !errors.As(err, &batchErr) {
		writeError(c, err)
		return
	}
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error":     err.Error(),
		"code":      apperrors.GetCode(err),
		"requested": batchErr.Requested,
		"completed": batchErr.Completed,
	})
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
