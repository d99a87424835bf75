package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ctsim/adapters/metrics"
	"ctsim/adapters/rng"
	"ctsim/adapters/stats/survival"
	"ctsim/adapters/stats/ttest"
	"ctsim/app"
	"ctsim/internal"
	"ctsim/internal/config"
	apperrors "ctsim/internal/errors"
	"ctsim/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := internal.Discard()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sim := simulation.NewSimulator(ttest.NewStudentTest(), survival.NewKaplanMeier())
	orch := simulation.NewOrchestrator(sim, rng.NewStreamAdapter(),
		simulation.WithWorkers(2), simulation.WithObserver(collector), simulation.WithLogger(logger))
	svc := app.NewSimulationService(orch, sim, nil, collector, app.ServiceConfig{MaxConcurrentBatches: 2, MaxTrials: 10_000}, logger)

	defaults := config.SimulationConfig{
		NumTrials:   100,
		SampleSize:  50,
		EffectSize:  0.5,
		DropoutRate: 0.1,
		Alpha:       0.05,
		Test:        "student",
	}
	return NewRouter(NewSimulationHandler(svc, defaults, time.Minute, logger), registry, logger)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealth(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRunBatch_Summary(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodPost, "/api/v1/simulations", `{"num_trials": 20, "seed": 7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, 20.0, summary["trials"])
	manifest := body["manifest"].(map[string]interface{})
	assert.Equal(t, 7.0, manifest["seed"])
	assert.Equal(t, "student_t", manifest["test"])
	assert.NotContains(t, body, "batch")
}

func TestRunBatch_IncludeResults(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodPost, "/api/v1/simulations",
		`{"num_trials": 15, "sample_size": 20, "dropout_rate": 0, "seed": 3, "include_results": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	batch := body["batch"].(map[string]interface{})
	results := batch["results"].([]interface{})
	require.Len(t, results, 15)
	for i, raw := range results {
		row := raw.(map[string]interface{})
		assert.Equal(t, float64(i), row["trial"])
		assert.Equal(t, 20.0, row["effective_sample_size"])
		assert.Contains(t, row, "p_value")
		assert.Contains(t, row, "survival_curve")
	}
}

func TestRunBatch_Errors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"negative trials", `{"num_trials": -1}`, http.StatusBadRequest, apperrors.CodeConfigInvalid},
		{"dropout of one", `{"num_trials": 5, "dropout_rate": 1}`, http.StatusBadRequest, apperrors.CodeConfigInvalid},
		{"zero sample size", `{"num_trials": 5, "sample_size": 0}`, http.StatusBadRequest, apperrors.CodeConfigInvalid},
		{"above trial limit", `{"num_trials": 10001}`, http.StatusBadRequest, apperrors.CodeConfigInvalid},
		{"malformed json", `{"num_trials": `, http.StatusBadRequest, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, router, http.MethodPost, "/api/v1/simulations", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestRunBatch_MalformedJSONMessage(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodPost, "/api/v1/simulations", `{"num_trials": `)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, body["code"])
	assert.Equal(t, io.ErrUnexpectedEOF.Error(), body["error"])
}

func TestPowerSweep(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodPost, "/api/v1/simulations/power",
		`{"num_trials": 50, "sample_sizes": [10, 40], "seed": 11}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	points := body["points"].([]interface{})
	require.Len(t, points, 2)
	assert.Equal(t, 10.0, points[0].(map[string]interface{})["sample_size"])
	assert.Equal(t, 12.0, points[1].(map[string]interface{})["seed"])
}

func TestPowerSweep_RequiresSampleSizes(t *testing.T) {
	w, body := doJSON(t, newTestRouter(t), http.MethodPost, "/api/v1/simulations/power", `{"num_trials": 50}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, body["code"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/simulations", `{"num_trials": 10, "seed": 1}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ctsim_trials_total 10")
	assert.Contains(t, rec.Body.String(), `ctsim_batches_total{outcome="completed"} 1`)
}
