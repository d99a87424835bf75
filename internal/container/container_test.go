package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ctsim/app"
	"ctsim/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{
			NumTrials: 20, SampleSize: 20, EffectSize: 0.5, DropoutRate: 0.1,
			Workers: 2, Alpha: 0.05, Test: "welch", MaxTrials: 1000,
		},
		Server: config.ServerConfig{
			Port: "8080", GinMode: "test", MaxConcurrentBatches: 1, RequestTimeout: time.Minute,
		},
		Log: config.LogConfig{Level: "ERROR"},
	}
}

func TestNew_WiresSimulation(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	assert.Equal(t, "welch_t", c.Simulator.TestName())
	assert.Equal(t, 2, c.Orchestrator.Workers())

	seed := int64(5)
	report, err := c.SimulationService.RunBatch(context.Background(), app.BatchRequest{
		NumTrials: 20,
		Config:    c.Config.Simulation.TrialConfig(),
		Seed:      &seed,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, report.Batch.Len())
	assert.Equal(t, "welch_t", report.Manifest.Test)
}

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestRouter_ServesHealthAndMetrics(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	router := c.Router()

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
