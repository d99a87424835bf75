package run

import (
	"fmt"

	"ctsim/domain/core"
	"ctsim/domain/trial"
)

// Manifest records everything needed to replay a simulation batch
// bit-for-bit: the same config, trial count, seed and test produce the same
// results regardless of worker count.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Config      trial.Config   `json:"config"`
	NumTrials   int            `json:"num_trials"`
	Seed        int64          `json:"seed"`
	Workers     int            `json:"workers"`
	Test        string         `json:"test"`
	Estimator   string         `json:"estimator"`
	CodeVersion string         `json:"code_version"`
	Fingerprint core.Hash      `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest and computes its determinism fingerprint.
// Workers is recorded for audit only and does not enter the fingerprint.
func NewManifest(runID core.RunID, cfg trial.Config, numTrials int, seed int64, workers int, test, estimator, codeVersion string) *Manifest {
	m := &Manifest{
		RunID:       runID,
		Config:      cfg,
		NumTrials:   numTrials,
		Seed:        seed,
		Workers:     workers,
		Test:        test,
		Estimator:   estimator,
		CodeVersion: codeVersion,
		CreatedAt:   core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

func (m *Manifest) computeFingerprint() core.Hash {
	params := m.Config.Params()
	params["num_trials"] = m.NumTrials
	params["seed"] = m.Seed
	params["test"] = m.Test
	params["estimator"] = m.Estimator
	params["code_version"] = m.CodeVersion
	return core.ComputeParamsHash(params)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.Test == "" {
		return fmt.Errorf("run manifest: test cannot be empty")
	}
	if m.Estimator == "" {
		return fmt.Errorf("run manifest: estimator cannot be empty")
	}
	if err := trial.ValidateTrialCount(m.NumTrials, 0); err != nil {
		return err
	}
	if err := m.Config.Validate(); err != nil {
		return err
	}
	if !m.Fingerprint.Equals(m.computeFingerprint()) {
		return fmt.Errorf("run manifest: %w: fingerprint does not match parameters", core.ErrSeedMismatch)
	}
	return nil
}

// SameReplay reports whether two manifests describe the same deterministic run.
func (m *Manifest) SameReplay(other *Manifest) bool {
	return other != nil && m.Fingerprint.Equals(other.Fingerprint)
}
