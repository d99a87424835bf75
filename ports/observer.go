package ports

import (
	"time"

	"ctsim/domain/trial"
)

// BatchObserver receives progress notifications from the orchestrator.
// TrialCompleted is called concurrently from workers.
type BatchObserver interface {
	TrialCompleted(result trial.Result)
	BatchFinished(summary trial.Summary, duration time.Duration, err error)
}

// NoopObserver discards all notifications.
type NoopObserver struct{}

func (NoopObserver) TrialCompleted(trial.Result)                       {}
func (NoopObserver) BatchFinished(trial.Summary, time.Duration, error) {}
