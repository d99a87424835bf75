package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations.
// Returned generators satisfy gonum's rand.Source and are never shared
// between goroutines.
type RNGPort interface {
	// TrialStream creates the stream for one trial of a batch. Distinct trial
	// indices under the same base seed yield independent streams, and the same
	// (baseSeed, trialIndex) always yields the same stream.
	TrialStream(ctx context.Context, baseSeed int64, trialIndex int) (*rand.Rand, error)
}
