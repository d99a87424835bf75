package rng

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// goldenGamma is the SplitMix64 increment (2^64 / phi, odd).
const goldenGamma = 0x9e3779b97f4a7c15

// StreamAdapter derives independent PCG streams from a base seed.
type StreamAdapter struct{}

// NewStreamAdapter creates a new stream adapter
func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// TrialStream creates the stream for one trial. The two PCG seed words are
// successive SplitMix64 outputs at positions 2i+1 and 2i+2 of the sequence
// started at baseSeed, so no two trial indices share a seed pair.
func (a *StreamAdapter) TrialStream(ctx context.Context, baseSeed int64, trialIndex int) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trialIndex < 0 {
		return nil, fmt.Errorf("trial index must not be negative, got %d", trialIndex)
	}
	return newPCG(uint64(baseSeed), uint64(trialIndex)), nil
}

func newPCG(base, index uint64) *rand.Rand {
	hi := splitmix64(base + goldenGamma*(2*index+1))
	lo := splitmix64(base + goldenGamma*(2*index+2))
	return rand.New(rand.NewPCG(hi, lo))
}

// splitmix64 is the finalizer of Steele et al.'s SplitMix64 generator.
func splitmix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
