package ports

import (
	"context"

	"ctsim/domain/run"
	"ctsim/domain/trial"
)

// BatchExporter writes a finished batch to a file.
type BatchExporter interface {
	Export(ctx context.Context, manifest *run.Manifest, batch *trial.Batch, path string) error
}
