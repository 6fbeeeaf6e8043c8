package encoder

import (
	"context"

	"github.com/giobyte8/imgbatch/internal/models"
)

// Quality factors are handled in tenths to keep the reduction loop
// free of float drift. QualityFloor is 0.1.
const (
	QualityFloor   = 1
	QualityCeiling = 9
	QualityStep    = 1
)

// Result holds the bytes of one encoded variant
type Result struct {
	Data []byte

	// Quality factor used for Data, in [0.1, 0.9]
	Quality float64

	// Number of encode passes, 1 when no size budget retry happened
	Attempts int
}

// Encoder scales a source image to an exact target size and re-encodes
// it in the configured format. Implementations never touch the
// filesystem or the network.
type Encoder interface {
	Encode(
		ctx context.Context,
		src models.SourceImage,
		size models.SizeSpec,
		cfg models.ProcessingConfig,
	) (*Result, error)

	// Formats lists the output formats the encoder can produce
	Formats() []models.Format
}
