package encoder

import (
	"fmt"
	"slices"

	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/telemetry"
)

const (
	BackendLilliput = "lilliput"
	BackendNative   = "native"
)

// New builds the encoder for a backend name
func New(backend string, telemetry *telemetry.TelemetrySvc) (Encoder, error) {
	switch backend {
	case BackendLilliput, "":
		return NewLilliputEncoder(telemetry), nil
	case BackendNative:
		return NewNativeEncoder(telemetry), nil
	default:
		return nil, fmt.Errorf("unknown encoder backend %q", backend)
	}
}

// Supports reports whether enc can write format
func Supports(enc Encoder, format models.Format) bool {
	return slices.Contains(enc.Formats(), format)
}
