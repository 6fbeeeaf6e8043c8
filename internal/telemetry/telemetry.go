package telemetry

import (
	"context"

	"github.com/giobyte8/imgbatch/internal/telemetry/metrics"
)

type TelemetrySvc struct {
	metrics metrics.MetricsSvc
}

func NewTelemetrySvc(
	ctx context.Context,
	otel_enabled bool,
) (*TelemetrySvc, error) {
	var metricsSvc metrics.MetricsSvc
	var err error

	if otel_enabled {
		metricsSvc, err = metrics.NewOtelMetricsSvc(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		metricsSvc = metrics.NewNoopMetricsSvc()
	}

	return &TelemetrySvc{
		metrics: metricsSvc,
	}, nil
}

// NewNoopTelemetrySvc returns telemetry that records nothing
func NewNoopTelemetrySvc() *TelemetrySvc {
	return &TelemetrySvc{metrics: metrics.NewNoopMetricsSvc()}
}

func (t *TelemetrySvc) Metrics() metrics.MetricsSvc {
	return t.metrics
}

func (t *TelemetrySvc) Shutdown(ctx context.Context) error {
	return t.metrics.Shutdown(ctx)
}
