package metrics

import (
	"context"
)

// Custom type to represent a metric name,
// providing a type-safe way to handle metric names.
type MetricName string

const (
	BatchRunRequested MetricName = "batch.run.requested"
	VariantCreated    MetricName = "batch.variant.created"
	EncodeRetry       MetricName = "batch.encode.retry"
	ArchiveSealed     MetricName = "batch.archive.sealed"
)

type MetricsSvc interface {
	Increment(metric MetricName, attrs map[string]string)
	Shutdown(ctx context.Context) error
}
