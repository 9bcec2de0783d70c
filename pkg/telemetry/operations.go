package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ghuser/lotdesk"

// OperationCounter counts completed remote-backed lot operations, labelled by
// operation kind and result. Exported on /metrics as lot_operations_total.
type OperationCounter struct {
	counter metric.Int64Counter
}

// NewOperationCounter registers the counter on mp. Pass otel.GetMeterProvider()
// after Setup.
func NewOperationCounter(mp metric.MeterProvider) (*OperationCounter, error) {
	c, err := mp.Meter(meterName).Int64Counter("lot.operations",
		metric.WithDescription("Remote-backed lot operations by kind and result"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("lot.operations counter: %w", err)
	}
	return &OperationCounter{counter: c}, nil
}

// Record adds one completed operation.
func (o *OperationCounter) Record(ctx context.Context, operation string, success bool) {
	o.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}
