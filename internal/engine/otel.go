package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/figureboard/figureboard/internal/engine"

type metrics struct {
	snapshots metric.Int64Counter
	intents   metric.Int64Counter
	ignored   metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.snapshots, err = m.Int64Counter(
		"engine.snapshots.applied",
		metric.WithDescription("Total snapshots applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snapshots counter: %w", err)
	}

	out.intents, err = m.Int64Counter(
		"engine.intents.sent",
		metric.WithDescription("Total intents handed to the sync channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating intents counter: %w", err)
	}

	out.ignored, err = m.Int64Counter(
		"engine.frames.ignored",
		metric.WithDescription("Total inbound frames dropped as malformed or unexpected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ignored counter: %w", err)
	}

	return out, nil
}

func (m *metrics) snapshotApplied() {
	m.snapshots.Add(context.Background(), 1)
}

func (m *metrics) intentSent(msgType string) {
	m.intents.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", msgType)))
}

func (m *metrics) frameIgnored() {
	m.ignored.Add(context.Background(), 1)
}
