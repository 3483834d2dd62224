package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/otterscale/logwatch/internal/core"

type watchMetrics struct {
	messages   metric.Int64Counter
	errors     metric.Int64Counter
	reconnects metric.Int64Counter
	fetches    metric.Int64Counter

	// gauge holds the buffer-entries callback registration.
	gauge metric.Registration
}

// newWatchMetrics registers the watch instruments on the global meter
// provider. Instruments created before the provider is installed are
// delegated once it is.
func newWatchMetrics(entries func() int) (*watchMetrics, error) {
	meter := otel.Meter(meterName)

	messages, err := meter.Int64Counter("logwatch.stream.messages",
		metric.WithDescription("Messages received from the broker"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("logwatch.stream.errors",
		metric.WithDescription("Stream errors reported by the subscriber"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	reconnects, err := meter.Int64Counter("logwatch.stream.reconnects",
		metric.WithDescription("Reconnect attempts scheduled after a stream error"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter("logwatch.snapshot.fetches",
		metric.WithDescription("Snapshot fetches by result"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	gauge, err := meter.Int64ObservableGauge("logwatch.buffer.entries",
		metric.WithDescription("Entries currently held in the log buffer"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(entries()))
		return nil
	}, gauge)
	if err != nil {
		return nil, err
	}

	return &watchMetrics{
		messages:   messages,
		errors:     errs,
		reconnects: reconnects,
		fetches:    fetches,
		gauge:      reg,
	}, nil
}

func (m *watchMetrics) fetched(ctx context.Context, result string) {
	m.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// unregister detaches the buffer gauge callback from the meter.
func (m *watchMetrics) unregister() error {
	return m.gauge.Unregister()
}
