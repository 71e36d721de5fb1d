package promotion

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/xenking/fairway-promos/internal/domain/promotion"

// Option configures the Resolver and the Ledger.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithMeterProvider sets the meter provider used for counters.
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *options) {
		if p != nil {
			o.meterProvider = p
		}
	}
}

// WithTracerProvider sets the tracer provider used for spans.
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(o *options) {
		if p != nil {
			o.tracerProvider = p
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) meter() metric.Meter {
	return o.meterProvider.Meter(instrumentationName)
}

func (o options) tracer() trace.Tracer {
	return o.tracerProvider.Tracer(instrumentationName)
}
