package factuality

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/factuality"

// instruments 评委调用的指标
type instruments struct {
	calls     metric.Int64Counter
	errors    metric.Int64Counter
	malformed metric.Int64Counter
	latency   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	calls, err := meter.Int64Counter("qaeval.judge.calls",
		metric.WithDescription("Number of factuality judge calls"))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("qaeval.judge.errors",
		metric.WithDescription("Number of failed factuality judge calls"))
	if err != nil {
		return nil, err
	}
	malformed, err := meter.Int64Counter("qaeval.judge.malformed",
		metric.WithDescription("Number of judge responses not ending in a bare category letter"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("qaeval.judge.latency",
		metric.WithDescription("Factuality judge call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &instruments{calls: calls, errors: errs, malformed: malformed, latency: latency}, nil
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func defaultMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}
