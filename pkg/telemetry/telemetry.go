// Package telemetry 初始化 OpenTelemetry 链路追踪与指标
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahhsitt/qaeval-go/pkg/config"
)

// 导出器类型
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Providers 已初始化的追踪与指标提供者
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	shutdown []func(context.Context) error
}

// Shutdown 刷新并关闭导出器
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// Setup 按配置创建提供者并注册为全局提供者
//
// exporter 为 none 时返回全局默认（空操作）提供者，不做任何注册。
// stdout 导出器写入 w。
func Setup(ctx context.Context, cfg config.TelemetryConfig, w io.Writer) (*Providers, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return &Providers{
			TracerProvider: otel.GetTracerProvider(),
			MeterProvider:  otel.GetMeterProvider(),
		}, nil
	case ExporterStdout, ExporterOTLP:
	default:
		return nil, fmt.Errorf("unknown telemetry exporter: %s", cfg.Exporter)
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	spanExporter, metricExporter, err := newExporters(ctx, cfg, w)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		shutdown:       []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = "qaeval"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry resource: %w", err)
	}
	return res, nil
}

func newExporters(ctx context.Context, cfg config.TelemetryConfig, w io.Writer) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	if cfg.Exporter == ExporterStdout {
		se, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout span exporter: %w", err)
		}
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout metric exporter: %w", err)
		}
		return se, me, nil
	}

	switch cfg.Protocol {
	case "", "grpc":
		traceOpts := []otlptracegrpc.Option{}
		metricOpts := []otlpmetricgrpc.Option{}
		if cfg.Endpoint != "" {
			traceOpts = append(traceOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
			metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		}
		se, err := otlptrace.New(ctx, otlptracegrpc.NewClient(traceOpts...))
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp grpc span exporter: %w", err)
		}
		me, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp grpc metric exporter: %w", err)
		}
		return se, me, nil
	case "http":
		traceOpts := []otlptracehttp.Option{}
		metricOpts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			traceOpts = append(traceOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
			metricOpts = append(metricOpts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}
		se, err := otlptrace.New(ctx, otlptracehttp.NewClient(traceOpts...))
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp http span exporter: %w", err)
		}
		me, err := otlpmetrichttp.New(ctx, metricOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp http metric exporter: %w", err)
		}
		return se, me, nil
	default:
		return nil, nil, fmt.Errorf("unknown otlp protocol: %s", cfg.Protocol)
	}
}
