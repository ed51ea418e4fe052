package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
)

// Options configures the global trace provider.
type Options struct {
	ServiceName string
	Exporter    string // "console" or "otlp"
	Endpoint    string
	Protocol    string // "grpc" or "http"
}

// Init wires the global tracer provider and returns its shutdown func.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch opts.Exporter {
	case "otlp":
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: opts.Endpoint,
			Protocol: opts.Protocol,
			Insecure: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
	case "console", "":
		exporter = &exporters.ConsoleExporter{}
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", opts.Exporter)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	SetTracer(provider.Tracer(opts.ServiceName))

	return provider.Shutdown, nil
}
