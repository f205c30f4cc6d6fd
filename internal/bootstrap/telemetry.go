package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"storefront-e2e/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// newTraceProvider exports spans as JSON to TRACES_PATH. Without a path the
// spans are still created, so span ids stay in the logs, but are discarded.
func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	var (
		out  io.Writer = io.Discard
		file *os.File
	)

	if path := config.AppConfig.TracesPath; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create traces file: %w", err)
		}

		file, out = f, f
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create trace exporter: %w", err), closeFile(file))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create trace resource: %w", err), closeFile(file))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := tp.Shutdown(ctx)
			if file != nil {
				logger.Info("Traces written", zap.String("path", file.Name()))
			}

			return errors.Join(err, closeFile(file))
		},
	})

	return tp, nil
}

func closeFile(f *os.File) error {
	if f == nil {
		return nil
	}

	return f.Close()
}
