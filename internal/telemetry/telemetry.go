// Package telemetry wires OpenTelemetry metrics and traces for the viewer.
// Metrics are exported through a Prometheus registry; traces go to an OTLP
// collector or stdout when configured.
package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config selects exporters.
type Config struct {
	ServiceName  string
	Instance     string // Reported as service.instance.id, e.g. empresa/sede
	OTLPEndpoint string
	OTLPInsecure bool
	TraceStdout  bool
}

// Telemetry owns the meter and tracer providers of one process.
type Telemetry struct {
	log      *zap.Logger
	registry *promclient.Registry
	handler  http.Handler
	meters   *sdkmetric.MeterProvider
	tracers  trace.TracerProvider
	shutdown []func(context.Context) error
	server   *http.Server
}

// Setup creates the providers. Metrics always have a reader; tracing is a
// no-op unless an exporter is configured.
func Setup(ctx context.Context, cfg Config, log *zap.Logger) (*Telemetry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	name := cfg.ServiceName
	if name == "" {
		name = "avatar-viewer"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.Instance != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(cfg.Instance))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	t := &Telemetry{log: log, registry: promclient.NewRegistry()}

	exporter, err := prometheus.New(prometheus.WithRegisterer(t.registry))
	if err != nil {
		log.Warn("failed to initialize prometheus exporter", zap.Error(err))
		t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		t.meters = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		t.handler = promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
	}
	t.shutdown = append(t.shutdown, t.meters.Shutdown)

	tp, err := initTracer(ctx, cfg, res, log)
	if err != nil {
		t.meters.Shutdown(ctx)
		return nil, err
	}
	if tp != nil {
		t.tracers = tp
		t.shutdown = append(t.shutdown, tp.Shutdown)
	} else {
		t.tracers = tracenoop.NewTracerProvider()
	}
	return t, nil
}

func initTracer(ctx context.Context, cfg Config, res *resource.Resource, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		log.Info("tracing initialized", zap.String("exporter", "otlp"), zap.String("endpoint", endpoint))
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		), nil
	}
	if !cfg.TraceStdout {
		return nil, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	log.Info("tracing initialized", zap.String("exporter", "stdout"))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Meter returns a named meter.
func (t *Telemetry) Meter(name string) metric.Meter {
	return t.meters.Meter(name)
}

// Tracer returns a named tracer.
func (t *Telemetry) Tracer(name string) trace.Tracer {
	return t.tracers.Tracer(name)
}

// Handler serves the Prometheus exposition format. Nil when the exporter
// failed to initialize.
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Serve starts the metrics endpoint on addr in the background.
func (t *Telemetry) Serve(addr string) error {
	if t.handler == nil {
		return errors.New("telemetry: no metrics handler")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	t.log.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("metrics endpoint stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the endpoint and flushes the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
