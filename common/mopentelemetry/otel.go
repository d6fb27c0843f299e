package mopentelemetry

import (
	"context"
	"log"

	"github.com/mywaytech/dentstage-sync/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry carries the tracing providers used by the HTTP surface and poller. Metric and log
// exporters are not wired: logging goes through mzap, and no change-capture/poll counts are
// exported as metrics.
type Telemetry struct {
	LibraryName               string
	ServiceName               string
	ServiceVersion            string
	DeploymentEnv             string
	CollectorExporterEndpoint string
	TracerProvider            *sdktrace.TracerProvider
	shutdown                  func()
}

// newResource creates a new resource with default attributes.
func (tl *Telemetry) newResource() (*sdkresource.Resource, error) {
	r, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(tl.ServiceName),
			semconv.ServiceVersion(tl.ServiceVersion),
			semconv.DeploymentEnvironment(tl.DeploymentEnv)),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// newTracerExporter creates a new tracer exporter that writes to the configured OTLP collector.
func (tl *Telemetry) newTracerExporter(ctx context.Context) (*otlptrace.Exporter, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(tl.CollectorExporterEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	return exporter, nil
}

// newTracerProvider creates a new tracer provider with the given exporter and resource.
func (tl *Telemetry) newTracerProvider(rsc *sdkresource.Resource, exp *otlptrace.Exporter) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsc),
	)

	return tp
}

// ShutdownTelemetry releases the tracer exporter and provider.
func (tl *Telemetry) ShutdownTelemetry() {
	tl.shutdown()
}

// InitializeTelemetry initializes the tracer provider and sets it globally.
func (tl *Telemetry) InitializeTelemetry() *Telemetry {
	ctx := context.Background()

	r, err := tl.newResource()
	if err != nil {
		log.Fatalf("can't initialize resource: %v", err)
	}

	tExp, err := tl.newTracerExporter(ctx)
	if err != nil {
		log.Fatalf("can't initialize tracer exporter: %v", err)
	}

	tp := tl.newTracerProvider(r, tExp)
	otel.SetTracerProvider(tp)

	tl.shutdown = func() {
		err := tExp.Shutdown(ctx)
		if err != nil {
			log.Fatalf("can't shutdown tracer exporter: %v", err)
		}

		err = tp.Shutdown(ctx)
		if err != nil {
			log.Fatalf("can't shutdown tracer provider: %v", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Telemetry{
		LibraryName:    tl.LibraryName,
		ServiceName:    tl.ServiceName,
		TracerProvider: tp,
		shutdown:       tl.shutdown,
	}
}

// SetSpanAttributesFromStruct converts a struct to a JSON string and sets it as an attribute on the span.
func SetSpanAttributesFromStruct(span *trace.Span, key string, valueStruct any) error {
	vStr, err := common.StructToJSONString(valueStruct)
	if err != nil {
		return err
	}

	(*span).SetAttributes(attribute.KeyValue{
		Key:   attribute.Key(key),
		Value: attribute.StringValue(vStr),
	})

	return nil
}

// HandleSpanError records err on span and marks it as failed.
func HandleSpanError(span *trace.Span, message string, err error) {
	(*span).SetStatus(codes.Error, message+": "+err.Error())
	(*span).RecordError(err)
}
