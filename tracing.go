package gokafka

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the package-wide otel.Tracer, resolved lazily against
// whatever TracerProvider the embedding application has registered
// globally (otel.SetTracerProvider). With no provider configured this is
// the otel no-op tracer, so instrumentation costs nothing when tracing
// isn't wired up.
var tracer = otel.Tracer("github.com/platformatic/gokafka")

// startSpan opens a span for one public operation, tagging it with the
// Kafka coordinates relevant to the call (group, topic, partition are
// optional and may be passed empty). The returned end func records the
// error, if any, and always closes the span; callers defer it.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
