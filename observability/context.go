package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation is a traced unit of work such as handling one queue message.
type Operation struct {
	name  string
	span  trace.Span
	start time.Time
}

// StartOperation opens a span named name for the job requestID.
func StartOperation(ctx context.Context, name, requestID string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Operation{name: name, span: span, start: time.Now()}
}

// End records err and the final status on the span, ends it and returns
// the elapsed time.
func (o *Operation) End(status string, err error) time.Duration {
	elapsed := time.Since(o.start)
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.SetAttributes(attribute.String(AttrStatus, status))
	o.span.End()
	return elapsed
}

// Name returns the operation name.
func (o *Operation) Name() string { return o.name }
