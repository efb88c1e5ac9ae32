package interceptor

import (
	"context"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/observability"
)

// TracingOption configures the tracing interceptor.
type TracingOption func(*Tracer)

// WithTracerProvider sets the provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(t *Tracer) { t.tracer = observability.Tracer(tp) }
}

// WithPropagator sets the propagator. Defaults to the global one, or to
// trace-context plus baggage while no global propagator is installed. The
// propagator must write headers that it can read back.
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(t *Tracer) { t.propagator = p }
}

// Tracer starts a client span per attempt in Before, injects its context
// into the request headers and ends it in After. Spans of exchanges that
// never reach After (cancelled sends, WebSocket handshakes) end when the
// exchange context does.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	spans sync.Map // trace.SpanID -> *openSpan
}

type openSpan struct {
	span trace.Span
	stop func() bool
}

// Tracing returns a tracing interceptor.
func Tracing(opts ...TracingOption) *Tracer {
	t := &Tracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = observability.Tracer(nil)
	}
	if t.propagator == nil {
		t.propagator = otel.GetTextMapPropagator()
		if len(t.propagator.Fields()) == 0 {
			t.propagator = observability.Propagator()
		}
	}
	return t
}

// Before starts the span and injects it.
func (t *Tracer) Before(ctx context.Context, rb *client.RequestBuilder) error {
	attrs := []attribute.KeyValue{}
	websocket := false
	if u := rb.TargetURL(); u != nil {
		attrs = append(attrs,
			attribute.String(observability.AttrURL, u.Redacted()),
			attribute.String(observability.AttrServerAddress, u.Hostname()),
		)
		websocket = u.Scheme == "ws" || u.Scheme == "wss"
	}
	spanCtx, span := t.tracer.Start(ctx, observability.SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	carrier := propagation.HeaderCarrier(make(http.Header))
	t.propagator.Inject(spanCtx, carrier)
	for _, key := range carrier.Keys() {
		rb.SetHeader(key, carrier.Get(key))
	}

	if !span.IsRecording() {
		return nil
	}
	id := span.SpanContext().SpanID()
	open := &openSpan{span: span}
	t.spans.Store(id, open)
	open.stop = context.AfterFunc(ctx, func() {
		if _, ok := t.spans.LoadAndDelete(id); !ok {
			return
		}
		if !websocket {
			span.SetStatus(codes.Error, "exchange cancelled")
		}
		span.End()
	})
	return nil
}

// After annotates and ends the attempt's span.
func (t *Tracer) After(_ context.Context, ex *client.Exchange) error {
	ctx := t.propagator.Extract(context.Background(), propagation.HeaderCarrier(ex.Request.Header()))
	id := trace.SpanContextFromContext(ctx).SpanID()
	v, ok := t.spans.LoadAndDelete(id)
	if !ok {
		return nil
	}
	open := v.(*openSpan)
	open.stop()

	span := open.span
	span.SetAttributes(
		attribute.String(observability.AttrMethod, ex.Request.Method()),
		attribute.Int(observability.AttrAttempt, ex.Attempt),
	)
	switch {
	case ex.Err != nil:
		span.RecordError(ex.Err)
		if appErr, ok := errors.AsAppError(ex.Err); ok {
			span.SetAttributes(attribute.String(observability.AttrErrorType, string(appErr.Code)))
		}
		span.SetStatus(codes.Error, ex.Err.Error())
	default:
		span.SetAttributes(attribute.Int(observability.AttrStatusCode, ex.StatusCode))
		if ex.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ex.StatusCode))
		}
	}
	span.End()
	return nil
}
