package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tp, ts := TraceContextStrings(ctx)
	if tp == "" {
		t.Fatal("expected traceparent")
	}

	restored := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), tp, ts))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id mismatch: %s", restored.TraceID())
	}
	if got := ContextWithTraceContext(ctx, "", ""); got != ctx {
		t.Fatal("empty carrier must return the input context")
	}
}
