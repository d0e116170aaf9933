package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestCaptureAttachRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tc := Capture(ctx)
	if tc.Traceparent == "" {
		t.Fatal("expected traceparent to be captured")
	}

	restored := trace.SpanContextFromContext(tc.Attach(context.Background()))
	if restored.TraceID() != traceID || restored.SpanID() != spanID {
		t.Fatalf("trace context mismatch: %s/%s", restored.TraceID(), restored.SpanID())
	}
}

func TestAttachEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	if got := (TraceContext{}).Attach(ctx); got != ctx {
		t.Fatal("expected the same context back")
	}
}
