package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_WithOperation(t *testing.T) {
	for name, logger := range map[string]Logger{
		"noop": NopLogger(),
		"zap":  NewZapLogger(nil),
	} {
		t.Run(name, func(t *testing.T) {
			scoped := logger.WithOperation(OpMeta{Kind: "request", Operation: "define"})
			if scoped == nil {
				t.Fatal("WithOperation should return non-nil logger")
			}
			scoped.Debug(context.Background(), "noop")
			scoped.Error(context.Background(), "noop", Field{Key: "token", Value: "x"})
		})
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordOperation(context.Background(), OpMeta{Operation: "noop"}, 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), OpMeta{Operation: "noop"})
	tracer.EndSpan(span, nil)
}
