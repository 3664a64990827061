package logging

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// SpanLogger is a span processor that writes finished spans to a zap
// logger at debug level. Failed spans are logged as warnings.
type SpanLogger struct {
	logger *zap.Logger
}

var _ sdktrace.SpanProcessor = (*SpanLogger)(nil)

// NewSpanLogger returns a SpanLogger writing to logger.
func NewSpanLogger(logger *zap.Logger) *SpanLogger {
	return &SpanLogger{logger: logger.Named("trace")}
}

// NewTracerProvider builds an sdk tracer provider whose spans end up in
// logger.
func NewTracerProvider(logger *zap.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewSpanLogger(logger)))
}

func (p *SpanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *SpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := []zap.Field{
		zap.String("span", s.Name()),
		zap.String("trace_id", s.SpanContext().TraceID().String()),
		zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
	}
	for _, kv := range s.Attributes() {
		fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
	}
	if st := s.Status(); st.Code == codes.Error {
		p.logger.Warn("span failed", append(fields, zap.String("error", st.Description))...)
		return
	}
	p.logger.Debug("span", fields...)
}

func (p *SpanLogger) Shutdown(context.Context) error { return nil }

func (p *SpanLogger) ForceFlush(context.Context) error { return nil }
