package telemetry

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceHook adds the trace and span ids of the event's context to every log line.
// Events logged without Ctx are left alone.
type TraceHook struct{}

func (TraceHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return
	}

	e.Str("trace_id", sc.TraceID().String())
	e.Str("span_id", sc.SpanID().String())

	if level >= zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}
