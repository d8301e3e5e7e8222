package invoker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Recorder receives per-request telemetry. *telemetry.Provider implements it.
type Recorder interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordRequest(ctx context.Context, service, action string, d time.Duration)
	RecordFault(ctx context.Context, service, action, code string)
}

// Instrumented wraps an Invoker with a span, request metrics and a debug log per call.
type Instrumented struct {
	next Invoker
	rec  Recorder
}

// Instrument decorates next with rec.
func Instrument(next Invoker, rec Recorder) *Instrumented {
	return &Instrumented{next: next, rec: rec}
}

func (i *Instrumented) Invoke(ctx context.Context, req Request) (*document.Document, error) {
	action := req.Action()
	ctx, span := i.rec.StartSpan(ctx, req.Service+"."+action)
	defer span.End()
	span.SetAttributes(
		attribute.String("cirrus.service", req.Service),
		attribute.String("cirrus.action", action),
	)

	start := time.Now()
	doc, err := i.next.Invoke(ctx, req)
	elapsed := time.Since(start)
	i.rec.RecordRequest(ctx, req.Service, action, elapsed)

	if err != nil {
		code := cloud.ErrorCodeOf(err)
		if code == "" {
			code = "Internal"
		}
		i.rec.RecordFault(ctx, req.Service, action, code)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		log.Debug().
			Ctx(ctx).
			Err(err).
			Str("service", req.Service).
			Str("action", action).
			Str("code", code).
			Dur("elapsed", elapsed).
			Msg("request failed")
		return nil, err
	}

	log.Debug().
		Ctx(ctx).
		Str("service", req.Service).
		Str("action", action).
		Dur("elapsed", elapsed).
		Msg("request complete")
	return doc, nil
}
