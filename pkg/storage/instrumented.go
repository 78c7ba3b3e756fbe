package storage

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type instrumented struct {
	next     Store
	attrs    attribute.Set
	tracer   trace.Tracer
	ops      metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

var _ Store = (*instrumented)(nil)

// Instrument reports spans and metrics for every operation on s.
// A missing key is not counted as failure.
func Instrument(s Store, name string) Store {
	meter := otel.GetMeterProvider().Meter("cpr.storage")
	ret := &instrumented{
		next:   s,
		attrs:  attribute.NewSet(attribute.String("storage", name)),
		tracer: otel.GetTracerProvider().Tracer("cpr.storage"),
	}
	ret.ops, _ = meter.Int64Counter("cpr.storage.ops",
		metric.WithDescription("Number of storage operations"),
		metric.WithUnit("{count}"))
	ret.failures, _ = meter.Int64Counter("cpr.storage.failures",
		metric.WithDescription("Number of failed storage operations"),
		metric.WithUnit("{count}"))
	ret.duration, _ = meter.Float64Histogram("cpr.storage.duration",
		metric.WithDescription("Duration of storage operations"),
		metric.WithUnit("ms"))
	return ret
}

func (s *instrumented) Get(ctx context.Context, key string) (ret []byte, err error) {
	s.observe(ctx, "get", key, func(ctx context.Context) error {
		ret, err = s.next.Get(ctx, key)
		return err
	})
	return ret, err
}

func (s *instrumented) Put(ctx context.Context, key string, value []byte) error {
	return s.observe(ctx, "put", key, func(ctx context.Context) error {
		return s.next.Put(ctx, key, value)
	})
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

func (s *instrumented) Close() error {
	return s.next.Close()
}

//nolint:whitespace // editor/linter issue
func (s *instrumented) observe(
	ctx context.Context,
	op, key string,
	fn func(ctx context.Context) error,
) error {
	ctx, span := s.tracer.Start(ctx, "storage."+op,
		trace.WithAttributes(attribute.String("key", key)),
		trace.WithAttributes(s.attrs.ToSlice()...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	opAttr := metric.WithAttributeSet(attribute.NewSet(
		append(s.attrs.ToSlice(), attribute.String("op", op))...))
	s.ops.Add(ctx, 1, opAttr)
	s.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, opAttr)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.failures.Add(ctx, 1, opAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
