package grammar

import (
	"context"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

type tracedChecker struct {
	next   ports.GrammarChecker
	tracer trace.Tracer
}

// TracingMiddleware wraps each check in a "grammar.check" span.
func TracingMiddleware() Middleware {
	return TracingMiddlewareWithTracer(otel.Tracer("grammar-checker"))
}

// TracingMiddlewareWithTracer is TracingMiddleware with an explicit tracer.
func TracingMiddlewareWithTracer(tracer trace.Tracer) Middleware {
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &tracedChecker{next: next, tracer: tracer}
	}
}

func (t *tracedChecker) Name() string { return t.next.Name() }

func (t *tracedChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	ctx, span := t.tracer.Start(ctx, "grammar.check",
		trace.WithAttributes(
			attribute.String("grammar.backend", t.next.Name()),
			attribute.Int("grammar.text.runes", utf8.RuneCountInString(text)),
		),
	)
	defer span.End()

	n, err := t.next.CheckErrors(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grammar check failed")
		return n, err
	}
	span.SetAttributes(attribute.Int("grammar.issues", n))
	return n, nil
}
