package api

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Server) withTracing(next http.Handler) http.Handler {
	if s.tracer == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spanName := r.Method + " " + routeLabel(r.URL.Path)
		ctx, span := s.tracer.Start(r.Context(), spanName, trace.WithSpanKind(trace.SpanKindServer))
		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", routeLabel(r.URL.Path)),
			attribute.String("http.target", r.URL.Path),
		}
		if op := s.operationFromPath(r.URL.Path); op != "" {
			attrs = append(attrs, attribute.String("gimg.operation", op))
		}
		span.SetAttributes(attrs...)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// operationFromPath names the dispatch-table entry a processing request
// targets, so traces can be grouped by operation rather than route shape.
func (s *Server) operationFromPath(path string) string {
	op := strings.TrimPrefix(path, "/api/")
	if op == path || strings.ContainsRune(op, '/') {
		return ""
	}
	if _, ok := s.registry.Get(op); !ok {
		return ""
	}
	return op
}
