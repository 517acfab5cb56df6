package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func recordingProvider() (*Provider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return &Provider{tp: tp, tracer: tp.Tracer(InstrumentationName)}, recorder
}

func TestHTTPMiddlewareUsesRouteTemplate(t *testing.T) {
	provider, recorder := recordingProvider()

	router := mux.NewRouter()
	router.Use(HTTPMiddleware(provider))
	router.HandleFunc("/api/shared/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/shared/abc123", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if got := spans[0].Name(); got != "GET /api/shared/{token}" {
		t.Errorf("span name = %q", got)
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("4xx responses should not mark the span as failed")
	}
}

func TestEndRecordsError(t *testing.T) {
	provider, recorder := recordingProvider()
	_, span := provider.Tracer().Start(context.Background(), "shop.ProjectCost")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status().Code)
	}
}

func TestInitTracerDisabled(t *testing.T) {
	p, err := InitTracer(context.Background(), Config{ServiceName: "grain"}, zap.NewNop())
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("disabled provider should still hand out a tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
