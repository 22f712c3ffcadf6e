package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddlewareRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	metric := &dto.Metric{}
	if err := m.RequestsTotal.WithLabelValues(http.MethodGet, "error").Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetCounter().GetValue() != 1 {
		t.Fatalf("expected 1 error request recorded, got %v", metric.GetCounter().GetValue())
	}
}

func TestMiddlewareSkipsHealthzAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	called := false

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	r = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !called {
		t.Fatal("expected inner handler to be called")
	}

	metric := &dto.Metric{}
	if err := m.RequestsTotal.WithLabelValues(http.MethodGet, "ok").Write(metric); err == nil && metric.GetCounter().GetValue() != 0 {
		t.Fatalf("expected /healthz and /metrics to be excluded from metrics, got %v", metric.GetCounter().GetValue())
	}
}
