package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(PrometheusMiddleware(m))
	r.GET("/users/:username", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, u := range []string{"ALICE", "BOB"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/"+u, nil))
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("200", http.MethodGet, "/users/:username"))
	if got != 2 {
		t.Fatalf("expected 2 requests on route template, got %v", got)
	}
}

func TestObserveUpstream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveUpstream("nomis", http.MethodGet, "404", 10*time.Millisecond)

	expected := `
# HELP upstream_requests_total Total number of calls to upstream services.
# TYPE upstream_requests_total counter
upstream_requests_total{code="404",method="GET",upstream="nomis"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "upstream_requests_total"); err != nil {
		t.Fatal(err)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveUpstream("nomis", http.MethodGet, "200", time.Millisecond)
}
