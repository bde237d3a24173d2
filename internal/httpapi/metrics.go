package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutord_http_requests_total",
		Help: "HTTP requests by method, route pattern and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutord_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	stepVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutord_step_verdicts_total",
		Help: "Step evaluations by verdict (correct, incorrect, unknown).",
	}, []string{"verdict"})
)

// measureRequests records Prometheus metrics per request, keyed by the
// chi route pattern rather than the raw path so ids don't explode the
// label set.
func (s *Server) measureRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}

		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

func recordVerdict(correct *bool) {
	switch {
	case correct == nil:
		stepVerdicts.WithLabelValues("unknown").Inc()
	case *correct:
		stepVerdicts.WithLabelValues("correct").Inc()
	default:
		stepVerdicts.WithLabelValues("incorrect").Inc()
	}
}
