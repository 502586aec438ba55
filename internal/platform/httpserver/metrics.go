package httpserver

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agora_http_requests_total",
		Help: "HTTP requests served, labeled by route pattern, method, and status.",
	},
	[]string{"route", "method", "status"},
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrumentRequests counts every served request against the matched mux
// pattern, so unmatched paths collapse into a single empty-route series.
func instrumentRequests(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(recorder, r)
		httpRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(recorder.status)).Inc()
	})
}
