package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hiring-pipeline/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const apiPrefix = "/api/v1"

// RouterOptions toggles the optional surfaces.
type RouterOptions struct {
	SwaggerEnabled bool
}

func NewRouter(a *API, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	if opts.SwaggerEnabled {
		mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.Handle("GET /ready", instrument("/ready", http.HandlerFunc(a.Ready)))
	mux.Handle("GET /metrics", promhttp.Handler())

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /candidates", a.ListCandidates},
		{"POST /candidates", a.CreateCandidate},
		{"POST /candidates/bulk", a.BulkImport},
		{"GET /candidates/search", a.SearchCandidates},
		{"GET /candidates/{id}", a.GetCandidate},
		{"PUT /candidates/{id}", a.UpdateCandidate},
		{"DELETE /candidates/{id}", a.DeleteCandidate},
		{"PUT /candidates/{id}/stage", a.UpdateStage},
		{"GET /candidates/{id}/next-stages", a.NextStages},
		{"POST /candidates/{id}/notes", a.AddNote},
		{"POST /candidates/{id}/scores", a.RecordScore},
	}
	for _, rt := range routes {
		method, path, _ := strings.Cut(rt.pattern, " ")
		mux.Handle(method+" "+apiPrefix+path, instrument(apiPrefix+path, a.RequireIdentity(rt.handler)))
	}

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency under the route template so
// candidate ids never become label values.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
