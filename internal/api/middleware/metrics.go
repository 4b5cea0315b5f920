package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver records the outcome of an HTTP request.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics returns middleware that reports each request's latency labelled by
// the matched route pattern, so path parameters do not explode the label
// set. Unmatched requests are reported under "unmatched".
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			observer.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
		})
	}
}
