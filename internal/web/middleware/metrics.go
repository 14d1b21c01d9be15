package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder receives one observation per request.
type RequestRecorder interface {
	RecordRequest(route string, status int, elapsed time.Duration)
}

// Metrics reports every request to rec, labelled by route pattern.
func Metrics(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := WrapResponseWriter(w)
			next.ServeHTTP(ww, r)
			rec.RecordRequest(RoutePattern(r), ww.Status(), time.Since(start))
		})
	}
}
