package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestLogger writes one zerolog event per request
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				ev := log.Debug()
				if ww.Status() >= http.StatusInternalServerError {
					ev = log.Error()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
