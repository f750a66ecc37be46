package http

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionHeader carries the cart session. Clients without one get a fresh id
// back in the same header.
const SessionHeader = "X-Session-ID"

type ctxKey int

const sessionIDKey ctxKey = iota

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func SessionMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if !validSessionID.MatchString(sessionID) {
				sessionID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			ctx = log.WithSessionID(ctx, sessionID)
			w.Header().Set(SessionHeader, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// AccessLog attaches the chi request id to the logging context and writes one
// entry per request.
func AccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := log.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			level := zerolog.InfoLevel
			if ww.Status() >= 500 {
				level = zerolog.ErrorLevel
			}
			log.Event(ctx, level).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
