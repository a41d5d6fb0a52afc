// Package middleware provides HTTP middleware for request IDs, access logging
// and panic recovery for the site server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

type ctxKey struct{}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Chain returns a middleware wrapper that applies request IDs, logging and
// panic recovery around a handler.
func Chain(logger *slog.Logger, adapter *derrors.HTTPErrorAdapter, recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return func(next http.Handler) http.Handler {
		return requestIDMiddleware(loggingMiddleware(logger, recorder, panicRecoveryMiddleware(logger, adapter, next)))
	}
}

// requestIDMiddleware reuses a sane incoming X-Request-ID or mints a UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// loggingMiddleware logs method, path, status, duration, user agent, and remote addr.
func loggingMiddleware(logger *slog.Logger, recorder metrics.Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		recorder.ObserveHTTPRequest(route, wrapped.statusCode, duration)
		logger.Info("HTTP request",
			logfields.RequestID(RequestID(r.Context())),
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(wrapped.statusCode),
			logfields.DurationMS(float64(duration.Microseconds())/1000),
			logfields.UserAgent(r.UserAgent()),
			logfields.RemoteAddr(r.RemoteAddr))
	})
}

// panicRecoveryMiddleware recovers from panics and writes a structured error response via the HTTPErrorAdapter.
func panicRecoveryMiddleware(logger *slog.Logger, adapter *derrors.HTTPErrorAdapter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("HTTP handler panic",
					slog.Any("panic", rec),
					logfields.RequestID(RequestID(r.Context())),
					logfields.Path(r.URL.Path),
					logfields.Method(r.Method))

				panicErr := derrors.InternalError("internal server error").
					WithContext("path", r.URL.Path).
					WithContext("method", r.Method).
					Build()

				adapter.WriteErrorResponse(w, r, panicErr)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures status codes for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
