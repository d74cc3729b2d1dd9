package api

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/metrics"
	"github.com/okian/genie/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/okian/genie/internal/adapters/http/api") //nolint:gochecknoglobals // package tracer

// Instrument wraps next with request metrics, a span and a debug log line.
// endpoint is the low-cardinality route label.
func Instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	log := logger.Get().Named("api")
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), "http "+endpoint)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Milliseconds()))
		span.SetAttributes(attribute.String("http.method", r.Method), attribute.Int("http.status_code", rec.status))

		if rec.status >= http.StatusBadRequest {
			kind := errorKind(rec.status)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByComponent("api", kind)
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, kind)
			}
		}
		log.Debug(ctx, "request",
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.Int("status", rec.status),
			logger.Duration("took", time.Since(start)),
		)
	}
}

// errorKind maps a status to the error_type label.
func errorKind(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadGateway:
		return "no_valid_response"
	case http.StatusServiceUnavailable:
		return "no_solvers"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}
