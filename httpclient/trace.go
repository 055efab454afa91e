package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications for the error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeEOF               = "eof"
	ErrorTypeCircuitOpen       = "circuit_open"
	ErrorTypeRateLimited       = "rate_limited"
	ErrorTypeUnknown           = "unknown"
)

// errorType returns a low-cardinality error.type value for err.
func errorType(err error) string {
	var (
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		recErr  tls.RecordHeaderError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrorTypeCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return ErrorTypeRateLimited
	case errors.Is(err, context.DeadlineExceeded), isTimeoutError(err):
		return ErrorTypeTimeout
	case errors.As(err, &dnsErr):
		return ErrorTypeDNSError
	case errors.As(err, &certErr), errors.As(err, &recErr):
		return ErrorTypeTLSError
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionReset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorTypeEOF
	default:
		return ErrorTypeUnknown
	}
}

// setSpanError records err on the span with error status and type.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
