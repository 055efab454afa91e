package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/sony/gobreaker/v2"
)

// DefaultRetryableStatus is the status set treated as transient unless
// overridden with WithRetryableStatus.
var DefaultRetryableStatus = []int{
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// Classifier maps the outcome of one attempt to a Failure variant.
//
// Classification rules:
//   - Status < 400: success, no failure
//   - Status in the retryable set: KindTransient
//   - Any other status >= 400: KindPermanent
//   - Deadline exceeded / net timeouts: KindTimeout
//   - TLS certificate errors, NXDOMAIN, open circuit: KindPermanent
//   - Every other transport error (refused, reset, EOF, temporary DNS): KindTransport
type Classifier struct {
	retryable map[int]struct{}
}

// NewClassifier creates a Classifier retrying on the given status codes.
// With no codes, DefaultRetryableStatus is used.
func NewClassifier(codes ...int) *Classifier {
	if len(codes) == 0 {
		codes = DefaultRetryableStatus
	}
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &Classifier{retryable: set}
}

// RetryableStatus returns the configured retryable status codes in ascending order.
func (c *Classifier) RetryableStatus() []int {
	out := make([]int, 0, len(c.retryable))
	for code := range c.retryable {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

// IsRetryableStatus reports whether status is in the retryable set.
func (c *Classifier) IsRetryableStatus(status int) bool {
	_, ok := c.retryable[status]
	return ok
}

// ClassifyStatus returns the failure kind for an HTTP status, or 0 when the
// status is not a failure.
func (c *Classifier) ClassifyStatus(status int) Kind {
	if status < 400 {
		return 0
	}
	if c.IsRetryableStatus(status) {
		return KindTransient
	}
	return KindPermanent
}

// ClassifyError returns the failure kind for a transport-level error.
func (c *Classifier) ClassifyError(err error) Kind {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindPermanent
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindPermanent
	case isTimeoutError(err):
		return KindTimeout
	case isPermanentError(err):
		return KindPermanent
	default:
		return KindTransport
	}
}

// isTimeoutError reports net.Error timeouts that are not context deadlines.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
		return true
	}
	return false
}

// isRetryableNetworkError returns true for network errors that are
// typically transient and may succeed on retry.
func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return containsPattern(err, transientPatterns)
}

// isPermanentError returns true for errors that will not succeed
// on retry and should fail immediately.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	// Host doesn't exist (NXDOMAIN)
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.EACCES) {
		return true
	}

	// Retryable syscall errors take precedence over message patterns.
	if isRetryableNetworkError(err) {
		return false
	}

	return containsPattern(err, permanentPatterns)
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"network is down",
	"network unreachable",
	"i/o timeout",
	"temporary failure",
	"server closed",
	"broken pipe",
	"eof",
}

var permanentPatterns = []string{
	"x509:",
	"certificate",
	"tls:",
	"unsupported protocol scheme",
	"permission denied",
}

// containsPattern is a fallback for wrapped errors where type checks fail.
func containsPattern(err error, patterns []string) bool {
	errStr := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
