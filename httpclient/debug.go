package httpclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// redactedHeaders never appear in debug output.
var redactedHeaders = map[string]struct{}{
	http.CanonicalHeaderKey(APIKeyHeader): {},
	"Authorization":                       {},
}

func redact(key, value string) string {
	if _, ok := redactedHeaders[http.CanonicalHeaderKey(key)]; ok {
		return "***"
	}
	return value
}

// curlCommand renders req as a reproducible cURL invocation with the
// credential masked.
//
//	curl -X POST 'https://api.swarms.world/v1/agent/completions' \
//	  -H 'X-Api-Key: ***' -d '{"task":"..."}'
func curlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}
	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}
	parts = append(parts, fmt.Sprintf("'%s'", req.URL.String()))

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range req.Header[k] {
			parts = append(parts, "-H", fmt.Sprintf("'%s: %s'", k, redact(k, v)))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "-d", fmt.Sprintf("'%s'", strings.ReplaceAll(string(body), "'", `'\''`)))
	}
	return strings.Join(parts, " ")
}

func logRequest(logger zerolog.Logger, operation string, req *http.Request, body []byte) {
	logger.Debug().
		Str("operation", operation).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Str("curl", curlCommand(req, body)).
		Msg("HTTP request")
}

func logResponse(logger zerolog.Logger, operation string, resp *Response, duration time.Duration) {
	logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode()).
		Dur("duration", duration).
		Int("size", len(resp.Body())).
		Msg("HTTP response")
}

func logFailure(logger zerolog.Logger, operation string, f *Failure, duration time.Duration) {
	ev := logger.Debug().
		Str("operation", operation).
		Stringer("kind", f.Kind).
		Dur("duration", duration)
	if f.StatusCode > 0 {
		ev = ev.Int("status", f.StatusCode)
	}
	ev.Err(f.Err).Msg("HTTP attempt failed")
}
