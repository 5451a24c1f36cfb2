package logger

import (
	"net/http"
	"sort"
	"strings"
)

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

func redactHeaderValue(name, value string) string {
	if redactedHeaders[http.CanonicalHeaderKey(name)] {
		if value == "" {
			return ""
		}
		return "[redacted]"
	}
	return value
}

// SafeHeaders renders headers as "k=v; k=v" with credentials redacted.
func SafeHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			parts = append(parts, k+"="+redactHeaderValue(k, v))
		}
	}
	return strings.Join(parts, "; ")
}

// LogRequest logs a concise, safe summary of an incoming request.
func LogRequest(method, path, remote string, h http.Header) {
	if Log == nil {
		return
	}
	Debug("incoming_request", "method", method, "path", path, "remote", remote, "headers", SafeHeaders(h))
}
