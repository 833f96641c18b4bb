package api

import "net/http"

// HeaderAPIKey carries the shared secret on protected routes.
const HeaderAPIKey = "X-API-Key"

// IsAuthorized reports whether h carries exactly configuredKey. The
// comparison is plain equality, not constant-time.
func IsAuthorized(configuredKey string, h http.Header) bool {
	if configuredKey == "" {
		return false
	}
	values := h.Values(HeaderAPIKey)
	if len(values) == 0 {
		return false
	}
	return values[0] == configuredKey
}
