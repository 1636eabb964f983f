package httpx

import (
	"net"
	"net/http"
	"strings"
)

// clientKey identifies the caller for rate limiting. Trusts the first
// X-Forwarded-For hop when present (the deployment fronts services with a
// proxy), otherwise falls back to the remote address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
