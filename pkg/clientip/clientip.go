package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders are consulted when a Resolver is built without headers.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Resolver extracts the client IP from a request.
type Resolver struct {
	headers []string
}

// NewResolver trusts the given headers in priority order. With no headers
// only the peer address is used.
func NewResolver(headers ...string) *Resolver {
	return &Resolver{headers: headers}
}

// Default returns a Resolver trusting DefaultHeaders.
func Default() *Resolver {
	return NewResolver(DefaultHeaders...)
}

// Resolve returns the normalized client IP, or "" if none is valid.
func (res *Resolver) Resolve(r *http.Request) string {
	for _, h := range res.headers {
		raw := r.Header.Get(h)
		if raw == "" {
			continue
		}
		for part := range strings.SplitSeq(raw, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// Middleware stores the resolved IP in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), res.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func normalize(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}
