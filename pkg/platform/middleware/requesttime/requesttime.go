// Package requesttime stamps each request with a single "now" plus client
// metadata, so every downstream read within the request agrees on time,
// IP, and User-Agent.
package requesttime

import (
	"net"
	"net/http"
	"strings"
	"time"

	"authgate/pkg/requestcontext"
)

// Middleware captures the current time and client metadata at the start of
// the request and stores them in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers X-Forwarded-For (first hop) over RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
