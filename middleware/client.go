package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/authgate"
)

// ClientInfo records the remote address and user agent on the request context. Mount
// it after any proxy-header middleware that rewrites RemoteAddr.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authgate.WithClientIP(r.Context(), remoteIP(r.RemoteAddr))
		ctx = authgate.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
