package middleware

import (
	"net"
	"net/http"

	"nochex-be/internal/transport"
)

// TrustedRealIP rewrites r.RemoteAddr to the forwarded client address when
// the request arrived through one of proxies. Requests from any other peer
// keep their socket address and their forwarding headers are ignored.
func TrustedRealIP(proxies *transport.Proxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := transport.ClientIP(r)
			if ip := proxies.ClientIP(r); ip != peer {
				port := "0"
				if _, p, err := net.SplitHostPort(r.RemoteAddr); err == nil {
					port = p
				}
				r.RemoteAddr = net.JoinHostPort(ip, port)
			}
			next.ServeHTTP(w, r)
		})
	}
}
