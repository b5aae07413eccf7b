package transport

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// MaxFormBytes caps the body accepted from the gateway.
const MaxFormBytes = 64 << 10

// Inbound is everything a handler needs from an inbound form post, captured
// once so downstream code never reads the *http.Request.
type Inbound struct {
	RemoteIP   string
	Fields     url.Values
	Query      url.Values
	ReceivedAt time.Time
}

// FromRequest parses the form body of r. Query values are kept apart from
// the posted fields.
func FromRequest(w http.ResponseWriter, r *http.Request) (*Inbound, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	fields := make(url.Values, len(r.PostForm))
	for k, v := range r.PostForm {
		fields[k] = append([]string(nil), v...)
	}

	return &Inbound{
		RemoteIP:   ClientIP(r),
		Fields:     fields,
		Query:      r.URL.Query(),
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// ClientIP is the socket peer of r. Forwarding headers are only honoured
// through Proxies.ClientIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
