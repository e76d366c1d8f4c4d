// Package transport provides the HTTP round-trippers used for outbound calls
// to the payment provider and the store.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Kind names a round-tripper implementation.
type Kind string

const (
	// Standard is Go's default TLS stack.
	Standard Kind = "standard"
	// Chrome presents Chrome's TLS fingerprint. See NewChromeTransport.
	Chrome Kind = "chrome"
)

// New returns the round-tripper for kind. An empty kind is Standard.
func New(kind Kind, timeout time.Duration) (http.RoundTripper, error) {
	switch kind {
	case "", Standard:
		return newStandardTransport(timeout), nil
	case Chrome:
		return NewChromeTransport(timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %q or %q)", kind, Standard, Chrome)
	}
}

// newStandardTransport clones the default transport with bounded dial and
// handshake timeouts.
func newStandardTransport(timeout time.Duration) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// errNoH2 means the server chose HTTP/1.1 during the handshake. No request
// bytes were written on that connection.
var errNoH2 = errors.New("server did not negotiate h2")

// NewChromeTransport returns a round-tripper that presents Chrome's TLS
// fingerprint. Some storefront CDNs throttle the Go fingerprint on the
// Store API, which the shopper's checkout cannot afford.
//
// HTTP/2 is used when the server negotiates it. A request moves to HTTP/1.1
// only when the handshake settled on it, so a capture or refund that may
// have reached the provider is never sent a second time.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	h2 := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			conn, err := dialChromeTLS(ctx, dialer, network, addr)
			if err != nil {
				return nil, err
			}
			if conn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
				conn.Close()
				return nil, errNoH2
			}
			return conn, nil
		},
	}

	h1 := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     false,
	}

	return &chromeTransport{h2: h2, h1: h1}
}

type chromeTransport struct {
	h2 http.RoundTripper
	h1 http.RoundTripper

	// h1Hosts holds the hosts that declined h2.
	h1Hosts sync.Map
}

func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := t.h1Hosts.Load(req.URL.Host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if !errors.Is(err, errNoH2) {
		return resp, err
	}
	t.h1Hosts.Store(req.URL.Host, struct{}{})

	retry, rerr := rewind(req)
	if rerr != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, rerr)
	}
	return t.h1.RoundTrip(retry)
}

// rewind returns req with a fresh body for a second attempt.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%w and the request body cannot be replayed", errNoH2)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	retry := req.Clone(req.Context())
	retry.Body = body
	return retry, nil
}

// dialChromeTLS dials addr and completes a handshake with Chrome's hello,
// which offers h2 and http/1.1.
func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return tlsConn, nil
}
