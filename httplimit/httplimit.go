// Package httplimit provides an http.RoundTripper that enforces a global
// ceiling on concurrent outbound requests. The LLM and search adapters share
// one limited client so the process as a whole respects backend rate limits.
package httplimit

import (
	"net"
	"net/http"
	"time"
)

// Transport wraps a base RoundTripper with a concurrency semaphore.
type Transport struct {
	base http.RoundTripper
	sem  chan struct{}
}

// NewTransport creates a Transport allowing at most max concurrent requests.
// If max <= 0 the transport is unlimited. If base is nil a transport with
// sane connect and header timeouts is used.
func NewTransport(max int, base http.RoundTripper) *Transport {
	if base == nil {
		base = defaultBase()
	}
	t := &Transport{base: base}
	if max > 0 {
		t.sem = make(chan struct{}, max)
	}
	return t
}

// NewClient returns an *http.Client with the given request timeout and a
// concurrency-limited transport.
func NewClient(max int, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewTransport(max, nil),
		Timeout:   timeout,
	}
}

// RoundTrip acquires a slot before delegating to the base transport.
// Acquisition honors the request context, so run-level cancellation is not
// blocked behind the semaphore.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.sem != nil {
		select {
		case t.sem <- struct{}{}:
			defer func() { <-t.sem }()
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	return t.base.RoundTrip(req)
}

func defaultBase() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second, // connect timeout
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}
