package transcriber

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// NetworkMetrics are the timings of one HTTP exchange with the remote API.
type NetworkMetrics struct {
	DNS         time.Duration
	Connect     time.Duration
	TLS         time.Duration
	TTFB        time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

// tracer is an http.RoundTripper that records NetworkMetrics for each
// request. A request's metrics become visible through Last once the SDK has
// closed the response body.
type tracer struct {
	base http.RoundTripper

	mu   sync.Mutex
	last NetworkMetrics
}

func newTracer() *tracer {
	return &tracer{base: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     2 * time.Minute,
		ForceAttemptHTTP2:   true,
	}}
}

func (t *tracer) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *tracer) RoundTrip(req *http.Request) (*http.Response, error) {
	var m NetworkMetrics
	var dnsAt, connectAt, tlsAt, wroteAt time.Time
	start := time.Now()

	ct := &httptrace.ClientTrace{
		GotConn:           func(info httptrace.GotConnInfo) { m.ConnReused = info.Reused },
		DNSStart:          func(httptrace.DNSStartInfo) { dnsAt = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { m.DNS = time.Since(dnsAt) },
		ConnectStart:      func(_, _ string) { connectAt = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { m.Connect = time.Since(connectAt) },
		TLSHandshakeStart: func() { tlsAt = time.Now() },
		TLSHandshakeDone: func(st tls.ConnectionState, _ error) {
			m.TLS = time.Since(tlsAt)
			m.TLSProtocol = st.NegotiatedProtocol
		},
		WroteRequest:         func(httptrace.WroteRequestInfo) { wroteAt = time.Now() },
		GotFirstResponseByte: func() { m.TTFB = time.Since(wroteAt) },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), ct))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &closeHook{ReadCloser: resp.Body, fn: func() {
		m.Total = time.Since(start)
		t.mu.Lock()
		t.last = m
		t.mu.Unlock()
	}}
	return resp, nil
}

// Last returns the metrics of the most recently completed exchange.
func (t *tracer) Last() NetworkMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Warm opens a pooled connection to url with a HEAD request so the next
// upload skips the handshake.
func (t *tracer) Warm(url string) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

type closeHook struct {
	io.ReadCloser
	once sync.Once
	fn   func()
}

func (c *closeHook) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.fn)
	return err
}
