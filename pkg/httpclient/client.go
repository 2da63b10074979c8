// Package httpclient provides a configurable HTTP client with proxy support.
package httpclient

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/logging"
)

// Client wraps http.Client with proxy routing and connection pooling.
type Client struct {
	defaultClient *http.Client
	utlsClient    *http.Client // Client with browser-like TLS fingerprint
	proxyClients  map[string]*http.Client
	globalProxies []string
	mu            sync.RWMutex
	log           *logging.Logger
}

// Short-link and app-redirect hosts that fingerprint the TLS handshake and
// serve interstitial pages to non-browser clients.
var utlsDomains = []string{
	"vm.tiktok.com",
	"vt.tiktok.com",
	"fb.watch",
	"t.co",
}

// ipv4Dialer creates a dialer that only uses IPv4.
// This avoids issues with IPv6 connectivity in environments where IPv6 is not available.
func ipv4Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 60 * time.Second,
	}
}

// ipv4DialContext forces IPv4-only connections.
func ipv4DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" {
		network = "tcp4"
	}
	return ipv4Dialer().DialContext(ctx, network, addr)
}

// New creates a new HTTP client with the given configuration.
func New(cfg *config.Config, log *logging.Logger) *Client {
	c := &Client{
		proxyClients:  make(map[string]*http.Client),
		globalProxies: cfg.GlobalProxies,
		log:           log.WithComponent("httpclient"),
	}

	c.defaultClient = &http.Client{
		Transport: &http.Transport{
			DialContext:           ipv4DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	c.utlsClient = &http.Client{
		Transport: newUTLSRoundTripper(),
		Timeout:   30 * time.Second,
	}

	return c
}

// utlsRoundTripper implements http.RoundTripper with utls and HTTP/2 support.
type utlsRoundTripper struct {
	dialer      *net.Dialer
	h2Transport *http2.Transport
}

func newUTLSRoundTripper() *utlsRoundTripper {
	return &utlsRoundTripper{
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 60 * time.Second,
		},
		h2Transport: &http2.Transport{
			DisableCompression: false,
			AllowHTTP:          false,
		},
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Only handle HTTPS
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	addr := req.URL.Host
	if !strings.Contains(addr, ":") {
		addr = addr + ":443"
	}

	conn, err := t.dialer.DialContext(req.Context(), "tcp4", addr)
	if err != nil {
		return nil, err
	}

	tlsConfig := &utls.Config{
		ServerName: req.URL.Hostname(),
	}

	// Chrome 120 fingerprint with HTTP/2
	utlsConn := utls.UClient(conn, tlsConfig, utls.HelloChrome_120)

	if err := utlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	alpn := utlsConn.ConnectionState().NegotiatedProtocol

	if alpn == "h2" {
		h2Conn, err := t.h2Transport.NewClientConn(utlsConn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2Conn.RoundTrip(req)
	}

	// Fallback to HTTP/1.1
	return t.doHTTP1Request(utlsConn, req)
}

func (t *utlsRoundTripper) doHTTP1Request(conn net.Conn, req *http.Request) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Wrap body to close connection when done
	resp.Body = &connCloser{resp.Body, conn}
	return resp, nil
}

type connCloser struct {
	io.ReadCloser
	conn net.Conn
}

func (c *connCloser) Close() error {
	c.ReadCloser.Close()
	return c.conn.Close()
}

// needsUTLS returns true if the URL requires browser-like TLS fingerprinting.
func (c *Client) needsUTLS(targetURL string) bool {
	lower := strings.ToLower(targetURL)
	for _, domain := range utlsDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// Do executes an HTTP request, routing through proxies as configured.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	client := c.getClientForURL(req.URL.String())
	return client.Do(req)
}

// Get issues a GET with context, following redirects.
func (c *Client) Get(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// getClientForURL returns the appropriate HTTP client based on URL routing rules.
func (c *Client) getClientForURL(targetURL string) *http.Client {
	if c.needsUTLS(targetURL) {
		c.log.Debug("using utls client for fingerprint-sensitive host", "url", targetURL)
		return c.utlsClient
	}

	if len(c.globalProxies) > 0 {
		proxyURL := c.globalProxies[0]
		c.log.Debug("using global proxy", "url", targetURL, "proxy", proxyURL)
		return c.getOrCreateProxyClient(proxyURL)
	}

	return c.defaultClient
}

// getOrCreateProxyClient returns a cached proxy client or creates a new one.
func (c *Client) getOrCreateProxyClient(proxyURL string) *http.Client {
	c.mu.RLock()
	if client, ok := c.proxyClients[proxyURL]; ok {
		c.mu.RUnlock()
		return client
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.proxyClients[proxyURL]; ok {
		return client
	}

	client := c.createProxyClient(proxyURL)
	c.proxyClients[proxyURL] = client
	c.log.Debug("created proxy client", "proxy", proxyURL)

	return client
}

// createProxyClient creates a new HTTP client for the given proxy.
func (c *Client) createProxyClient(proxyURL string) *http.Client {
	transport := &http.Transport{
		DialContext:           ipv4DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		c.log.Error("failed to parse proxy URL", "url", proxyURL, "error", err)
		return c.defaultClient
	}

	switch parsedURL.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsedURL, proxy.Direct)
		if err != nil {
			c.log.Error("failed to create SOCKS5 dialer", "error", err)
			return c.defaultClient
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	default:
		c.log.Warn("unsupported proxy scheme", "scheme", parsedURL.Scheme)
		return c.defaultClient
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}
