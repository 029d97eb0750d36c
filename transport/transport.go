// Package transport supplies outbound HTTP(S) connectivity for every
// external call in the pipeline, optionally routed through a SOCKS5 proxy.
// Callers only ever see a response or a TransportError with a retry hint.
package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"

	"news-bureau/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// uaTransport adds a browser User-Agent header to every request.
type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

// Client wraps an http.Client and classifies failures into TransportError.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client with the given per-request timeout. When socks5URL is
// non-empty all connections are dialed through that proxy.
func New(socks5URL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	if socks5URL != "" {
		u, err := url.Parse(socks5URL)
		if err != nil {
			return nil, err
		}
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
		base.Proxy = nil
		logger.Info("Outbound proxy enabled", zap.String("proxy", u.Host))
	} else {
		logger.Info("Outbound proxy disabled, using direct connections")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &uaTransport{base: base},
		},
		logger: logger,
	}, nil
}

// Do executes the request. Network failures and retryable HTTP statuses
// (429, 5xx) come back as a TransportError with Retryable set; other non-2xx
// statuses are TransportErrors that should not be retried. The body of a
// failed response is drained and closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	op := req.Method + " " + req.URL.Host

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransportError{Op: op, Retryable: true, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	return nil, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Retryable: retryable}
}

// Get issues a GET request with the client's classification rules.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &models.TransportError{Op: "GET", Err: err}
	}
	return c.Do(req)
}

// Post issues a POST request with the given content type and body.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, &models.TransportError{Op: "POST", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// RedactKey masks an API key or token when it appears in a URL destined for
// logs.
func RedactKey(rawURL, key string) string {
	if key == "" {
		return rawURL
	}
	return strings.ReplaceAll(rawURL, key, "***")
}
