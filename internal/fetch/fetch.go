package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrTimeout marks a fetch that did not complete within the configured
// deadline. errors.Is(err, ErrTimeout) distinguishes it from other transport
// failures.
var ErrTimeout = errors.New("timeout")

const defaultTimeout = 10 * time.Second

// Options describes the target endpoint. The URL is assembled from its
// structural parts; HostHeader rides separately as a header value so a
// virtual host can be probed while connecting to a fixed address.
type Options struct {
	Scheme string // "http" | "https"
	Host   string
	Port   int    // 0 selects the scheme default
	Path   string // may carry a query, e.g. "/server-status?auto"

	HostHeader string // optional Host override
	Username   string // basic auth; empty disables
	Password   string

	InsecureSkipVerify bool // skip TLS certificate verification
	PreferIPv6         bool // dial tcp6 instead of letting the resolver pick

	Timeout time.Duration
}

// Client fetches the status page. Build it once and reuse it; the underlying
// http.Client is constructed a single time.
type Client struct {
	opts Options
	url  string
	http *http.Client
}

// New builds a Client for the given target.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		opts: opts,
		url:  buildURL(opts),
		http: buildHTTPClient(opts),
	}
}

// URL returns the assembled target URL.
func (c *Client) URL() string {
	return c.url
}

// Fetch retrieves the status page body. The deadline covers connecting,
// writing, and reading the full body; when it fires the in-flight request is
// abandoned and the returned error unwraps to ErrTimeout.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	if c.opts.HostHeader != "" {
		req.Host = c.opts.HostHeader
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch: %s returned HTTP %d", c.url, resp.StatusCode)
	}
	return string(body), nil
}

// classify wraps a transport error, folding deadline expiry into ErrTimeout.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("fetch: %w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("fetch: %w", err)
}

// buildURL assembles the target URL from structural parts. The port is
// dropped when it matches the scheme default so identities stay stable
// whether or not the operator spelled it out.
func buildURL(opts Options) string {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "http"
	}

	host := opts.Host
	if opts.Port != 0 && opts.Port != schemeDefaultPort(scheme) {
		host = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	} else if strings.Contains(opts.Host, ":") {
		// Bare IPv6 literal still needs brackets.
		host = "[" + opts.Host + "]"
	}

	u := url.URL{Scheme: scheme, Host: host}
	path := opts.Path
	if path == "" {
		path = "/server-status?auto"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		u.Path, u.RawQuery = path[:i], path[i+1:]
	} else {
		u.Path = path
	}
	return u.String()
}

func schemeDefaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// basicAuthRoundTripper injects the Authorization header into every request.
type basicAuthRoundTripper struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs the http.Client for the target's TLS, auth, and
// dialing settings.
func buildHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // user-configured
		},
	}

	if opts.PreferIPv6 {
		dialer := &net.Dialer{}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp6", addr)
		}
	}

	var rt http.RoundTripper = transport
	if opts.Username != "" {
		rt = &basicAuthRoundTripper{base: transport, username: opts.Username, password: opts.Password}
	}

	// The context deadline in Fetch is the single timeout authority; no
	// second client-level timer.
	return &http.Client{Transport: rt}
}
