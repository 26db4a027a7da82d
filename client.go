package csda

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Well-known CSDA instances.
const (
	StagingURL    = "https://csdap-staging.ds.io"
	ProductionURL = "https://csdap.earthdata.nasa.gov"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultChunkSize = 8 * 1024
)

// Client is a CSDA API client. It is the session: it owns the base URL,
// the HTTP connection pool and the default request headers.
//
// A Client starts unauthenticated. A successful [Client.Login] installs
// the bearer token; a failed one leaves the headers untouched.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	userAgent  string
	chunkSize  int

	mu        sync.RWMutex
	header    http.Header
	authState AuthState

	closeOnce sync.Once
}

// New creates a new, unauthenticated CSDA client.
//
// Without options the client targets [ProductionURL] with its own
// connection pool and a 60 second timeout.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   ProductionURL,
		logger:    slog.Default(),
		userAgent: UserAgent(),
		chunkSize: defaultChunkSize,
		header:    make(http.Header),
	}

	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// URL returns the base URL of the CSDA instance.
func (c *Client) URL() string {
	return c.baseURL
}

// ResolveURL resolves path against the base URL using standard reference
// resolution: an absolute path replaces the base path, a relative one is
// joined to the base directory, and an absolute URL replaces the base.
func (c *Client) ResolveURL(path string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", newError(CodeInvalidURL, "invalid base URL", 0, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", newError(CodeInvalidURL, "invalid path "+path, 0, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Header returns a copy of the default headers sent with every request.
func (c *Client) Header() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.header.Clone()
}

// IsAuthenticated reports whether a bearer token has been installed.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.header.Get("Authorization") != ""
}

// AuthState returns where the client is in the login handshake:
// [StateUnauthenticated] before any login, [StateAuthenticated] once a
// token is installed, and [StateAuthFailed] after a failed login on a
// client that holds no token.
func (c *Client) AuthState() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authState
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.Set("Authorization", "Bearer "+token)
	c.authState = StateAuthenticated
}

// loginFailed records a failed handshake. A client that is already
// authenticated keeps its token and its state.
func (c *Client) loginFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authState != StateAuthenticated {
		c.authState = StateAuthFailed
	}
}

// Close releases the client's idle connections. It is safe to call more
// than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.httpClient.CloseIdleConnections()
	})
	return nil
}
