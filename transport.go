package csda

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-openapi/runtime"
)

// maxErrorBodySize limits how much of a response body is kept on an
// [Error].
const maxErrorBodySize = 4096

// maxMessageBodySize is how much of the body is quoted in an error message.
const maxMessageBodySize = 512

// Request describes a single call to the CSDA API.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// Path is resolved against the base URL with [Client.ResolveURL]. An
	// absolute URL is used as is.
	Path string

	// Params are added to the query string.
	Params url.Values

	// Form is sent as an application/x-www-form-urlencoded body.
	Form url.Values

	// JSON is encoded as the request body. Form and JSON are exclusive.
	JSON any

	// FollowRedirects makes the client follow 3xx responses.
	FollowRedirects bool

	// AllowErrorStatus returns non-2xx responses instead of an error.
	AllowErrorStatus bool

	// Auth is applied to this request only. It is never kept on the
	// client.
	Auth Credential
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect reports whether the status code is 302 or 307.
func (r *Response) IsRedirect() bool {
	return r.StatusCode == http.StatusFound || r.StatusCode == http.StatusTemporaryRedirect
}

// Location returns the Location header.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// DecodeJSON decodes the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := runtime.JSONConsumer().Consume(bytes.NewReader(r.Body), v); err != nil {
		return newError(CodeDecode, "failed to decode response", r.StatusCode, err)
	}
	return nil
}

// Do sends a request and returns the fully read response.
//
// Redirects are not followed unless FollowRedirects is set. A non-2xx
// status is returned as an *Error with [CodeHTTP] unless AllowErrorStatus
// is set.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	if r == nil {
		return nil, newError(CodeRequestFailed, "request is required", 0, nil)
	}
	start := time.Now()

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.client(r.FollowRedirects).Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, newError(CodeRequestFailed, fmt.Sprintf("%s %s", req.Method, req.URL.Redacted()), 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(CodeRequestFailed, "failed to read response body", resp.StatusCode, err)
	}

	c.logger.Debug("HTTP request completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if !r.AllowErrorStatus && !response.OK() {
		return nil, statusError(req, resp.StatusCode, body)
	}
	return response, nil
}

func (c *Client) newRequest(ctx context.Context, r *Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.ResolveURL(r.Path)
	if err != nil {
		return nil, err
	}
	if len(r.Params) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return nil, newError(CodeInvalidURL, "invalid URL "+target, 0, err)
		}
		query := u.Query()
		for key, values := range r.Params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		u.RawQuery = query.Encode()
		target = u.String()
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, newError(CodeRequestFailed, "failed to create request", 0, err)
	}

	c.mu.RLock()
	for key, values := range c.header {
		req.Header[key] = append([]string(nil), values...)
	}
	c.mu.RUnlock()

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(runtime.HeaderAccept, runtime.JSONMime)
	if contentType != "" {
		req.Header.Set(runtime.HeaderContentType, contentType)
	}

	if r.Auth != nil {
		if err := r.Auth.Apply(req); err != nil {
			return nil, &Error{
				Code:    CodeAuthCredential,
				Message: "failed to apply credential",
				Cause:   err,
			}
		}
	}

	return req, nil
}

func encodeBody(r *Request) (io.Reader, string, error) {
	switch {
	case r.Form != nil && r.JSON != nil:
		return nil, "", newError(CodeRequestFailed, "request cannot have both form and JSON bodies", 0, nil)
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), runtime.URLencodedFormMime, nil
	case r.JSON != nil:
		var buf bytes.Buffer
		if err := runtime.JSONProducer().Produce(&buf, r.JSON); err != nil {
			return nil, "", newError(CodeRequestFailed, "failed to encode request body", 0, err)
		}
		return &buf, runtime.JSONMime, nil
	}
	return http.NoBody, "", nil
}

// client returns the HTTP client to use for a request. Redirects are
// disabled on a shallow copy so the shared connection pool is kept.
func (c *Client) client(followRedirects bool) *http.Client {
	if followRedirects {
		return c.httpClient
	}
	hc := *c.httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &hc
}

func statusError(req *http.Request, status int, body []byte) *Error {
	msg := fmt.Sprintf("%s %s returned %d %s", req.Method, req.URL.Path, status, http.StatusText(status))
	if s := snippet(body); s != "" {
		msg += ": " + s
	}
	return &Error{
		Code:    CodeHTTP,
		Message: msg,
		Status:  status,
		Body:    truncateBody(body),
	}
}

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBodySize {
		return string(body)
	}
	return string(body[:maxErrorBodySize]) + "...[truncated]"
}

// snippet returns the start of body for use in an error message.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxMessageBodySize {
		s = s[:maxMessageBodySize] + "..."
	}
	return s
}
