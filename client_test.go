package csda_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-impact/csda-go"
)

// mustEncode encodes v as JSON and writes it to w.
// Panics on error - safe in tests since errors indicate test bugs.
func mustEncode(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("failed to encode response: " + err.Error())
	}
}

// mustDecode decodes JSON from r.Body into v.
// Panics on error - safe in tests since errors indicate test bugs.
func mustDecode(r *http.Request, v interface{}) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		panic("failed to decode request: " + err.Error())
	}
}

// TestNew_Defaults verifies a new client targets production and is not
// authenticated.
func TestNew_Defaults(t *testing.T) {
	client := csda.New()
	defer client.Close()

	assert.Equal(t, csda.ProductionURL, client.URL())
	assert.False(t, client.IsAuthenticated())
	assert.Equal(t, csda.StateUnauthenticated, client.AuthState())
	assert.Empty(t, client.Header().Get("Authorization"))
}

// TestResolveURL tests standard reference resolution against the base URL.
func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"absolute path replaces base path", "https://host/x/", "/a/b", "https://host/a/b"},
		{"relative path joins base directory", "https://host/x/", "rel", "https://host/x/rel"},
		{"relative path without trailing slash", "https://host/x", "rel", "https://host/rel"},
		{"absolute URL replaces base", "https://host/x/", "https://other.example/oauth/authorize", "https://other.example/oauth/authorize"},
		{"query is kept", "https://host", "/p?vendor=3", "https://host/p?vendor=3"},
		{"empty path is the base", "https://host/x/", "", "https://host/x/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := csda.New(csda.WithBaseURL(tt.base))

			got, err := client.ResolveURL(tt.path)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestResolveURL_Invalid tests that an unparseable path is an INVALID_URL
// error.
func TestResolveURL_Invalid(t *testing.T) {
	client := csda.New(csda.WithBaseURL("https://host/"))

	_, err := client.ResolveURL("http://[::1")

	require.Error(t, err)
	assert.ErrorIs(t, err, csda.ErrInvalidURL)
}

// TestDo_Request verifies method, query, headers and body encoding.
func TestDo_Request(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/thing", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("vendor"))
		assert.Equal(t, "csda-go/"+csda.Version, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		mustDecode(r, &body)
		assert.Equal(t, "value", body["key"])

		mustEncode(w, map[string]string{"ok": "yes"})
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))

	// Act
	resp, err := client.Do(context.Background(), &csda.Request{
		Method: http.MethodPost,
		Path:   "/api/thing?vendor=3",
		JSON:   map[string]string{"key": "value"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var decoded map[string]string
	require.NoError(t, resp.DecodeJSON(&decoded))
	assert.Equal(t, "yes", decoded["ok"])
}

// TestDo_Form verifies form bodies are URL encoded.
func TestDo_Form(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "abc def", r.PostForm.Get("code"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))
	resp, err := client.Do(context.Background(), &csda.Request{
		Method: http.MethodPost,
		Path:   "/form",
		Form:   map[string][]string{"code": {"abc def"}},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// TestDo_ErrorStatus verifies non-2xx responses are returned as HTTP errors
// carrying status and body.
func TestDo_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))
	resp, err := client.Do(context.Background(), &csda.Request{Path: "/missing"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, csda.ErrHTTP)

	var apiErr *csda.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, csda.CodeHTTP, apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Not found.")
	assert.Contains(t, apiErr.Error(), "404")
	assert.Contains(t, apiErr.Error(), "Not found.")
}

// TestDo_ErrorBodyTruncated verifies large error bodies are truncated.
func TestDo_ErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 10000))
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))
	_, err := client.Do(context.Background(), &csda.Request{Path: "/"})

	var apiErr *csda.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Less(t, len(apiErr.Body), 5000)
	assert.True(t, strings.HasSuffix(apiErr.Body, "...[truncated]"))
	assert.Less(t, len(apiErr.Message), 1000)
}

// TestDo_AllowErrorStatus verifies error statuses can be inspected by the
// caller.
func TestDo_AllowErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "denied")
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))
	resp, err := client.Do(context.Background(), &csda.Request{Path: "/", AllowErrorStatus: true})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "denied", resp.Text())
}

// TestDo_Redirects verifies redirects are only followed on request.
func TestDo_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "arrived")
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))

	t.Run("not followed by default", func(t *testing.T) {
		resp, err := client.Do(context.Background(), &csda.Request{Path: "/start", AllowErrorStatus: true})

		require.NoError(t, err)
		assert.True(t, resp.IsRedirect())
		assert.Equal(t, "/end", resp.Location())
	})

	t.Run("redirect is an error without AllowErrorStatus", func(t *testing.T) {
		_, err := client.Do(context.Background(), &csda.Request{Path: "/start"})

		assert.ErrorIs(t, err, csda.ErrHTTP)
	})

	t.Run("followed when requested", func(t *testing.T) {
		resp, err := client.Do(context.Background(), &csda.Request{Path: "/start", FollowRedirects: true})

		require.NoError(t, err)
		assert.Equal(t, "arrived", resp.Text())
	})
}

// TestDo_ContextCanceled verifies transport failures are REQUEST_FAILED
// errors wrapping the cause.
func TestDo_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, &csda.Request{Path: "/slow"})

	require.Error(t, err)
	assert.ErrorIs(t, err, csda.ErrRequestFailed)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// TestDo_BothBodies verifies form and JSON bodies are exclusive.
func TestDo_BothBodies(t *testing.T) {
	client := csda.New(csda.WithBaseURL("http://127.0.0.1:1"))

	_, err := client.Do(context.Background(), &csda.Request{
		Path: "/",
		Form: map[string][]string{"a": {"b"}},
		JSON: map[string]string{"a": "b"},
	})

	assert.ErrorIs(t, err, csda.ErrRequestFailed)
}

// TestWithTimeout verifies the timeout option applies to requests.
func TestWithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := csda.New(csda.WithBaseURL(server.URL), csda.WithTimeout(50*time.Millisecond))
	_, err := client.Do(context.Background(), &csda.Request{Path: "/"})

	assert.ErrorIs(t, err, csda.ErrRequestFailed)
}

// TestWithHTTPClient verifies a custom HTTP client is used.
func TestWithHTTPClient(t *testing.T) {
	var called bool
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
			Request:    r,
		}, nil
	})}

	client := csda.New(csda.WithBaseURL("https://csda.example"), csda.WithHTTPClient(httpClient))
	_, err := client.Do(context.Background(), &csda.Request{Path: "/"})

	require.NoError(t, err)
	assert.True(t, called)
}

// TestClose verifies Close can be called more than once.
func TestClose(t *testing.T) {
	client := csda.New()

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
