package csda

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	authPath       = "/api/v1/auth/"
	authTokenPath  = "/api/v1/auth/token"
	authVerifyPath = "/api/v1/auth/verify"

	providerAuthorizePath = "/oauth/authorize"
)

// AuthState is a state of the Earthdata Login handshake. [Client.AuthState]
// reports the client's current state; an *Error from [Client.Login]
// carries the state the handshake failed in.
type AuthState int

// Handshake states, in the order [Client.Login] walks through them.
const (
	StateUnauthenticated AuthState = iota
	StateAwaitingProviderRedirect
	StateAwaitingProviderAuthResponse
	StateAwaitingTokenExchange
	StateAuthenticated
	StateAuthFailed
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingProviderRedirect:
		return "awaiting provider redirect"
	case StateAwaitingProviderAuthResponse:
		return "awaiting provider auth response"
	case StateAwaitingTokenExchange:
		return "awaiting token exchange"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth failed"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// Open creates a client and logs it in with cred. The client is closed if
// the login fails.
//
// Example:
//
//	client, err := csda.Open(ctx, csda.EnvCredential(), csda.WithBaseURL(csda.StagingURL))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func Open(ctx context.Context, cred Credential, opts ...Option) (*Client, error) {
	c := New(opts...)
	if err := c.Login(ctx, cred); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Login exchanges cred for a bearer token through the Earthdata Login
// redirect handshake and installs it as the client's Authorization header.
//
// The credential is only sent to the identity provider and is not kept.
// On failure the client's headers are left untouched and the returned
// *Error records the state the handshake failed in.
func (c *Client) Login(ctx context.Context, cred Credential) error {
	c.logger.Debug("authenticating with earthdata login", slog.String("url", c.baseURL))

	token, err := c.handshake(ctx, cred)
	if err != nil {
		c.loginFailed()
		return err
	}

	c.setToken(token)
	c.logger.Debug("authenticated with earthdata login")
	return nil
}

func (c *Client) handshake(ctx context.Context, cred Credential) (string, error) {
	providerURL, err := c.requestProviderRedirect(ctx)
	if err != nil {
		return "", err
	}

	code, err := c.authorizeWithProvider(ctx, providerURL, cred)
	if err != nil {
		return "", err
	}

	c.logger.Debug("exchanging authorization code")
	return c.exchangeCode(ctx, code)
}

// requestProviderRedirect asks the service where to authenticate and
// returns the provider URL from the redirect.
func (c *Client) requestProviderRedirect(ctx context.Context) (string, error) {
	resp, err := c.Do(ctx, &Request{
		Path:             authPath,
		Params:           url.Values{"redirect_uri": {c.baseURL}},
		AllowErrorStatus: true,
	})
	if err != nil {
		return "", failed(StateUnauthenticated, err)
	}
	if !resp.IsRedirect() {
		e := newAuthError(StateUnauthenticated, CodeAuthExpectedRedirect,
			fmt.Sprintf("expected redirect from %s, got %d", authPath, resp.StatusCode))
		e.Status = resp.StatusCode
		e.Body = truncateBody(resp.Body)
		return "", e
	}
	return resp.Location(), nil
}

// authorizeWithProvider sends the credential to the provider and returns
// the authorization code from the provider's redirect back to the service.
func (c *Client) authorizeWithProvider(ctx context.Context, providerURL string, cred Credential) (string, error) {
	u, err := url.Parse(providerURL)
	if err != nil || !strings.HasPrefix(u.Path, providerAuthorizePath) {
		e := newAuthError(StateAwaitingProviderRedirect, CodeAuthUnexpectedTarget,
			fmt.Sprintf("unexpected redirect target %q", providerURL))
		e.Cause = err
		return "", e
	}
	if cred == nil {
		return "", newAuthError(StateAwaitingProviderRedirect, CodeAuthCredential, "credential is required")
	}

	resp, err := c.Do(ctx, &Request{
		Path:             providerURL,
		Auth:             cred,
		AllowErrorStatus: true,
	})
	if err != nil {
		return "", failed(StateAwaitingProviderRedirect, err)
	}
	if !resp.IsRedirect() {
		e := newAuthError(StateAwaitingProviderAuthResponse, CodeAuthProviderStatus,
			fmt.Sprintf("expected provider redirect, got %d: %s", resp.StatusCode, snippet(resp.Body)))
		e.Status = resp.StatusCode
		e.Body = truncateBody(resp.Body)
		return "", e
	}

	location, err := url.Parse(resp.Location())
	if err != nil {
		e := newAuthError(StateAwaitingProviderAuthResponse, CodeAuthMissingCode, "invalid provider redirect")
		e.Cause = err
		return "", e
	}
	query := location.Query()

	if query.Has("error") {
		body := resp.Text()
		if resp.StatusCode == http.StatusFound && strings.Contains(body, "resolution_url") {
			resolution := scanResolutionURL(body)
			e := newAuthError(StateAwaitingProviderAuthResponse, CodeAuthResolutionRequired,
				resolutionMessage(resolution))
			e.Status = resp.StatusCode
			e.ResolutionURL = resolution
			return "", e
		}

		detail := query.Get("error_msg")
		if detail == "" {
			detail = query.Get("error")
		}
		e := newAuthError(StateAwaitingProviderAuthResponse, CodeAuthDenied,
			"earthdata login denied access: "+detail)
		e.Status = resp.StatusCode
		return "", e
	}

	code := query.Get("code")
	if code == "" {
		return "", newAuthError(StateAwaitingProviderAuthResponse, CodeAuthMissingCode,
			"provider redirect has no authorization code")
	}
	return code, nil
}

// exchangeCode trades the authorization code for an access token.
func (c *Client) exchangeCode(ctx context.Context, code string) (string, error) {
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   authTokenPath,
		Form:   url.Values{"code": {code}},
	})
	if err != nil {
		return "", failed(StateAwaitingTokenExchange, err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := resp.DecodeJSON(&token); err != nil {
		return "", failed(StateAwaitingTokenExchange, err)
	}
	if token.AccessToken == "" {
		return "", newAuthError(StateAwaitingTokenExchange, CodeAuthMissingToken,
			"token response has no access_token")
	}
	return token.AccessToken, nil
}

// Verify asks the service whether the installed token is valid and returns
// the decoded response.
func (c *Client) Verify(ctx context.Context) (map[string]any, error) {
	resp, err := c.Do(ctx, &Request{Path: authVerifyPath})
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	result := make(map[string]any)
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	return result, nil
}

// scanResolutionURL extracts the value of resolution_url="..." from an
// Earthdata Login error page. The page has no stable structure, so this is
// a best-effort marker scan: it returns "" when the marker or the closing
// quote is missing.
func scanResolutionURL(body string) string {
	const marker = `resolution_url="`

	start := strings.Index(body, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	if start >= len(body) {
		return ""
	}
	end := strings.IndexByte(body[start:], '"')
	if end < 0 {
		return ""
	}
	return body[start : start+end]
}

func resolutionMessage(resolutionURL string) string {
	if resolutionURL == "" {
		return "the application is not authorized for this Earthdata Login account; " +
			"authorize it from your Earthdata Login profile and try again"
	}
	return fmt.Sprintf("the application is not authorized for this Earthdata Login account; "+
		"visit %s to authorize it and try again", resolutionURL)
}

// failed attaches the handshake state to a transport error. Non-*Error
// causes are wrapped so the state is never lost.
func failed(state AuthState, err error) error {
	if e, ok := err.(*Error); ok {
		e.State = state
		return e
	}
	return &Error{Code: CodeRequestFailed, Message: "login failed", State: state, Cause: err}
}
