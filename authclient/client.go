// Package authclient is the client-side session manager for the SmartBee auth
// service. Each Client owns its tokens; nothing is stored in process-wide
// defaults, so concurrent sessions never race on shared state.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	refreshTokenHeader = "Refresh-Token"
	newTokenHeader     = "New-Token"
)

type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	User         User   `json:"user"`
}

// APIError carries the service's {message} error body.
type APIError struct {
	Status  int
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	onSessionExpired func()
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithOnSessionExpired installs a hook invoked when a refresh attempt fails
// and the client transitions to logged-out.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// Tokens returns the current pair, e.g. for persisting a session across
// restarts.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// SetTokens resumes a previously persisted session.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp tokenResponse
	if err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &resp); err != nil {
		return User{}, err
	}

	c.SetTokens(resp.Token, resp.RefreshToken)
	return resp.User, nil
}

func (c *Client) Register(ctx context.Context, email, password, name, role string) (User, error) {
	var resp tokenResponse
	if err := c.postJSON(ctx, "/api/auth/register", map[string]string{
		"email": email, "password": password, "name": name, "role": role,
	}, &resp); err != nil {
		return User{}, err
	}

	c.SetTokens(resp.Token, resp.RefreshToken)
	return resp.User, nil
}

// Logout clears the session locally and revokes the refresh token server-side.
// Local state is cleared even when the revocation call fails; the access token
// stays valid server-side until natural expiry.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.Tokens()
	c.SetTokens("", "")

	if refresh == "" {
		return nil
	}
	return c.postJSON(ctx, "/api/auth/logout", map[string]string{
		"refreshToken": refresh,
	}, nil)
}

// Do sends req with the session's access token attached. A New-Token response
// header is adopted transparently. On a 401 the client refreshes the pair and
// retries the original request exactly once; if the refresh fails, the session
// transitions to logged-out and the original response is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	access, refresh := c.Tokens()
	resp, err := c.send(req, access)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || refresh == "" {
		return resp, nil
	}

	if err := c.refresh(req.Context(), refresh); err != nil {
		c.SetTokens("", "")
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return resp, nil
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()

	access, _ = c.Tokens()
	return c.send(retry, access)
}

func (c *Client) send(req *http.Request, access string) (*http.Response, error) {
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if tok := resp.Header.Get(newTokenHeader); tok != "" {
		c.mu.Lock()
		c.accessToken = tok
		c.mu.Unlock()
	}
	return resp, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	var resp tokenResponse
	if err := c.postJSON(ctx, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, &resp); err != nil {
		return err
	}

	c.SetTokens(resp.Token, resp.RefreshToken)
	return nil
}

// cloneRequest prepares the retry. A consumed body can only be replayed
// through GetBody; without it the retry is refused rather than sent empty.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
