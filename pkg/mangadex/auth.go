package mangadex

import (
	"context"
	"net/http"
)

// Tokens is the session/refresh pair issued by the auth endpoints.
type Tokens struct {
	Session string `json:"session"`
	Refresh string `json:"refresh"`
}

// Login authenticates with a username and password.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	return c.authenticate(ctx, "/auth/login", payload, "")
}

// LoginWithToken starts a session from a previously issued refresh token.
func (c *Client) LoginWithToken(ctx context.Context, refreshToken string) error {
	return c.authenticate(ctx, "/auth/refresh", map[string]string{"token": refreshToken}, refreshToken)
}

// Refresh renews the session token using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	refresh, ok := c.session.refresh, c.session.authenticated
	c.mu.RUnlock()
	if !ok {
		return ErrNotLoggedIn
	}
	return c.authenticate(ctx, "/auth/refresh", map[string]string{"token": refresh}, refresh)
}

// Logout forgets the current session.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = session{}
	c.mu.Unlock()
}

// Check asks the API whether the stored session token is still valid.
func (c *Client) Check(ctx context.Context) (bool, error) {
	resp, err := c.send(ctx, http.MethodGet, "/auth/check", nil, nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, newAPIError(resp.Response, resp.body, nil)
	}

	var out struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	}
	if err := resp.decode(&out); err != nil {
		return false, err
	}
	return out.IsAuthenticated, nil
}

// LoggedIn reports whether a login succeeded and has not been cleared.
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.authenticated
}

// Tokens returns the current token pair; both are empty when logged out.
func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Tokens{Session: c.session.token, Refresh: c.session.refresh}
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.token
}

func (c *Client) requireLogin() error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// authenticate posts credentials and stores the returned tokens. A 401 leaves
// the existing session untouched. refresh is kept when the answer carries no
// new refresh token.
func (c *Client) authenticate(ctx context.Context, path string, payload any, refresh string) error {
	resp, err := c.send(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return newAPIError(resp.Response, resp.body, ErrAuthentication)
	default:
		return newAPIError(resp.Response, resp.body, nil)
	}

	var out struct {
		Token Tokens `json:"token"`
	}
	if err := resp.decode(&out); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.token = out.Token.Session
	c.session.refresh = out.Token.Refresh
	if c.session.refresh == "" {
		c.session.refresh = refresh
	}
	c.session.authenticated = true
	c.log.WithField("endpoint", path).Debug("mangadex session stored")
	return nil
}
