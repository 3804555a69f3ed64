package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Default endpoint paths, relative to the base URL.
const (
	DefaultIdentityPath = "/identity"
	DefaultLoginPath    = "/auth/login"
	DefaultCallbackPath = "/auth/federated-callback"
)

// ErrNoToken is returned when a login or code exchange succeeds at the HTTP
// level but the response carries no credential.
var ErrNoToken = errors.New("api: response carried no token")

// AuthPaths are the endpoints the session lifecycle talks to.
type AuthPaths struct {
	Identity string
	Login    string
	Callback string
}

// DefaultAuthPaths returns the stock endpoint paths.
func DefaultAuthPaths() AuthPaths {
	return AuthPaths{
		Identity: DefaultIdentityPath,
		Login:    DefaultLoginPath,
		Callback: DefaultCallbackPath,
	}
}

// SetAuthPaths overrides the auth endpoint paths. Empty fields keep their
// current value.
func (c *Client) SetAuthPaths(p AuthPaths) {
	if p.Identity != "" {
		c.paths.Identity = p.Identity
	}

	if p.Login != "" {
		c.paths.Login = p.Login
	}

	if p.Callback != "" {
		c.paths.Callback = p.Callback
	}
}

// Identity is the resolved profile of the logged-in user.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
}

// UnmarshalJSON accepts a numeric or string id, and the display name under
// either "display_name" or "name".
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		DisplayName string          `json:"display_name"`
		Name        string          `json:"name"`
		Role        string          `json:"role"`
		Email       string          `json:"email"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := flexibleID(raw.ID)
	if err != nil {
		return fmt.Errorf("api: identity id: %w", err)
	}

	i.ID = id
	i.DisplayName = raw.DisplayName
	i.Role = raw.Role
	i.Email = raw.Email

	if i.DisplayName == "" {
		i.DisplayName = raw.Name
	}

	return nil
}

func flexibleID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}

	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("not an integer: %s", n)
	}

	return n.String(), nil
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// tokenResponse accepts both {"token": ...} and the OAuth-style
// {"access_token": ..., "token_type": ...}.
type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

func (r tokenResponse) credential() string {
	if r.Token != "" {
		return r.Token
	}

	return r.AccessToken
}

// Identity fetches the identity that token belongs to. token is used instead
// of the client's TokenSource so a candidate credential can be validated
// before it is stored.
func (c *Client) Identity(ctx context.Context, token string) (*Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, c.paths.Identity, nil, func() (string, error) {
		return token, nil
	})
	if err != nil {
		return nil, err
	}

	body, err := readBody(resp, http.MethodGet, c.paths.Identity)
	if err != nil {
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("api: decoding identity: %w", err)
	}

	return &id, nil
}

// Login exchanges an identifier and secret for a credential.
func (c *Client) Login(ctx context.Context, identifier, secret string) (string, error) {
	return c.postForToken(ctx, c.paths.Login, loginRequest{Identifier: identifier, Secret: secret})
}

// ExchangeCode trades a federation authorization code for a credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	return c.postForToken(ctx, c.paths.Callback, codeRequest{Code: code})
}

func (c *Client) postForToken(ctx context.Context, path string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("api: encoding request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, b, nil)
	if err != nil {
		return "", err
	}

	body, err := readBody(resp, http.MethodPost, path)
	if err != nil {
		return "", err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("api: decoding token response: %w", err)
	}

	tok := strings.TrimSpace(tr.credential())
	if tok == "" {
		return "", ErrNoToken
	}

	return tok, nil
}
