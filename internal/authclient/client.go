package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/karobar/karobar/internal/config"
	"go.uber.org/fx"
)

// Module provides the auth service client.
var Module = fx.Provide(New)

var (
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAuthUnavailable    = errors.New("auth_service_unavailable")
)

// Identity is the verified principal returned by the auth service.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client talks to the external auth service. Credentials never touch this
// application: login and password changes are proxied verbatim and only the
// opaque token comes back.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.AuthServiceURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify resolves a bearer token to an identity.
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/verify", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, fmt.Errorf("%w: decode identity: %v", ErrAuthUnavailable, err)
		}
		return &identity, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: verify returned %d", ErrAuthUnavailable, resp.StatusCode)
	}
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := json.Marshal(map[string]string{
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/v1/login", "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var login LoginResponse
		if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
			return nil, fmt.Errorf("%w: decode login: %v", ErrAuthUnavailable, err)
		}
		return &login, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: login returned %d", ErrAuthUnavailable, resp.StatusCode)
	}
}

// ChangePassword rotates the caller's password on the auth service.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	body, err := json.Marshal(map[string]string{
		"current_password": current,
		"new_password":     next,
	})
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, "/v1/change-password", token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: change-password returned %d", ErrAuthUnavailable, resp.StatusCode)
	}
}

func (c *Client) post(ctx context.Context, path, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	return resp, nil
}
