package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 3 * time.Second
	mePath         = "/api/v1/auth/me"
	userAgent      = "community-content/1.0"
)

var (
	// ErrInvalidToken means the identity service rejected the token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnavailable means the identity service could not give an answer.
	ErrUnavailable = errors.New("identity service unavailable")
)

// Client talks to the identity service that issues bearer tokens.
type Client struct {
	client  *http.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := http.Client{
		Timeout: timeout,
	}
	c := &Client{
		client:  &httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Me is the account behind a bearer token.
type Me struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Me resolves a bearer token. It returns an error wrapping ErrInvalidToken
// when the service rejects the token and ErrUnavailable when it cannot be
// reached or answers with a server error.
func (c *Client) Me(ctx context.Context, token string) (Me, error) {
	if token == "" {
		return Me{}, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mePath, nil)
	if err != nil {
		return Me{}, fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Me{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Me{}, ErrInvalidToken
	case resp.StatusCode >= 500:
		return Me{}, fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Me{}, fmt.Errorf("%w: unexpected status code: %d", ErrInvalidToken, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Me{}, fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Me{}, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return Me{}, fmt.Errorf("%w: %s", ErrInvalidToken, env.Message)
	}

	var me Me
	if err := json.Unmarshal(env.Data, &me); err != nil {
		return Me{}, fmt.Errorf("%w: failed to decode account: %v", ErrUnavailable, err)
	}
	if me.ID == 0 {
		return Me{}, fmt.Errorf("%w: account id missing", ErrInvalidToken)
	}
	return me, nil
}
