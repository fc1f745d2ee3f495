package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theflapjack/fa-report/internal/config"
)

// IdentityProvider performs the two token grants against the OAuth endpoint
// and returns the raw JSON response body.
type IdentityProvider interface {
	Login(ctx context.Context, username, password string) ([]byte, error)
	Refresh(ctx context.Context, refreshToken string) ([]byte, error)
}

// maxTokenResponseSize caps how much of a token response is read.
const maxTokenResponseSize = 1 << 20

// OAuthClient talks to {issuer}/token with form-encoded grants.
type OAuthClient struct {
	tokenURL   string
	clientID   string
	httpClient *http.Client
}

// NewOAuthClient creates a client for the issuer's token endpoint.
func NewOAuthClient(issuerURL, clientID string, timeout time.Duration) *OAuthClient {
	return &OAuthClient{
		tokenURL:   strings.TrimRight(issuerURL, "/") + "/token",
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login performs the resource-owner password grant.
func (c *OAuthClient) Login(ctx context.Context, username, password string) ([]byte, error) {
	form := url.Values{
		"client_id":  {c.clientID},
		"username":   {username},
		"password":   {password},
		"grant_type": {"password"},
	}
	return c.postForm(ctx, "password", form)
}

// Refresh exchanges a refresh token for a new token pair.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) ([]byte, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.postForm(ctx, "refresh_token", form)
}

func (c *OAuthClient) postForm(ctx context.Context, grant string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenError{Grant: grant, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TokenError{Grant: grant, Err: fmt.Errorf("failed to reach identity provider: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &TokenError{Grant: grant, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TokenError{Grant: grant, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
