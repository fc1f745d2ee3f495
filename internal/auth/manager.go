package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/theflapjack/fa-report/internal/common"
)

// expiryMargin is subtracted from expires_in so a token is never used in
// its last seconds of validity.
const expiryMargin = 30 * time.Second

// TokenManager hands out a valid access token, refreshing or logging in
// again when the cached one is absent or expired.
//
// Concurrent callers that find the token stale share a single
// refresh-or-login sequence; nobody triggers a redundant login.
type TokenManager struct {
	store  *TokenStore
	idp    IdentityProvider
	logger *common.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewTokenManager creates a manager. A nil store gets a fresh empty one.
func NewTokenManager(idp IdentityProvider, store *TokenStore, logger *common.Logger) *TokenManager {
	if store == nil {
		store = NewTokenStore()
	}
	return &TokenManager{
		store:  store,
		idp:    idp,
		logger: logger,
		now:    time.Now,
	}
}

// ValidAccessToken returns the cached access token when it has not expired.
// Otherwise it tries the refresh grant (when a refresh token is held), and
// falls back to the password grant with the given credentials if that fails.
// Refresh failures are logged and never returned; a failed login is returned
// as *AuthError and a malformed login response as *TokenParseError.
func (m *TokenManager) ValidAccessToken(ctx context.Context, username, password string) (string, error) {
	if state := m.store.Get(); state.Valid(m.now()) {
		return state.AccessToken, nil
	}

	// The flight outlives any single caller, so it must not inherit one
	// caller's cancellation; the HTTP client timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := m.group.Do("token", func() (interface{}, error) {
		if state := m.store.Get(); state.Valid(m.now()) {
			return state.AccessToken, nil
		}
		return m.acquire(flightCtx, username, password)
	})
	if err != nil {
		return "", err
	}
	if shared {
		m.logger.Debug().Msg("reused in-flight token acquisition")
	}
	return v.(string), nil
}

// Invalidate drops the cached access token, keeping the refresh token so the
// next call can try the cheaper refresh grant first.
func (m *TokenManager) Invalidate() {
	state := m.store.Get()
	m.store.Update(TokenState{RefreshToken: state.RefreshToken})
}

func (m *TokenManager) acquire(ctx context.Context, username, password string) (string, error) {
	if refreshToken := m.store.Get().RefreshToken; refreshToken != "" {
		token, err := m.refresh(ctx, refreshToken)
		if err == nil {
			return token, nil
		}
		m.logger.Warn().Err(err).Msg("token refresh failed, falling back to full login")
	}

	m.logger.Info().Str("username", username).Msg("requesting access token with password grant")
	body, err := m.idp.Login(ctx, username, password)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	return m.update(body)
}

func (m *TokenManager) refresh(ctx context.Context, refreshToken string) (string, error) {
	m.logger.Debug().Msg("refreshing access token")
	body, err := m.idp.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return m.update(body)
}

func (m *TokenManager) update(body []byte) (string, error) {
	state, err := parseTokenResponse(body, m.now())
	if err != nil {
		return "", err
	}
	m.store.Update(state)
	m.logger.Debug().
		Str("token_suffix", common.TokenSuffix(state.AccessToken)).
		Str("expires_at", state.Expiry.Format(time.RFC3339)).
		Msg("access token updated")
	return state.AccessToken, nil
}

// parseTokenResponse reads access_token, refresh_token and expires_in.
// Every field is required.
func parseTokenResponse(body []byte, now time.Time) (TokenState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return TokenState{}, &TokenParseError{Err: err}
	}

	access, err := stringField(fields, "access_token")
	if err != nil {
		return TokenState{}, err
	}
	refresh, err := stringField(fields, "refresh_token")
	if err != nil {
		return TokenState{}, err
	}
	expiresIn, err := secondsField(fields, "expires_in")
	if err != nil {
		return TokenState{}, err
	}

	return TokenState{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       now.Add(time.Duration(expiresIn)*time.Second - expiryMargin),
	}, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", &TokenParseError{Field: name}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &TokenParseError{Field: name, Err: err}
	}
	if s == "" {
		return "", &TokenParseError{Field: name}
	}
	return s, nil
}

// secondsField accepts an integer or an integer-valued string.
func secondsField(fields map[string]json.RawMessage, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return 0, &TokenParseError{Field: name}
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, &TokenParseError{Field: name, Err: errors.New("not an integer number of seconds")}
}
