package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/theflapjack/fa-report/internal/common"
)

// fakeProvider records grant calls and replays canned responses.
type fakeProvider struct {
	mu           sync.Mutex
	loginCalls   int
	refreshCalls int
	loginBody    string
	loginErr     error
	refreshBody  string
	refreshErr   error
	lastRefresh  string
	delay        time.Duration
}

func (f *fakeProvider) Login(_ context.Context, username, password string) ([]byte, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return []byte(f.loginBody), nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.lastRefresh = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return []byte(f.refreshBody), nil
}

func (f *fakeProvider) calls() (login, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(p IdentityProvider) (*TokenManager, *TokenStore) {
	store := NewTokenStore()
	m := NewTokenManager(p, store, common.NewSilentLogger())
	m.now = func() time.Time { return fixedNow }
	return m, store
}

func TestValidAccessToken_LoginOnEmptyStore(t *testing.T) {
	p := &fakeProvider{loginBody: `{"access_token":"acc-1","refresh_token":"ref-1","expires_in":300}`}
	m, store := newTestManager(p)

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "acc-1" {
		t.Errorf("expected acc-1, got %s", token)
	}

	state := store.Get()
	if state.RefreshToken != "ref-1" {
		t.Errorf("expected refresh token ref-1, got %s", state.RefreshToken)
	}
	want := fixedNow.Add(300*time.Second - 30*time.Second)
	if !state.Expiry.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, state.Expiry)
	}

	login, refresh := p.calls()
	if login != 1 || refresh != 0 {
		t.Errorf("expected 1 login and 0 refresh calls, got %d/%d", login, refresh)
	}
}

func TestValidAccessToken_CachedTokenMakesNoCalls(t *testing.T) {
	p := &fakeProvider{}
	m, store := newTestManager(p)
	store.Update(TokenState{AccessToken: "cached", RefreshToken: "r", Expiry: fixedNow.Add(time.Minute)})

	for i := 0; i < 5; i++ {
		token, err := m.ValidAccessToken(context.Background(), "user", "pass")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "cached" {
			t.Errorf("expected cached token, got %s", token)
		}
	}

	if login, refresh := p.calls(); login != 0 || refresh != 0 {
		t.Errorf("expected no provider calls, got login=%d refresh=%d", login, refresh)
	}
}

func TestValidAccessToken_ExpiryBoundaryIsStale(t *testing.T) {
	p := &fakeProvider{loginBody: `{"access_token":"new","refresh_token":"r2","expires_in":60}`}
	m, store := newTestManager(p)
	// now == expiry counts as expired
	store.Update(TokenState{AccessToken: "old", Expiry: fixedNow})

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new" {
		t.Errorf("expected new token at expiry boundary, got %s", token)
	}
}

func TestValidAccessToken_RefreshSucceeds(t *testing.T) {
	p := &fakeProvider{refreshBody: `{"access_token":"acc-2","refresh_token":"ref-2","expires_in":600}`}
	m, store := newTestManager(p)
	store.Update(TokenState{AccessToken: "acc-1", RefreshToken: "ref-1", Expiry: fixedNow.Add(-time.Second)})

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "acc-2" {
		t.Errorf("expected acc-2, got %s", token)
	}
	if p.lastRefresh != "ref-1" {
		t.Errorf("expected refresh with ref-1, got %s", p.lastRefresh)
	}
	if login, refresh := p.calls(); login != 0 || refresh != 1 {
		t.Errorf("expected 0 login and 1 refresh, got %d/%d", login, refresh)
	}
	if store.Get().RefreshToken != "ref-2" {
		t.Errorf("expected rotated refresh token ref-2, got %s", store.Get().RefreshToken)
	}
}

func TestValidAccessToken_RefreshFailureFallsBackToOneLogin(t *testing.T) {
	p := &fakeProvider{
		refreshErr: &TokenError{Grant: "refresh_token", StatusCode: 400, Body: `{"error":"invalid_grant"}`},
		loginBody:  `{"access_token":"acc-login","refresh_token":"ref-login","expires_in":300}`,
	}
	m, store := newTestManager(p)
	store.Update(TokenState{AccessToken: "old", RefreshToken: "stale", Expiry: fixedNow.Add(-time.Minute)})

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("refresh failure must not propagate: %v", err)
	}
	if token != "acc-login" {
		t.Errorf("expected acc-login, got %s", token)
	}
	if login, refresh := p.calls(); login != 1 || refresh != 1 {
		t.Errorf("expected exactly 1 refresh then 1 login, got refresh=%d login=%d", refresh, login)
	}
}

func TestValidAccessToken_MalformedRefreshFallsBackToLogin(t *testing.T) {
	p := &fakeProvider{
		refreshBody: `{"access_token":"only-access"}`,
		loginBody:   `{"access_token":"acc-login","refresh_token":"ref-login","expires_in":300}`,
	}
	m, store := newTestManager(p)
	store.Update(TokenState{RefreshToken: "ref", Expiry: fixedNow.Add(-time.Minute)})

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "acc-login" {
		t.Errorf("expected acc-login, got %s", token)
	}
}

func TestValidAccessToken_LoginFailurePropagates(t *testing.T) {
	loginErr := &TokenError{Grant: "password", StatusCode: 401, Body: `{"error":"invalid_grant"}`}
	p := &fakeProvider{
		refreshErr: errors.New("connection refused"),
		loginErr:   loginErr,
	}
	m, store := newTestManager(p)
	store.Update(TokenState{RefreshToken: "ref", Expiry: fixedNow.Add(-time.Minute)})

	_, err := m.ValidAccessToken(context.Background(), "user", "wrong")
	if err == nil {
		t.Fatal("expected error when login fails")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) || tokenErr.StatusCode != 401 {
		t.Errorf("expected wrapped TokenError with status 401, got %v", err)
	}
	if store.Get().AccessToken != "" {
		t.Error("failed login must not populate the access token")
	}
}

func TestValidAccessToken_MalformedLoginResponse(t *testing.T) {
	p := &fakeProvider{loginBody: `{"access_token":"a","refresh_token":"r","expires_in":"soon"}`}
	m, _ := newTestManager(p)

	_, err := m.ValidAccessToken(context.Background(), "user", "pass")
	var parseErr *TokenParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *TokenParseError, got %T: %v", err, err)
	}
	if parseErr.Field != "expires_in" {
		t.Errorf("expected field expires_in, got %s", parseErr.Field)
	}
}

func TestInvalidate_KeepsRefreshToken(t *testing.T) {
	p := &fakeProvider{refreshBody: `{"access_token":"after","refresh_token":"r2","expires_in":300}`}
	m, store := newTestManager(p)
	store.Update(TokenState{AccessToken: "before", RefreshToken: "r1", Expiry: fixedNow.Add(time.Hour)})

	m.Invalidate()

	token, err := m.ValidAccessToken(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "after" {
		t.Errorf("expected refreshed token, got %s", token)
	}
	if login, refresh := p.calls(); login != 0 || refresh != 1 {
		t.Errorf("expected refresh only after invalidate, got login=%d refresh=%d", login, refresh)
	}
}

func TestParseTokenResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantErr   bool
		wantTTL   time.Duration
	}{
		{"valid", `{"access_token":"a","refresh_token":"r","expires_in":300,"token_type":"Bearer"}`, "", false, 270 * time.Second},
		{"string expires_in", `{"access_token":"a","refresh_token":"r","expires_in":"120"}`, "", false, 90 * time.Second},
		{"missing access", `{"refresh_token":"r","expires_in":300}`, "access_token", true, 0},
		{"null refresh", `{"access_token":"a","refresh_token":null,"expires_in":300}`, "refresh_token", true, 0},
		{"empty access", `{"access_token":"","refresh_token":"r","expires_in":300}`, "access_token", true, 0},
		{"numeric access", `{"access_token":42,"refresh_token":"r","expires_in":300}`, "access_token", true, 0},
		{"missing expires", `{"access_token":"a","refresh_token":"r"}`, "expires_in", true, 0},
		{"fractional expires", `{"access_token":"a","refresh_token":"r","expires_in":1.5}`, "expires_in", true, 0},
		{"not json", `<html>bad gateway</html>`, "", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := parseTokenResponse([]byte(tt.body), fixedNow)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := state.Expiry.Sub(fixedNow); got != tt.wantTTL {
					t.Errorf("expected ttl %s, got %s", tt.wantTTL, got)
				}
				return
			}
			var parseErr *TokenParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *TokenParseError, got %T: %v", err, err)
			}
			if parseErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, parseErr.Field)
			}
		})
	}
}
