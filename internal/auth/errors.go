package auth

import "fmt"

// TokenError reports a failed call to the identity provider's token endpoint.
// StatusCode is zero when no HTTP response was received.
type TokenError struct {
	Grant      string
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s grant: token endpoint returned %d: %s", e.Grant, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s grant: %v", e.Grant, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenParseError reports a token response missing a required field.
type TokenParseError struct {
	Field string
	Err   error
}

func (e *TokenParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("failed to parse token response: %v", e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("failed to parse token response: missing %s", e.Field)
	}
	return fmt.Sprintf("failed to parse token response: invalid %s: %v", e.Field, e.Err)
}

func (e *TokenParseError) Unwrap() error { return e.Err }

// AuthError is returned when no access token could be obtained: the refresh
// grant (if attempted) and the password grant both failed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
