package token

import "errors"

var (
	ErrMissingSigningKey = errors.New("token: missing signing key")
	ErrMalformedToken    = errors.New("token: malformed token")
	ErrInvalidSignature  = errors.New("token: signature mismatch")
	ErrTokenExpired      = errors.New("token: token is expired")
	ErrInvalidPayload    = errors.New("token: invalid payload")
)
