package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Codec signs and verifies confirmation tokens using HMAC-SHA256.
// The signing key is kept in memory only and is immutable after construction;
// rotating it invalidates all outstanding tokens.
type Codec struct {
	signingKey []byte
}

// New creates a codec with the provided signing key.
// An empty key is a fatal configuration error; the key should be at
// least 32 bytes for adequate security with HMAC-SHA256.
func New(signingKey []byte) (*Codec, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	return &Codec{
		signingKey: append([]byte(nil), signingKey...),
	}, nil
}

// NewFromString creates a codec from a string signing key.
// Convenience wrapper around New() for string-based configuration.
func NewFromString(signingKey string) (*Codec, error) {
	return New([]byte(signingKey))
}

// Encode serializes the payload and appends a full-length HMAC-SHA256
// signature over the serialized bytes.
//
// Token format: base64url(payload).base64url(signature)
//
// Both segments use the unpadded URL-safe alphabet, so the dot separator
// cannot appear inside either segment and the whole token is safe to
// embed in a URL path segment.
func (c *Codec) Encode(payload Payload) (string, error) {
	if err := payload.Valid(); err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Join(ErrInvalidPayload, err)
	}

	return base64.RawURLEncoding.EncodeToString(data) + "." + c.sign(data), nil
}

// Decode verifies the token's signature and recovers the payload.
//
// Structural failures (wrong segment count, bad base64, bad JSON) return
// ErrMalformedToken. The signature is checked with a constant-time
// comparison before the payload bytes are trusted; a mismatch returns
// ErrInvalidSignature. Only then is the lifetime evaluated against the
// current clock, returning ErrTokenExpired when IssuedAt+TTL has passed.
func (c *Codec) Decode(tokenStr string) (Payload, error) {
	var payload Payload

	parts := strings.Split(tokenStr, ".")
	if len(parts) != 2 {
		return payload, ErrMalformedToken
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return payload, errors.Join(ErrMalformedToken, err)
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(c.sign(data))) != 1 {
		return payload, ErrInvalidSignature
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, errors.Join(ErrMalformedToken, err)
	}
	if err := payload.Valid(); err != nil {
		return payload, errors.Join(ErrMalformedToken, err)
	}

	if payload.Expired(time.Now()) {
		return payload, ErrTokenExpired
	}

	return payload, nil
}

// sign computes the base64url-encoded HMAC-SHA256 signature of data.
func (c *Codec) sign(data []byte) string {
	h := hmac.New(sha256.New, c.signingKey)
	h.Write(data)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
