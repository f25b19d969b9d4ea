package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// nonceSize is 16 bytes (128 bits), enough entropy to make guessing a
// valid token infeasible even when user and purpose are known.
const nonceSize = 16

// Payload is the structured data carried inside a confirmation token.
// All fields are set at issuance and never change afterwards.
type Payload struct {
	UserRef  string            `json:"sub"`           // opaque subject identifier
	Purpose  string            `json:"pur"`           // token class tag, e.g. "email-verify"
	IssuedAt int64             `json:"iat"`           // Unix timestamp of creation
	TTL      int64             `json:"ttl"`           // lifetime in seconds, fixed at issuance
	Nonce    string            `json:"non"`           // random per-issuance value
	Extra    map[string]string `json:"ext,omitempty"` // optional additional claims
}

// NewPayload builds a payload for the given subject and purpose with a
// freshly drawn random nonce. The expiry is carried as IssuedAt+TTL
// rather than a precomputed absolute timestamp, so it is derived at
// decode time against the current clock.
func NewPayload(userRef, purpose string, ttl time.Duration) (Payload, error) {
	if userRef == "" || purpose == "" {
		return Payload{}, ErrInvalidPayload
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Payload{}, err
	}

	return Payload{
		UserRef:  userRef,
		Purpose:  purpose,
		IssuedAt: time.Now().Unix(),
		TTL:      int64(ttl / time.Second),
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		Extra:    nil,
	}, nil
}

// Valid reports whether the payload satisfies the data-model invariants
// required for encoding.
func (p Payload) Valid() error {
	if p.UserRef == "" || p.Purpose == "" || p.Nonce == "" || p.IssuedAt <= 0 || p.TTL < 0 {
		return ErrInvalidPayload
	}
	return nil
}

// ExpiresAt returns the instant after which the payload is no longer valid.
func (p Payload) ExpiresAt() time.Time {
	return time.Unix(p.IssuedAt, 0).Add(time.Duration(p.TTL) * time.Second)
}

// Expired reports whether the payload's lifetime has passed at the given instant.
func (p Payload) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt())
}
