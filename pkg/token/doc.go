// Package token provides compact, signed confirmation tokens that bind
// a purpose (email verification, password reset, invite) to a user
// identity for a bounded lifetime.
//
// Tokens use HMAC-SHA256 with full-length signatures. The lifetime is
// carried inside the payload as issuance time plus TTL, so expiry is
// derived at decode time against the current clock instead of trusting
// a precomputed absolute timestamp.
//
// Token format: base64url(payload).base64url(signature)
//
// The output alphabet is limited to A-Z a-z 0-9 - _ plus the dot
// separator, so tokens are safe to embed in a URL path segment.
//
// # Usage
//
//	import "github.com/dmitrymomot/confirmkit/pkg/token"
//
//	codec, err := token.NewFromString("my-very-strong-secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	payload, err := token.NewPayload("user-42", "email-verify", time.Hour)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := codec.Encode(payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if payload, err = codec.Decode(tok); err != nil {
//	    log.Fatal(err)
//	}
//
// Decode returns ErrMalformedToken for structurally invalid input,
// ErrInvalidSignature for tampered tokens, and ErrTokenExpired once the
// lifetime has passed. The three kinds are distinct sentinels so callers
// can keep diagnostics separate even when the user-facing message is the
// same. Uses only standard library with a single SHA-256 pass per
// operation.
package token
