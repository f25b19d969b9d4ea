package confirm

import "errors"

var (
	// ErrTokenNotFound indicates the token decoded fine but no active
	// record backs it: it was already consumed, revoked, or replaced.
	ErrTokenNotFound = errors.New("confirm: token not found")

	// ErrTokenConflict indicates an insert collided with an existing
	// token value. Should not happen given nonce entropy, but stores
	// must report it rather than overwrite.
	ErrTokenConflict = errors.New("confirm: token value already exists")

	// ErrPurposeMismatch indicates a structurally valid token was
	// presented for a different purpose than it was issued for.
	ErrPurposeMismatch = errors.New("confirm: token purpose mismatch")

	// ErrNoStore indicates the service was constructed without a store.
	ErrNoStore = errors.New("confirm: no store configured")

	// ErrInvalidRecord indicates a record missing required fields was
	// passed to a store.
	ErrInvalidRecord = errors.New("confirm: invalid token record")
)
