package confirm

import "context"

// Store defines the persistence contract for token records.
//
// Implementations serialize all writers for one (userRef, purpose) pair:
// whichever caller enters LockUserTokens first completes its whole
// read-modify sequence before the next caller observes the record set.
// Operations on different pairs are fully independent.
type Store interface {
	// FindToken returns the record with the exact encoded value, or
	// ErrTokenNotFound. The read takes no lock; it has no side effects.
	FindToken(ctx context.Context, value string) (*Record, error)

	// LockUserTokens acquires an exclusive lock on the records for the
	// (userRef, purpose) pair, loads them, and runs fn with a
	// transactional view. Mutations staged through the view are
	// committed atomically when fn returns nil and discarded when it
	// returns an error, so a timeout or crash mid-sequence never leaves
	// a record half-deleted or double-issued.
	//
	// Backends that resolve write conflicts by retrying (such as the
	// Mongo binding) may invoke fn more than once; fn must not have
	// side effects beyond mutations staged on its TokenTx.
	LockUserTokens(ctx context.Context, userRef, purpose string, fn func(tx TokenTx) error) error
}

// TokenTx is the locked, transactional view of one (userRef, purpose)
// record set inside LockUserTokens.
type TokenTx interface {
	// Tokens returns the records that existed when the lock was taken.
	Tokens() []Record

	// Save stages a new record, failing with ErrTokenConflict when the
	// value is already stored.
	Save(ctx context.Context, record *Record) error

	// DeleteAll stages removal of every record in the locked set and
	// returns how many will be removed. Idempotent.
	DeleteAll(ctx context.Context) (int64, error)
}

// ExpiredCleaner is an optional maintenance interface for stores that
// can drop expired records in bulk. Backends with native expiry (Redis
// key TTLs, Mongo TTL indexes) do not need it.
type ExpiredCleaner interface {
	DeleteExpired(ctx context.Context) error
}
