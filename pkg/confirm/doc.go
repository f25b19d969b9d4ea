// Package confirm manages the lifecycle of single-purpose, single-use,
// time-boxed confirmation tokens: issuance, verification, atomic
// consumption, and revocation against a pluggable persistence backend.
//
// A token proves a specific claim about a user (their email address
// works, they requested a password reset) without requiring a live
// session. The Service issues at most one active token per user and
// purpose, verifies tokens against both the cryptographic codec and the
// stored record set, and enforces single use by deleting the record
// inside the same locked step that checks it exists.
//
// # Usage
//
//	import (
//	    "github.com/dmitrymomot/confirmkit/pkg/confirm"
//	)
//
//	store := confirm.NewMemoryStore(10 * time.Minute)
//	defer store.Close()
//
//	svc, err := confirm.New(store, []byte(os.Getenv("CONFIRM_SIGNING_SECRET")),
//	    confirm.WithPurposeTTL("email-verify", 24*time.Hour),
//	    confirm.WithPurposeTTL("reset-password", 15*time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := svc.Issue(ctx, "user-42", "email-verify")
//	// ... deliver tok to the user, then later:
//	userRef, err := svc.Consume(ctx, tok, "email-verify")
//
// # Storage backends
//
// Four Store implementations ship with the package: MemoryStore for
// tests and single-process setups, PostgresStore (pgx, SELECT ... FOR
// UPDATE row locks), RedisStore (SET NX mutex plus MULTI/EXEC), and
// MongoStore (multi-document transactions). All honor the same
// contract: writers for one (userRef, purpose) pair are serialized and
// each lock-then-mutate sequence commits atomically or not at all,
// which is what makes Consume race-free.
//
// # Errors
//
// Codec failures (token.ErrMalformedToken, token.ErrInvalidSignature,
// token.ErrTokenExpired) pass through unchanged and are permanent
// rejections. ErrTokenNotFound means the token decoded fine but is no
// longer active. The kinds stay distinguishable for diagnostics even
// when callers collapse them into one user-facing message. Transport
// and backend failures surface untouched; retry policy belongs to the
// caller, since issuance and consumption must never be silently
// duplicated.
package confirm
