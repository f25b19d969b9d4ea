package confirm

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/confirmkit/pkg/token"
)

// Service orchestrates the token codec and a Store to provide issue,
// verify, consume, and revoke semantics for single-use confirmation
// tokens.
//
// The service is stateless: all durable state lives in the store and
// the signing key is immutable after construction, so one instance is
// safe to share across concurrent request handlers. It never retries on
// its own; codec failures are permanent rejections and backend failures
// surface untouched so the caller keeps control of retry policy.
type Service struct {
	codec      *token.Codec
	store      Store
	log        *slog.Logger
	defaultTTL time.Duration
	purposeTTL map[string]time.Duration
}

// New creates a confirmation-token service backed by the given store and
// signed with the given process-wide key. An empty key is a fatal
// configuration error.
func New(store Store, signingKey []byte, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNoStore
	}

	codec, err := token.New(signingKey)
	if err != nil {
		return nil, err
	}

	s := &Service{
		codec:      codec,
		store:      store,
		log:        slog.New(slog.DiscardHandler),
		defaultTTL: time.Hour,
		purposeTTL: make(map[string]time.Duration),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue creates a token for the user and purpose with the default TTL
// configured for that purpose.
func (s *Service) Issue(ctx context.Context, userRef, purpose string) (string, error) {
	return s.IssueWithTTL(ctx, userRef, purpose, s.ttlFor(purpose))
}

// IssueWithTTL creates a token with an explicit TTL. Any previously
// issued tokens for the same (userRef, purpose) pair are invalidated in
// the same atomic step: at most one token per pair is ever active, which
// prevents accumulation and closes the reuse window on re-issuance.
func (s *Service) IssueWithTTL(ctx context.Context, userRef, purpose string, ttl time.Duration) (string, error) {
	payload, err := token.NewPayload(userRef, purpose, ttl)
	if err != nil {
		return "", err
	}

	value, err := s.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	record := NewRecord(value, payload)
	err = s.store.LockUserTokens(ctx, userRef, purpose, func(tx TokenTx) error {
		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		return tx.Save(ctx, record)
	})
	if err != nil {
		return "", err
	}

	s.log.DebugContext(ctx, "confirmation token issued",
		"user_ref", userRef, "purpose", purpose, "ttl", ttl)

	return value, nil
}

// Verify checks that the token is authentic, unexpired, issued for the
// expected purpose, and still backed by an active record, and returns
// the user reference it was issued for. Decoding success alone is not
// proof of validity: storage is the source of truth for "still active",
// so consumed or revoked tokens fail with ErrTokenNotFound even though
// their signature checks out. Verify never mutates storage.
func (s *Service) Verify(ctx context.Context, tokenStr, purpose string) (string, error) {
	payload, err := s.decode(tokenStr, purpose)
	if err != nil {
		return "", err
	}

	if _, err := s.store.FindToken(ctx, tokenStr); err != nil {
		return "", err
	}

	return payload.UserRef, nil
}

// Consume verifies the token and invalidates it in one atomic step. The
// existence check runs under the pair lock, so of N concurrent Consume
// calls with the same token exactly one succeeds; the rest acquire the
// lock after the record is gone and fail with ErrTokenNotFound.
func (s *Service) Consume(ctx context.Context, tokenStr, purpose string) (string, error) {
	payload, err := s.decode(tokenStr, purpose)
	if err != nil {
		return "", err
	}

	err = s.store.LockUserTokens(ctx, payload.UserRef, payload.Purpose, func(tx TokenTx) error {
		found := false
		for _, record := range tx.Tokens() {
			if record.Value == tokenStr {
				found = true
				break
			}
		}
		if !found {
			return ErrTokenNotFound
		}

		_, err := tx.DeleteAll(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.DebugContext(ctx, "confirmation token consumed",
		"user_ref", payload.UserRef, "purpose", payload.Purpose)

	return payload.UserRef, nil
}

// Revoke invalidates all tokens for the pair. It is idempotent: revoking
// a pair with no active tokens is a no-op.
func (s *Service) Revoke(ctx context.Context, userRef, purpose string) error {
	err := s.store.LockUserTokens(ctx, userRef, purpose, func(tx TokenTx) error {
		_, err := tx.DeleteAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.log.DebugContext(ctx, "confirmation tokens revoked",
		"user_ref", userRef, "purpose", purpose)

	return nil
}

// decode maps codec failures through 1:1 and enforces the purpose check.
func (s *Service) decode(tokenStr, purpose string) (token.Payload, error) {
	payload, err := s.codec.Decode(tokenStr)
	if err != nil {
		return token.Payload{}, err
	}

	if payload.Purpose != purpose {
		return token.Payload{}, ErrPurposeMismatch
	}

	return payload, nil
}

func (s *Service) ttlFor(purpose string) time.Duration {
	if ttl, ok := s.purposeTTL[purpose]; ok {
		return ttl
	}
	return s.defaultTTL
}
