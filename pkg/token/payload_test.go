package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/confirmkit/pkg/token"
)

func TestNewPayload(t *testing.T) {
	t.Parallel()

	t.Run("fills all fields", func(t *testing.T) {
		t.Parallel()

		before := time.Now().Unix()
		p, err := token.NewPayload("u1", "email-verify", time.Hour)
		require.NoError(t, err)

		assert.Equal(t, "u1", p.UserRef)
		assert.Equal(t, "email-verify", p.Purpose)
		assert.Equal(t, int64(3600), p.TTL)
		assert.GreaterOrEqual(t, p.IssuedAt, before)
		assert.NotEmpty(t, p.Nonce)
		assert.NoError(t, p.Valid())
	})

	t.Run("rejects empty user ref", func(t *testing.T) {
		t.Parallel()
		_, err := token.NewPayload("", "email-verify", time.Hour)
		assert.ErrorIs(t, err, token.ErrInvalidPayload)
	})

	t.Run("rejects empty purpose", func(t *testing.T) {
		t.Parallel()
		_, err := token.NewPayload("u1", "", time.Hour)
		assert.ErrorIs(t, err, token.ErrInvalidPayload)
	})

	t.Run("nonces are unique", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			p, err := token.NewPayload("u1", "email-verify", time.Hour)
			require.NoError(t, err)

			_, dup := seen[p.Nonce]
			require.False(t, dup, "nonce %q repeated", p.Nonce)
			seen[p.Nonce] = struct{}{}
		}
	})
}

func TestPayload_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	p := token.Payload{
		UserRef:  "u1",
		Purpose:  "email-verify",
		IssuedAt: now.Unix(),
		TTL:      60,
		Nonce:    "bm9uY2U",
	}

	assert.Equal(t, time.Unix(now.Unix(), 0).Add(time.Minute), p.ExpiresAt())
	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(now.Add(2*time.Minute)))
}
