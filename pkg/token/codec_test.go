package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/confirmkit/pkg/token"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()
		_, err := token.New(nil)
		assert.ErrorIs(t, err, token.ErrMissingSigningKey)

		_, err = token.NewFromString("")
		assert.ErrorIs(t, err, token.ErrMissingSigningKey)
	})

	t.Run("accepts non-empty key", func(t *testing.T) {
		t.Parallel()
		codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
		require.NoError(t, err)
		assert.NotNil(t, codec)
	})
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload token.Payload
	}{
		{
			name: "minimal payload",
			payload: token.Payload{
				UserRef:  "u1",
				Purpose:  "email-verify",
				IssuedAt: time.Now().Unix(),
				TTL:      3600,
				Nonce:    "bm9uY2Utbm9uY2Utbm9uY2U",
			},
		},
		{
			name: "payload with extra claims",
			payload: token.Payload{
				UserRef:  "user@example.com",
				Purpose:  "reset-password",
				IssuedAt: time.Now().Unix(),
				TTL:      900,
				Nonce:    "YW5vdGhlci1ub25jZS0xNg",
				Extra:    map[string]string{"redirect": "/settings"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := codec.Encode(tt.payload)
			require.NoError(t, err)
			require.NotEmpty(t, tok)

			got, err := codec.Decode(tok)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
		})
	}
}

func TestCodec_Encode_URLSafe(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	payload, err := token.NewPayload("user/with?reserved&chars", "email-verify", time.Hour)
	require.NoError(t, err)

	tok, err := codec.Encode(payload)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 2)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for _, part := range parts {
		for _, r := range part {
			assert.Contains(t, alphabet, string(r))
		}
	}
}

func TestCodec_Encode_InvalidPayload(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload token.Payload
	}{
		{name: "missing user ref", payload: token.Payload{Purpose: "email-verify", IssuedAt: 1, TTL: 1, Nonce: "n"}},
		{name: "missing purpose", payload: token.Payload{UserRef: "u1", IssuedAt: 1, TTL: 1, Nonce: "n"}},
		{name: "missing nonce", payload: token.Payload{UserRef: "u1", Purpose: "email-verify", IssuedAt: 1, TTL: 1}},
		{name: "zero issued at", payload: token.Payload{UserRef: "u1", Purpose: "email-verify", TTL: 1, Nonce: "n"}},
		{name: "negative ttl", payload: token.Payload{UserRef: "u1", Purpose: "email-verify", IssuedAt: 1, TTL: -1, Nonce: "n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := codec.Encode(tt.payload)
			assert.ErrorIs(t, err, token.ErrInvalidPayload)
		})
	}
}

func TestCodec_Decode_Malformed(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "no separator", input: "justonesegment"},
		{name: "too many segments", input: "a.b.c"},
		{name: "invalid base64 payload", input: "!@#$.c2ln"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := codec.Decode(tt.input)
			assert.ErrorIs(t, err, token.ErrMalformedToken)
		})
	}
}

func TestCodec_Decode_TamperDetection(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	payload, err := token.NewPayload("u1", "email-verify", time.Hour)
	require.NoError(t, err)

	tok, err := codec.Encode(payload)
	require.NoError(t, err)

	// Flip every position in turn; each mutation must be rejected.
	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			continue
		}
		mutated := []byte(tok)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}

		_, err := codec.Decode(string(mutated))
		if !assert.Error(t, err, "mutation at position %d must not decode", i) {
			continue
		}
		assert.True(t,
			errors.Is(err, token.ErrInvalidSignature) || errors.Is(err, token.ErrMalformedToken),
			"mutation at position %d: got %v", i, err)
	}
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)
	other, err := token.NewFromString("a-completely-different-signing-key")
	require.NoError(t, err)

	payload, err := token.NewPayload("u1", "email-verify", time.Hour)
	require.NoError(t, err)

	tok, err := codec.Encode(payload)
	require.NoError(t, err)

	_, err = other.Decode(tok)
	assert.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestCodec_Decode_Expired(t *testing.T) {
	t.Parallel()

	codec, err := token.NewFromString("test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	t.Run("zero ttl", func(t *testing.T) {
		t.Parallel()

		payload := token.Payload{
			UserRef:  "u1",
			Purpose:  "email-verify",
			IssuedAt: time.Now().Add(-time.Second).Unix(),
			TTL:      0,
			Nonce:    "bm9uY2Utbm9uY2Utbm9uY2U",
		}

		tok, err := codec.Encode(payload)
		require.NoError(t, err)

		_, err = codec.Decode(tok)
		assert.ErrorIs(t, err, token.ErrTokenExpired)
	})

	t.Run("ttl passed", func(t *testing.T) {
		t.Parallel()

		payload := token.Payload{
			UserRef:  "u1",
			Purpose:  "email-verify",
			IssuedAt: time.Now().Add(-2 * time.Hour).Unix(),
			TTL:      3600,
			Nonce:    "bm9uY2Utbm9uY2Utbm9uY2U",
		}

		tok, err := codec.Encode(payload)
		require.NoError(t, err)

		_, err = codec.Decode(tok)
		assert.ErrorIs(t, err, token.ErrTokenExpired)
	})

	t.Run("still valid", func(t *testing.T) {
		t.Parallel()

		payload, err := token.NewPayload("u1", "email-verify", time.Hour)
		require.NoError(t, err)

		tok, err := codec.Encode(payload)
		require.NoError(t, err)

		got, err := codec.Decode(tok)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})
}
