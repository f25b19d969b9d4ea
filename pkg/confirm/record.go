package confirm

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/confirmkit/pkg/token"
)

// Record is the persisted form of an issued confirmation token.
// The encoded token string is the primary lookup key; user reference,
// purpose, and timestamps are denormalized so stores can query and
// expire records without decoding the value.
//
// Records are immutable after creation. The service only ever deletes
// them: on successful consumption, on re-issuance for the same user and
// purpose, or on explicit revocation.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Value     string    `json:"value"`
	UserRef   string    `json:"user_ref"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRecord builds a record for an encoded token and the payload it carries.
func NewRecord(value string, payload token.Payload) *Record {
	createdAt := time.Unix(payload.IssuedAt, 0)
	return &Record{
		ID:        uuid.New(),
		Value:     value,
		UserRef:   payload.UserRef,
		Purpose:   payload.Purpose,
		CreatedAt: createdAt,
		ExpiresAt: payload.ExpiresAt(),
	}
}

// Valid reports whether the record carries everything stores require.
func (r *Record) Valid() error {
	if r == nil || r.Value == "" || r.UserRef == "" || r.Purpose == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Expired reports whether the record's lifetime has passed at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
