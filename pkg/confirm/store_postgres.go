package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/confirmkit/pkg/pg"
)

// PostgresStore implements Store on top of a pgx/v5 connection pool.
// The per-pair lock of the Store contract maps to row-level locks:
// LockUserTokens opens a transaction and reads the pair's rows with
// SELECT ... FOR UPDATE, so concurrent issuance and consumption for the
// same user and purpose serialize on the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token store. The
// confirmation_tokens table must exist; apply it with Migrate.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindToken returns the record with the exact encoded value.
func (s *PostgresStore) FindToken(ctx context.Context, value string) (*Record, error) {
	var record Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, value, user_ref, purpose, created_at, expires_at
		FROM confirmation_tokens
		WHERE value = $1
	`, value).Scan(
		&record.ID,
		&record.Value,
		&record.UserRef,
		&record.Purpose,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// LockUserTokens runs fn inside a transaction that holds FOR UPDATE row
// locks on the pair's records. The transaction commits only when fn
// returns nil; any error rolls everything back.
func (s *PostgresStore) LockUserTokens(ctx context.Context, userRef, purpose string, fn func(tx TokenTx) error) error {
	dbtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	// Rollback is a no-op after a successful commit.
	defer func() { _ = dbtx.Rollback(ctx) }()

	tokens, err := lockUserTokensTx(ctx, dbtx, userRef, purpose)
	if err != nil {
		return err
	}

	if err := fn(&postgresTx{tx: dbtx, userRef: userRef, purpose: purpose, tokens: tokens}); err != nil {
		return err
	}

	return dbtx.Commit(ctx)
}

// DeleteExpired removes all records whose lifetime has passed.
func (s *PostgresStore) DeleteExpired(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM confirmation_tokens WHERE expires_at < now()`)
	return err
}

func lockUserTokensTx(ctx context.Context, tx pgx.Tx, userRef, purpose string) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, value, user_ref, purpose, created_at, expires_at
		FROM confirmation_tokens
		WHERE user_ref = $1 AND purpose = $2
		FOR UPDATE
	`, userRef, purpose)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID,
			&record.Value,
			&record.UserRef,
			&record.Purpose,
			&record.CreatedAt,
			&record.ExpiresAt,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, record)
	}

	return tokens, rows.Err()
}

// postgresTx applies mutations directly on the open transaction; the
// database provides atomicity and the FOR UPDATE locks provide mutual
// exclusion per pair.
type postgresTx struct {
	tx      pgx.Tx
	userRef string
	purpose string
	tokens  []Record
}

func (tx *postgresTx) Tokens() []Record {
	return tx.tokens
}

func (tx *postgresTx) Save(ctx context.Context, record *Record) error {
	if err := record.Valid(); err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := tx.tx.Exec(ctx, `
		INSERT INTO confirmation_tokens (id, value, user_ref, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.Value, record.UserRef, record.Purpose, createdAt, record.ExpiresAt)
	if pg.IsDuplicateKeyError(err) {
		return errors.Join(ErrTokenConflict, err)
	}

	return err
}

func (tx *postgresTx) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := tx.tx.Exec(ctx, `
		DELETE FROM confirmation_tokens
		WHERE user_ref = $1 AND purpose = $2
	`, tx.userRef, tx.purpose)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
