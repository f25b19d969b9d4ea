package confirm_test

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/confirmkit/pkg/confirm"
	"github.com/dmitrymomot/confirmkit/pkg/logger"
	"github.com/dmitrymomot/confirmkit/pkg/mongo"
	"github.com/dmitrymomot/confirmkit/pkg/pg"
	"github.com/dmitrymomot/confirmkit/pkg/redis"
)

// runStoreContract exercises the Store contract every binding must
// honor. Backends use fresh random user refs so runs do not interfere
// with leftover state.
func runStoreContract(t *testing.T, store confirm.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("find token not found", func(t *testing.T) {
		_, err := store.FindToken(ctx, "no-such-token-"+uuid.NewString())
		assert.ErrorIs(t, err, confirm.ErrTokenNotFound)
	})

	t.Run("save and find", func(t *testing.T) {
		userRef := uuid.NewString()
		record := newTestRecord(t, userRef, "email-verify", time.Hour)
		saveRecord(t, store, record)

		got, err := store.FindToken(ctx, record.Value)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, userRef, got.UserRef)
		assert.Equal(t, "email-verify", got.Purpose)
	})

	t.Run("save conflict", func(t *testing.T) {
		userRef := uuid.NewString()
		record := newTestRecord(t, userRef, "email-verify", time.Hour)
		saveRecord(t, store, record)

		err := store.LockUserTokens(ctx, userRef, "email-verify", func(tx confirm.TokenTx) error {
			return tx.Save(ctx, record)
		})
		assert.ErrorIs(t, err, confirm.ErrTokenConflict)
	})

	t.Run("delete all scoped to pair", func(t *testing.T) {
		userRef := uuid.NewString()
		record := newTestRecord(t, userRef, "email-verify", time.Hour)
		other := newTestRecord(t, userRef, "reset-password", time.Hour)
		saveRecord(t, store, record)
		saveRecord(t, store, other)

		var deleted int64
		err := store.LockUserTokens(ctx, userRef, "email-verify", func(tx confirm.TokenTx) error {
			var err error
			deleted, err = tx.DeleteAll(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = store.FindToken(ctx, record.Value)
		assert.ErrorIs(t, err, confirm.ErrTokenNotFound)

		_, err = store.FindToken(ctx, other.Value)
		assert.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		userRef := uuid.NewString()
		record := newTestRecord(t, userRef, "email-verify", time.Hour)
		saveRecord(t, store, record)

		err := store.LockUserTokens(ctx, userRef, "email-verify", func(tx confirm.TokenTx) error {
			if _, err := tx.DeleteAll(ctx); err != nil {
				return err
			}
			return confirm.ErrTokenNotFound
		})
		assert.ErrorIs(t, err, confirm.ErrTokenNotFound)

		_, err = store.FindToken(ctx, record.Value)
		assert.NoError(t, err, "aborted transaction must not delete anything")
	})

	t.Run("single use under concurrency", func(t *testing.T) {
		svc, err := confirm.New(store, []byte(testSecret))
		require.NoError(t, err)

		userRef := uuid.NewString()
		tok, err := svc.IssueWithTTL(ctx, userRef, "email-verify", time.Hour)
		require.NoError(t, err)

		const workers = 8
		var successes int
		var mu sync.Mutex

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				got, err := svc.Consume(ctx, tok, "email-verify")
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					assert.Equal(t, userRef, got)
					return
				}
				assert.ErrorIs(t, err, confirm.ErrTokenNotFound)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
	})
}

func TestPostgresStore_Contract(t *testing.T) {
	connStr := os.Getenv("TEST_PG_CONN_URL")
	if connStr == "" {
		t.Skip("TEST_PG_CONN_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: connStr,
		MaxOpenConns:     10,
		MaxIdleConns:     2,
		RetryAttempts:    1,
		MigrationsTable:  "schema_migrations",
	}

	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := logger.New(logger.WithOutput(io.Discard))
	require.NoError(t, confirm.Migrate(ctx, pool, cfg, log))

	runStoreContract(t, confirm.NewPostgresStore(pool))
}

func TestRedisStore_Contract(t *testing.T) {
	connURL := os.Getenv("TEST_REDIS_URL")
	if connURL == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  connURL,
		RetryAttempts:  1,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	runStoreContract(t, confirm.NewRedisStore(client))
}

func TestMongoStore_Contract(t *testing.T) {
	connURL := os.Getenv("TEST_MONGODB_URL")
	if connURL == "" {
		t.Skip("TEST_MONGODB_URL is not set")
	}

	ctx := context.Background()
	db, err := mongo.NewWithDatabase(ctx, mongo.Config{
		ConnectionURL:  connURL,
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
		RetryAttempts:  1,
		RetryInterval:  time.Second,
	}, "confirmkit_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	store := confirm.NewMongoStore(db)
	require.NoError(t, store.EnsureIndexes(ctx))

	runStoreContract(t, store)
}
