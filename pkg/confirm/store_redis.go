package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisTokenKeyPrefix = "confirm:token:"
	redisPairKeyPrefix  = "confirm:user:"
	redisLockKeyPrefix  = "confirm:lock:"

	redisLockTTL   = 10 * time.Second
	redisLockRetry = 25 * time.Millisecond
)

// releaseLockScript deletes the lock key only when it still holds this
// owner's value, so an expired lock taken over by another caller is
// never released by the previous owner.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore implements Store on top of go-redis. Redis has no row
// locks, so the per-pair lock of the Store contract is substituted with
// a SET NX PX mutex keyed by (userRef, purpose); staged mutations are
// flushed in a single MULTI/EXEC pipeline on commit. Record keys carry
// native TTLs aligned with the token lifetime, so expired records
// disappear without a cleanup sweep.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed token store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// FindToken returns the record with the exact encoded value.
func (s *RedisStore) FindToken(ctx context.Context, value string) (*Record, error) {
	data, err := s.client.Get(ctx, redisTokenKeyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

// LockUserTokens acquires the pair mutex, loads the live records for the
// pair, runs fn, and flushes staged mutations in one pipeline.
func (s *RedisStore) LockUserTokens(ctx context.Context, userRef, purpose string, fn func(tx TokenTx) error) error {
	lockKey := redisLockKeyPrefix + userRef + ":" + purpose
	lockVal := uuid.NewString()

	if err := s.acquireLock(ctx, lockKey, lockVal); err != nil {
		return err
	}
	defer func() {
		// Release even when the caller's context is already canceled.
		_ = releaseLockScript.Run(context.WithoutCancel(ctx), s.client, []string{lockKey}, lockVal).Err()
	}()

	pairKey := redisPairKeyPrefix + userRef + ":" + purpose
	tokens, stale, err := s.loadPair(ctx, pairKey)
	if err != nil {
		return err
	}

	tx := &redisTx{store: s, pairKey: pairKey, tokens: tokens, stale: stale}
	if err := fn(tx); err != nil {
		return err
	}

	return tx.commit(ctx)
}

func (s *RedisStore) acquireLock(ctx context.Context, lockKey, lockVal string) error {
	for {
		ok, err := s.client.SetNX(ctx, lockKey, lockVal, redisLockTTL).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(redisLockRetry):
		}
	}
}

// loadPair resolves the pair's value set into records, separating
// members whose record keys have already expired.
func (s *RedisStore) loadPair(ctx context.Context, pairKey string) (tokens []Record, stale []string, err error) {
	values, err := s.client.SMembers(ctx, pairKey).Result()
	if err != nil {
		return nil, nil, err
	}

	for _, value := range values {
		data, err := s.client.Get(ctx, redisTokenKeyPrefix+value).Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, value)
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, nil, err
		}
		tokens = append(tokens, record)
	}

	return tokens, stale, nil
}

// redisTx stages mutations while the pair mutex is held and applies them
// atomically with MULTI/EXEC on commit.
type redisTx struct {
	store     *RedisStore
	pairKey   string
	tokens    []Record
	stale     []string
	saved     []*Record
	deleteAll bool
}

func (tx *redisTx) Tokens() []Record {
	return tx.tokens
}

func (tx *redisTx) Save(ctx context.Context, record *Record) error {
	if err := record.Valid(); err != nil {
		return err
	}

	for _, staged := range tx.saved {
		if staged.Value == record.Value {
			return ErrTokenConflict
		}
	}

	// The value may already be stored under another pair; the pair mutex
	// does not cover it, so check the key directly.
	exists, err := tx.store.client.Exists(ctx, redisTokenKeyPrefix+record.Value).Result()
	if err != nil {
		return err
	}
	if exists > 0 && !tx.ownsValue(record.Value) {
		return ErrTokenConflict
	}

	recordCopy := *record
	tx.saved = append(tx.saved, &recordCopy)
	return nil
}

func (tx *redisTx) DeleteAll(ctx context.Context) (int64, error) {
	if tx.deleteAll {
		return 0, nil
	}
	tx.deleteAll = true
	return int64(len(tx.tokens)), nil
}

// ownsValue reports whether the value belongs to the locked pair and is
// staged for deletion, in which case re-inserting it is not a conflict.
func (tx *redisTx) ownsValue(value string) bool {
	if !tx.deleteAll {
		return false
	}
	for _, record := range tx.tokens {
		if record.Value == value {
			return true
		}
	}
	return false
}

func (tx *redisTx) commit(ctx context.Context) error {
	if len(tx.stale) == 0 && len(tx.saved) == 0 && !tx.deleteAll {
		return nil
	}

	_, err := tx.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(tx.stale) > 0 {
			pipe.SRem(ctx, tx.pairKey, toAnySlice(tx.stale)...)
		}

		if tx.deleteAll {
			for _, record := range tx.tokens {
				pipe.Del(ctx, redisTokenKeyPrefix+record.Value)
			}
			pipe.Del(ctx, tx.pairKey)
		}

		for _, record := range tx.saved {
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}

			ttl := time.Until(record.ExpiresAt)
			if ttl <= 0 {
				ttl = time.Second
			}

			pipe.Set(ctx, redisTokenKeyPrefix+record.Value, data, ttl)
			pipe.SAdd(ctx, tx.pairKey, record.Value)
			pipe.Expire(ctx, tx.pairKey, ttl)
		}

		return nil
	})

	return err
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
