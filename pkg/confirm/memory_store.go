package confirm

import (
	"context"
	"sync"
	"time"
)

type pairKey struct {
	userRef string
	purpose string
}

// MemoryStore implements Store using in-memory maps. It is the
// reference implementation used in tests and single-process setups and
// honors the same locking contract as the database bindings: access to
// one (userRef, purpose) pair is serialized, and staged mutations are
// applied atomically on commit.
type MemoryStore struct {
	mu      sync.RWMutex
	byValue map[string]*Record
	byPair  map[pairKey]map[string]struct{}

	lockMu sync.Mutex
	locks  map[pairKey]chan struct{}

	ticker *time.Ticker
	done   chan struct{}
}

// NewMemoryStore creates a new in-memory token store. A positive
// cleanupInterval starts a background sweep of expired records; pass 0
// to disable it (recommended in tests).
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		byValue: make(map[string]*Record),
		byPair:  make(map[pairKey]map[string]struct{}),
		locks:   make(map[pairKey]chan struct{}),
		done:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

// FindToken returns the record with the exact encoded value.
func (m *MemoryStore) FindToken(ctx context.Context, value string) (*Record, error) {
	m.mu.RLock()
	record, exists := m.byValue[value]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrTokenNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

// LockUserTokens serializes access to one (userRef, purpose) pair and
// runs fn against a snapshot of its records. Mutations staged by fn are
// applied in one step after fn returns nil.
func (m *MemoryStore) LockUserTokens(ctx context.Context, userRef, purpose string, fn func(tx TokenTx) error) error {
	key := pairKey{userRef: userRef, purpose: purpose}

	lock := m.pairLock(key)
	select {
	case lock <- struct{}{}:
		defer func() { <-lock }()
	case <-ctx.Done():
		return ctx.Err()
	}

	tx := &memoryTx{store: m, key: key, tokens: m.snapshot(key)}
	if err := fn(tx); err != nil {
		return err
	}

	return m.commit(tx)
}

// DeleteExpired removes all records whose lifetime has passed.
func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for value, record := range m.byValue {
		if record.Expired(now) {
			m.remove(value, record)
		}
	}

	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() error {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byValue)
}

func (m *MemoryStore) pairLock(key pairKey) chan struct{} {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()

	lock, exists := m.locks[key]
	if !exists {
		lock = make(chan struct{}, 1)
		m.locks[key] = lock
	}
	return lock
}

func (m *MemoryStore) snapshot(key pairKey) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := m.byPair[key]
	if len(values) == 0 {
		return nil
	}

	tokens := make([]Record, 0, len(values))
	for value := range values {
		if record, ok := m.byValue[value]; ok {
			tokens = append(tokens, *record)
		}
	}
	return tokens
}

// commit applies staged mutations in one step under the store mutex.
// Saves are validated before anything is touched so a conflict leaves
// the store unchanged.
func (m *MemoryStore) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range tx.saved {
		if existing, ok := m.byValue[record.Value]; ok {
			deleted := tx.deleteAll &&
				existing.UserRef == tx.key.userRef &&
				existing.Purpose == tx.key.purpose
			if !deleted {
				return ErrTokenConflict
			}
		}
	}

	if tx.deleteAll {
		for value := range m.byPair[tx.key] {
			if record, ok := m.byValue[value]; ok {
				m.remove(value, record)
			}
		}
	}

	for _, record := range tx.saved {
		recordCopy := *record
		m.byValue[record.Value] = &recordCopy

		values, ok := m.byPair[tx.key]
		if !ok {
			values = make(map[string]struct{})
			m.byPair[tx.key] = values
		}
		values[record.Value] = struct{}{}
	}

	return nil
}

// remove must be called with m.mu held.
func (m *MemoryStore) remove(value string, record *Record) {
	delete(m.byValue, value)

	key := pairKey{userRef: record.UserRef, purpose: record.Purpose}
	if values, ok := m.byPair[key]; ok {
		delete(values, value)
		if len(values) == 0 {
			delete(m.byPair, key)
		}
	}
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}

// memoryTx stages mutations for one locked pair until commit.
type memoryTx struct {
	store     *MemoryStore
	key       pairKey
	tokens    []Record
	saved     []*Record
	deleteAll bool
}

func (tx *memoryTx) Tokens() []Record {
	return tx.tokens
}

func (tx *memoryTx) Save(ctx context.Context, record *Record) error {
	if err := record.Valid(); err != nil {
		return err
	}

	tx.store.mu.RLock()
	_, exists := tx.store.byValue[record.Value]
	tx.store.mu.RUnlock()
	if exists && !tx.deleteAll {
		return ErrTokenConflict
	}

	for _, staged := range tx.saved {
		if staged.Value == record.Value {
			return ErrTokenConflict
		}
	}

	recordCopy := *record
	tx.saved = append(tx.saved, &recordCopy)
	return nil
}

func (tx *memoryTx) DeleteAll(ctx context.Context) (int64, error) {
	if tx.deleteAll {
		return 0, nil
	}
	tx.deleteAll = true
	return int64(len(tx.tokens)), nil
}
