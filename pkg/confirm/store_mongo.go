package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoCollectionName = "confirmation_tokens"

// MongoStore implements Store on a MongoDB collection. MongoDB has no
// row locks, so the per-pair serialization of the Store contract comes
// from multi-document transactions: concurrent writers for the same pair
// produce a write conflict, the driver retries the losing side, and the
// retried callback observes the committed state. This requires a replica
// set or sharded deployment.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a Mongo-backed token store using the
// confirmation_tokens collection of the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(mongoCollectionName)}
}

// EnsureIndexes creates the indexes the store relies on: a unique index
// on the encoded value, a compound index for pair lookups, and a TTL
// index so MongoDB drops expired records natively.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "value", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_ref", Value: 1}, {Key: "purpose", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

// FindToken returns the record with the exact encoded value.
func (s *MongoStore) FindToken(ctx context.Context, value string) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"value": value}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return doc.record()
}

// LockUserTokens runs fn inside a multi-document transaction scoped to
// the pair's documents. The driver may retry the whole callback on write
// conflict, which is why fn must stay free of side effects outside its
// TokenTx.
func (s *MongoStore) LockUserTokens(ctx context.Context, userRef, purpose string, fn func(tx TokenTx) error) error {
	sess, err := s.coll.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		tokens, err := s.findPair(ctx, userRef, purpose)
		if err != nil {
			return nil, err
		}

		tx := &mongoTx{coll: s.coll, userRef: userRef, purpose: purpose, tokens: tokens}
		if err := fn(tx); err != nil {
			return nil, err
		}

		if err := tx.apply(ctx); err != nil {
			return nil, err
		}

		return nil, nil
	})

	return err
}

func (s *MongoStore) findPair(ctx context.Context, userRef, purpose string) ([]Record, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"user_ref": userRef, "purpose": purpose})
	if err != nil {
		return nil, err
	}

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tokens := make([]Record, 0, len(docs))
	for _, doc := range docs {
		record, err := doc.record()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *record)
	}

	return tokens, nil
}

// mongoTx stages mutations and applies them inside the enclosing
// transaction once fn has returned nil.
type mongoTx struct {
	coll      *mongo.Collection
	userRef   string
	purpose   string
	tokens    []Record
	saved     []*Record
	deleteAll bool
}

func (tx *mongoTx) Tokens() []Record {
	return tx.tokens
}

func (tx *mongoTx) Save(ctx context.Context, record *Record) error {
	if err := record.Valid(); err != nil {
		return err
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

func (tx *mongoTx) DeleteAll(ctx context.Context) (int64, error) {
	if tx.deleteAll {
		return 0, nil
	}
	tx.deleteAll = true
	return int64(len(tx.tokens)), nil
}

func (tx *mongoTx) apply(ctx context.Context) error {
	if tx.deleteAll {
		_, err := tx.coll.DeleteMany(ctx, bson.M{"user_ref": tx.userRef, "purpose": tx.purpose})
		if err != nil {
			return err
		}
	}

	for _, record := range tx.saved {
		_, err := tx.coll.InsertOne(ctx, newMongoRecord(record))
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(ErrTokenConflict, err)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// mongoRecord mirrors Record with BSON field names; the UUID travels as
// its string form in _id.
type mongoRecord struct {
	ID        string    `bson:"_id"`
	Value     string    `bson:"value"`
	UserRef   string    `bson:"user_ref"`
	Purpose   string    `bson:"purpose"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func newMongoRecord(record *Record) mongoRecord {
	return mongoRecord{
		ID:        record.ID.String(),
		Value:     record.Value,
		UserRef:   record.UserRef,
		Purpose:   record.Purpose,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}

func (doc mongoRecord) record() (*Record, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}

	return &Record{
		ID:        id,
		Value:     doc.Value,
		UserRef:   doc.UserRef,
		Purpose:   doc.Purpose,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}
