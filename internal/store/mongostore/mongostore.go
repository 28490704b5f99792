// Package mongostore is the MongoDB record backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"pocketflow/internal/core"
)

// recordDoc is the stored document. Keys are camelCase (userId, paymentMethod).
type recordDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	UserID        string               `bson:"userId"`
	Date          time.Time            `bson:"date"`
	Description   string               `bson:"description"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Category      string               `bson:"category"`
	PaymentMethod string               `bson:"paymentMethod"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

// Store implements store.Store on a single collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Config selects the deployment, database and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Connect dials MongoDB, verifies the connection and ensures the owner index.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	s := &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("userId_1__id_1"),
	})
	if err != nil {
		return fmt.Errorf("create owner index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

// ListByOwner returns the owner's records sorted by ObjectID, i.e. insertion order.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error) {
	cur, err := s.coll.Find(ctx, bson.M{"userId": ownerID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, core.NewStorageError("find records", err)
	}
	defer cur.Close(ctx)

	out := make([]core.FinancialRecord, 0)
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, core.NewStorageError("decode record", err)
		}
		rec, err := doc.record()
		if err != nil {
			return nil, core.NewStorageError("decode record", err)
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, core.NewStorageError("find records", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, r core.FinancialRecord) (core.FinancialRecord, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	amount, err := toDecimal128(r.Amount)
	if err != nil {
		return core.FinancialRecord{}, core.NewValidationError("amount", "is out of range")
	}
	now := s.now().UTC()
	doc := recordDoc{
		ID:            primitive.NewObjectID(),
		UserID:        r.OwnerID,
		Date:          r.Date,
		Description:   r.Description,
		Amount:        amount,
		Category:      r.Category,
		PaymentMethod: r.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return core.FinancialRecord{}, core.NewStorageError("insert record", err)
	}
	created, err := doc.record()
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("decode record", err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	patch = patch.Normalized()
	if err := patch.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}

	set := bson.M{"updatedAt": s.now().UTC()}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Amount != nil {
		amount, err := toDecimal128(*patch.Amount)
		if err != nil {
			return core.FinancialRecord{}, core.NewValidationError("amount", "is out of range")
		}
		set["amount"] = amount
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.PaymentMethod != nil {
		set["paymentMethod"] = *patch.PaymentMethod
	}

	var doc recordDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("update record", err)
	}
	rec, err := doc.record()
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("decode record", err)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) (core.FinancialRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	var doc recordDoc
	err = s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("delete record", err)
	}
	rec, err := doc.record()
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("decode record", err)
	}
	return rec, nil
}

func (d recordDoc) record() (core.FinancialRecord, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	return core.FinancialRecord{
		ID:            d.ID.Hex(),
		OwnerID:       d.UserID,
		Date:          d.Date.UTC(),
		Description:   d.Description,
		Amount:        amount,
		Category:      d.Category,
		PaymentMethod: d.PaymentMethod,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}
