package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/database"
)

const (
	profilesCollection = "profiles"
	markersCollection  = "markers"

	IndexSubjectUnique = "subjectId_unique"
	IndexEmailUnique   = "email_ci_unique"
)

// MongoStore keeps customers and sellers in the profiles collection.
type MongoStore struct {
	handle *database.MongoHandle
}

func NewMongoStore(h *database.MongoHandle) *MongoStore { return &MongoStore{handle: h} }

func (s *MongoStore) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.handle.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// EnsureIndexes creates the unique subject and case-insensitive email indexes (idempotent).
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	c, err := s.collection(ctx, profilesCollection)
	if err != nil {
		return err
	}
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subjectId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexSubjectUnique),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexEmailUnique).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
	}
	if _, err := c.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindBySubject(ctx context.Context, subjectID string) (*entity.Document, error) {
	c, err := s.collection(ctx, profilesCollection)
	if err != nil {
		return nil, err
	}
	var doc entity.Document
	err = c.FindOne(ctx, bson.D{{Key: "subjectId", Value: subjectID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &doc, nil
}

func (s *MongoStore) Insert(ctx context.Context, doc *entity.Document) error {
	c, err := s.collection(ctx, profilesCollection)
	if err != nil {
		return err
	}
	if _, err := c.InsertOne(ctx, doc); err != nil {
		return classifyMongo(err)
	}
	return nil
}

// ClaimAdmin inserts the markers/_id=admin document; the _id index makes it a singleton.
func (s *MongoStore) ClaimAdmin(ctx context.Context, subjectID string) error {
	c, err := s.collection(ctx, markersCollection)
	if err != nil {
		return err
	}
	_, err = c.InsertOne(ctx, bson.D{
		{Key: "_id", Value: adminMarker},
		{Key: "subjectId", Value: subjectID},
		{Key: "claimedAt", Value: time.Now().UTC()},
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAdminClaimed
	}
	if err != nil {
		return fmt.Errorf("claim admin: %w", err)
	}
	return nil
}

// classifyMongo turns an E11000 error into ErrDuplicateSubject or ErrDuplicateEmail
// by the violated index name.
func classifyMongo(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert profile: %w", err)
	}
	msg := err.Error()
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				msg = e.Message
				break
			}
		}
	}
	switch {
	case strings.Contains(msg, IndexEmailUnique):
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, msg)
	case strings.Contains(msg, IndexSubjectUnique):
		return fmt.Errorf("%w: %s", ErrDuplicateSubject, msg)
	}
	return fmt.Errorf("insert profile: %w", err)
}
