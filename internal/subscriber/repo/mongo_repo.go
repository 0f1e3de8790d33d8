package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/entity"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/database"
)

type MongoRepo struct {
	handle *database.MongoHandle
}

func NewMongoRepo(h *database.MongoHandle) *MongoRepo { return &MongoRepo{handle: h} }

var emailCollation = &options.Collation{Locale: "en", Strength: 2}

func (r *MongoRepo) coll(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.handle.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection("subscribers"), nil
}

func (r *MongoRepo) EnsureTable(ctx context.Context) error {
	c, err := r.coll(ctx)
	if err != nil {
		return err
	}
	_, err = c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_ci_unique").SetCollation(emailCollation),
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, s *entity.Subscriber) error {
	c, err := r.coll(ctx)
	if err != nil {
		return err
	}
	if _, err := c.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetByEmail(ctx context.Context, email string) (*entity.Subscriber, error) {
	c, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}
	var s entity.Subscriber
	err = c.FindOne(ctx, bson.D{{Key: "email", Value: email}}, options.FindOne().SetCollation(emailCollation)).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
