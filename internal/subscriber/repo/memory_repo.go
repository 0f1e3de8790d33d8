package repo

import (
	"context"

	"github.com/hashicorp/go-memdb"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/entity"
)

type MemoryRepo struct {
	db *memdb.MemDB
}

func NewMemoryRepo() (*MemoryRepo, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"subscribers": {
				Name: "subscribers",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"email": {
						Name:    "email",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
		},
	}
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &MemoryRepo{db: db}, nil
}

func (r *MemoryRepo) EnsureTable(context.Context) error { return nil }

func (r *MemoryRepo) Create(_ context.Context, s *entity.Subscriber) error {
	txn := r.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First("subscribers", "email", s.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	cp := *s
	if err := txn.Insert("subscribers", &cp); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, email string) (*entity.Subscriber, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First("subscribers", "email", email)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	cp := *raw.(*entity.Subscriber)
	return &cp, nil
}
