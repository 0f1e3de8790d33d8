package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
)

const (
	tableProfiles = "profiles"
	tableMarkers  = "markers"
)

type marker struct {
	Name      string
	SubjectID string
	CreatedAt time.Time
}

func memSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableProfiles: {
				Name: tableProfiles,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"subject": {
						Name:    "subject",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "SubjectID"},
					},
					"email": {
						Name:    "email",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
			tableMarkers: {
				Name: tableMarkers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
		},
	}
}

// MemoryStore is a go-memdb backed Store for local runs and tests. Write
// transactions are serialized, so the unique checks and the insert are atomic.
type MemoryStore struct {
	db *memdb.MemDB
}

func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memSchema())
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

func (s *MemoryStore) EnsureIndexes(context.Context) error { return nil }

func (s *MemoryStore) FindBySubject(_ context.Context, subjectID string) (*entity.Document, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableProfiles, "subject", subjectID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return copyDoc(raw.(*entity.Document)), nil
}

func (s *MemoryStore) Insert(_ context.Context, doc *entity.Document) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if existing, err := txn.First(tableProfiles, "subject", doc.SubjectID); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateSubject, doc.SubjectID)
	}
	if existing, err := txn.First(tableProfiles, "email", doc.Email); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, doc.Email)
	}
	if err := txn.Insert(tableProfiles, copyDoc(doc)); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) ClaimAdmin(_ context.Context, subjectID string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(tableMarkers, "id", adminMarker)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAdminClaimed
	}
	if err := txn.Insert(tableMarkers, &marker{Name: adminMarker, SubjectID: subjectID, CreatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// copyDoc keeps callers from mutating rows held by the immutable radix tree.
func copyDoc(d *entity.Document) *entity.Document {
	c := *d
	if d.Address != nil {
		a := *d.Address
		c.Address = &a
	}
	return &c
}
