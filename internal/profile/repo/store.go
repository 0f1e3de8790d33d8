package repo

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
)

var (
	ErrNotFound         = errors.New("profile not found")
	ErrDuplicateSubject = errors.New("duplicate subject")
	ErrDuplicateEmail   = errors.New("duplicate email")
	ErrAdminClaimed     = errors.New("admin already claimed")
)

// Store persists profile documents. Implementations must enforce uniqueness of
// SubjectID and of the case-insensitive Email at insert time.
type Store interface {
	FindBySubject(ctx context.Context, subjectID string) (*entity.Document, error)
	Insert(ctx context.Context, doc *entity.Document) error
	EnsureIndexes(ctx context.Context) error
}

// AdminClaimer sets the singleton admin marker. Only one claim ever succeeds.
type AdminClaimer interface {
	ClaimAdmin(ctx context.Context, subjectID string) error
}

const adminMarker = "admin"
