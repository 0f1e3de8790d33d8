package repo

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/entity"
)

var (
	ErrNotFound  = errors.New("subscriber not found")
	ErrDuplicate = errors.New("subscriber already exists")
)

// Repo stores subscribers with a case-insensitive unique email.
type Repo interface {
	EnsureTable(ctx context.Context) error
	Create(ctx context.Context, s *entity.Subscriber) error
	GetByEmail(ctx context.Context, email string) (*entity.Subscriber, error)
}
