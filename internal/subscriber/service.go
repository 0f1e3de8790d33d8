package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/entity"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

var ErrInvalidEmail = errors.New("invalid email")

const defaultSource = "landing"

type Service struct {
	repo   repo.Repo
	logger *zap.SugaredLogger
}

func NewService(r repo.Repo, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, logger: logger}
}

// Subscribe records email once. A repeated address returns the stored record with created=false.
func (s *Service) Subscribe(ctx context.Context, email, source string) (*entity.Subscriber, bool, error) {
	addr, err := normalize(email)
	if err != nil {
		return nil, false, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = defaultSource
	}
	sub := &entity.Subscriber{
		ID:        utilities.NewDocumentID(),
		Email:     addr,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	err = s.repo.Create(ctx, sub)
	if errors.Is(err, repo.ErrDuplicate) {
		existing, gerr := s.repo.GetByEmail(ctx, addr)
		if gerr != nil {
			return nil, false, fmt.Errorf("load subscriber: %w", gerr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	utilities.LoggerFrom(ctx, s.logger).Infow("newsletter subscription", "subscriber_id", sub.ID, "source", source)
	return sub, true, nil
}

// normalize accepts a bare address only, no display name.
func normalize(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", ErrInvalidEmail
	}
	a, err := mail.ParseAddress(e)
	if err != nil || a.Address != e || a.Name != "" {
		return "", ErrInvalidEmail
	}
	return e, nil
}
