package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/events"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

// RegistrationRequest carries the client supplied fields. Email is not among them:
// it always comes from the identity provider.
type RegistrationRequest struct {
	Role string
	// ClaimedSubjectID is the legacy body clerkId. It is only compared, never used.
	ClaimedSubjectID  string
	Name              *string
	ProfilePictureURL string
	ShippingAddress   string
	Address           *entity.Address
	StoreName         string
	StoreDescription  string
}

// Service binds verified subjects to role-typed profiles.
type Service struct {
	store      repo.Store
	identities auth.ProfileFetcher
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
}

func NewService(store repo.Store, identities auth.ProfileFetcher, publisher events.Publisher, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, identities: identities, publisher: publisher, metrics: m, logger: logger}
}

// Register creates the profile of subjectID exactly once. The store's unique
// indexes decide races; the lookup before the insert only saves the identity call.
func (s *Service) Register(ctx context.Context, subjectID string, req RegistrationRequest) (entity.Profile, error) {
	p, err := s.register(ctx, subjectID, req)
	label := ""
	if r, perr := entity.ParseRole(req.Role); perr == nil {
		label = string(r)
	}
	s.metrics.Registration(label, outcome(err))
	return p, err
}

func (s *Service) register(ctx context.Context, subjectID string, req RegistrationRequest) (entity.Profile, error) {
	log := utilities.LoggerFrom(ctx, s.logger)

	if strings.TrimSpace(req.Role) == "" {
		return nil, invalid("role", "is required")
	}
	role, err := entity.ParseRole(req.Role)
	if err != nil {
		return nil, invalid("role", "must be customer or seller")
	}
	if req.ClaimedSubjectID != "" && req.ClaimedSubjectID != subjectID {
		log.Warnw("registration subject mismatch", "subject", subjectID, "claimed", req.ClaimedSubjectID)
		return nil, ErrForbidden
	}

	if _, err := s.store.FindBySubject(ctx, subjectID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, internal("find profile", err)
	}

	ident, err := s.identities.FetchIdentity(ctx, subjectID)
	if err != nil {
		return nil, internal("fetch identity", err)
	}
	email := strings.TrimSpace(ident.PrimaryEmail)
	if email == "" {
		log.Errorw("identity has no primary email", "subject", subjectID)
		return nil, ErrEmailUnavailable
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		name = strings.TrimSpace(ident.GivenName + " " + ident.FamilyName)
	}
	if name == "" {
		return nil, invalid("name", "is required")
	}
	picture := strings.TrimSpace(req.ProfilePictureURL)
	if picture == "" {
		picture = ident.ImageURL
	}

	var p entity.Profile
	switch role {
	case entity.RoleCustomer:
		p, err = entity.NewCustomer(entity.CustomerInput{
			SubjectID:         subjectID,
			Email:             email,
			Name:              name,
			ProfilePictureURL: picture,
			ShippingAddress:   req.ShippingAddress,
			Address:           req.Address,
		})
	case entity.RoleSeller:
		p, err = entity.NewSeller(entity.SellerInput{
			SubjectID:         subjectID,
			Email:             email,
			Name:              name,
			ProfilePictureURL: picture,
			StoreName:         req.StoreName,
			StoreDescription:  req.StoreDescription,
			Address:           req.Address,
		})
	}
	if err != nil {
		var fe *entity.FieldError
		if errors.As(err, &fe) {
			return nil, invalid(fe.Field, fe.Reason)
		}
		return nil, internal("build profile", err)
	}

	doc := entity.ToDocument(p)
	if err := s.store.Insert(ctx, doc); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateSubject):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailConflict
		}
		return nil, internal("insert profile", err)
	}
	log.Infow("profile registered", "subject", subjectID, "role", role, "profile_id", doc.ID)

	s.publishRegistered(ctx, doc)
	return p, nil
}

func (s *Service) publishRegistered(ctx context.Context, doc *entity.Document) {
	ev := events.ProfileRegistered{
		Type:       events.TypeProfileRegistered,
		SubjectID:  doc.SubjectID,
		Role:       string(doc.Role),
		ProfileID:  doc.ID,
		OccurredAt: doc.CreatedAt,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pctx, doc.SubjectID, ev); err != nil {
		utilities.LoggerFrom(ctx, s.logger).Warnw("publish profile.registered failed", "subject", doc.SubjectID, "err", err)
	}
}

// GetProfile returns the profile of subjectID whichever variant it is.
func (s *Service) GetProfile(ctx context.Context, subjectID string) (entity.Profile, error) {
	doc, err := s.store.FindBySubject(ctx, subjectID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internal("find profile", err)
	}
	p, err := entity.FromDocument(doc)
	if err != nil {
		return nil, internal("decode profile", err)
	}
	return p, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCreated
	case errors.Is(err, ErrAlreadyRegistered):
		return metrics.OutcomeAlreadyRegistered
	case errors.Is(err, ErrEmailConflict):
		return metrics.OutcomeEmailConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrForbidden):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
