package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized covers every credential failure. The reason is wrapped for logs only.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrIdentityNotFound = errors.New("identity not found")
)

// ExternalIdentity is the identity provider's view of a user. It is never stored as is.
type ExternalIdentity struct {
	SubjectID    string `json:"subjectId"`
	PrimaryEmail string `json:"primaryEmail"`
	GivenName    string `json:"givenName,omitempty"`
	FamilyName   string `json:"familyName,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

// TokenVerifier resolves a session credential to the subject it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// ProfileFetcher loads the identity provider's record for a subject.
type ProfileFetcher interface {
	FetchIdentity(ctx context.Context, subjectID string) (*ExternalIdentity, error)
}
