package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

// Role selects the profile variant. It is fixed at creation.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts customer or seller in any case. Anything else, admin included, is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleSeller:
		return RoleSeller, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Dashboard is the client route a profile of this role lands on.
func (r Role) Dashboard() string { return "/dashboard/" + string(r) }

// FieldError names the first missing or invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }

func required(field string) *FieldError { return &FieldError{Field: field, Reason: "is required"} }

type Address struct {
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country" bson:"country"`
}

// Validate requires every part of the address.
func (a *Address) Validate() error {
	parts := []struct{ name, v string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, p := range parts {
		if strings.TrimSpace(p.v) == "" {
			return required("address." + p.name)
		}
	}
	return nil
}

func (a *Address) trimmed() *Address {
	if a == nil {
		return nil
	}
	return &Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// Base carries the fields every profile variant shares.
type Base struct {
	ID                string
	SubjectID         string
	Email             string
	Name              string
	ProfilePictureURL string
	Address           *Address
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile is either a *Customer or a *Seller.
type Profile interface {
	Role() Role
	Common() Base
	sealed()
}

type Customer struct {
	Base
	ShippingAddress string
}

func (*Customer) Role() Role { return RoleCustomer }
func (c *Customer) Common() Base { return c.Base }
func (*Customer) sealed() {}

type Seller struct {
	Base
	StoreName        string
	StoreDescription string
}

func (*Seller) Role() Role { return RoleSeller }
func (s *Seller) Common() Base { return s.Base }
func (*Seller) sealed() {}

type CustomerInput struct {
	SubjectID         string
	Email             string
	Name              string
	ProfilePictureURL string
	ShippingAddress   string
	Address           *Address
}

type SellerInput struct {
	SubjectID         string
	Email             string
	Name              string
	ProfilePictureURL string
	StoreName         string
	StoreDescription  string
	Address           *Address
}

func newBase(subjectID, email, name, picture string, addr *Address) (Base, error) {
	b := Base{
		SubjectID:         strings.TrimSpace(subjectID),
		Email:             NormalizeEmail(email),
		Name:              strings.TrimSpace(name),
		ProfilePictureURL: strings.TrimSpace(picture),
		Address:           addr.trimmed(),
	}
	if b.SubjectID == "" {
		return b, required("subjectId")
	}
	if b.Email == "" {
		return b, required("email")
	}
	if b.Name == "" {
		return b, required("name")
	}
	if b.Address != nil {
		if err := b.Address.Validate(); err != nil {
			return b, err
		}
	}
	now := time.Now().UTC()
	b.ID = utilities.NewDocumentID()
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

// NewCustomer validates in and builds a customer. A customer needs an address
// or a non-blank shipping address.
func NewCustomer(in CustomerInput) (*Customer, error) {
	b, err := newBase(in.SubjectID, in.Email, in.Name, in.ProfilePictureURL, in.Address)
	if err != nil {
		return nil, err
	}
	c := &Customer{Base: b, ShippingAddress: strings.TrimSpace(in.ShippingAddress)}
	if c.Address == nil && c.ShippingAddress == "" {
		return nil, required("shippingAddress")
	}
	return c, nil
}

// NewSeller validates in and builds a seller.
func NewSeller(in SellerInput) (*Seller, error) {
	b, err := newBase(in.SubjectID, in.Email, in.Name, in.ProfilePictureURL, in.Address)
	if err != nil {
		return nil, err
	}
	s := &Seller{
		Base:             b,
		StoreName:        strings.TrimSpace(in.StoreName),
		StoreDescription: strings.TrimSpace(in.StoreDescription),
	}
	if s.StoreName == "" {
		return nil, required("storeName")
	}
	if s.StoreDescription == "" {
		return nil, required("storeDescription")
	}
	return s, nil
}

// NormalizeEmail trims and lower-cases an address. Uniqueness is compared on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
