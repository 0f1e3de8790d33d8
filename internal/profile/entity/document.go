package entity

import (
	"errors"
	"fmt"
	"time"
)

// Document is the stored form of a profile. Both variants share one collection
// so the subject index spans customers and sellers.
type Document struct {
	ID                string    `json:"id" bson:"_id" db:"id"`
	SubjectID         string    `json:"subjectId" bson:"subjectId" db:"subject_id"`
	Role              Role      `json:"role" bson:"role" db:"role"`
	Email             string    `json:"email" bson:"email" db:"email"`
	Name              string    `json:"name" bson:"name"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty" bson:"profilePictureUrl,omitempty"`
	Address           *Address  `json:"address,omitempty" bson:"address,omitempty"`
	ShippingAddress   string    `json:"shippingAddress,omitempty" bson:"shippingAddress,omitempty"`
	StoreName         string    `json:"storeName,omitempty" bson:"storeName,omitempty"`
	StoreDescription  string    `json:"storeDescription,omitempty" bson:"storeDescription,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

var ErrNilDocument = errors.New("nil document")

func ToDocument(p Profile) *Document {
	b := p.Common()
	d := &Document{
		ID:                b.ID,
		SubjectID:         b.SubjectID,
		Role:              p.Role(),
		Email:             b.Email,
		Name:              b.Name,
		ProfilePictureURL: b.ProfilePictureURL,
		Address:           b.Address,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	switch v := p.(type) {
	case *Customer:
		d.ShippingAddress = v.ShippingAddress
	case *Seller:
		d.StoreName = v.StoreName
		d.StoreDescription = v.StoreDescription
	}
	return d
}

// FromDocument rebuilds the variant named by d.Role. Stored data is not revalidated.
func FromDocument(d *Document) (Profile, error) {
	if d == nil {
		return nil, ErrNilDocument
	}
	b := Base{
		ID:                d.ID,
		SubjectID:         d.SubjectID,
		Email:             d.Email,
		Name:              d.Name,
		ProfilePictureURL: d.ProfilePictureURL,
		Address:           d.Address,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	switch d.Role {
	case RoleCustomer:
		return &Customer{Base: b, ShippingAddress: d.ShippingAddress}, nil
	case RoleSeller:
		return &Seller{Base: b, StoreName: d.StoreName, StoreDescription: d.StoreDescription}, nil
	}
	return nil, fmt.Errorf("document %s: %w: %q", d.ID, ErrUnknownRole, d.Role)
}
