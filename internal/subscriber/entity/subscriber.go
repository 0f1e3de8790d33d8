package entity

import "time"

// Subscriber is one newsletter sign-up from the landing page.
type Subscriber struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	Email     string    `json:"email" bson:"email" db:"email"`
	Source    string    `json:"source,omitempty" bson:"source,omitempty" db:"source"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
}
