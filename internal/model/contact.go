package model

import "time"

// Contact belongs to exactly one user. OwnerID is set at creation and
// never changes.
type Contact struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
