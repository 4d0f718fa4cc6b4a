package model

import "time"

// Subscription tiers.
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

// ValidSubscription reports whether s is one of the known tiers.
func ValidSubscription(s string) bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}

// User is a registered account. VerificationToken is present only while
// the email is unverified. Token holds the most recently issued session
// token; an older token stops working the moment a newer one is stored.
type User struct {
	ID                int64
	Email             string
	PasswordHash      string
	AvatarURL         string
	Subscription      string
	Verified          bool
	VerificationToken *string
	Token             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the projection returned to clients. It never carries
// the password hash or any token.
type PublicUser struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

// Public returns the client-facing projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
	}
}
