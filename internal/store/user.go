package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/rolodex/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var verificationToken, token sql.NullString
	err := scanner.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.AvatarURL, &u.Subscription,
		&u.Verified, &verificationToken, &token, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verificationToken.Valid {
		u.VerificationToken = &verificationToken.String
	}
	if token.Valid {
		u.Token = &token.String
	}
	return &u, nil
}

const userCols = `id, email, password_hash, avatar_url, subscription, verified, verification_token, token, created_at, updated_at`

// Create inserts a new unverified user. The email is stored case-folded
// so uniqueness holds regardless of the caller's casing.
func (s *UserStore) Create(email, passwordHash, avatarURL, verificationToken string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, avatar_url, verification_token) VALUES (?, ?, ?, ?)`,
		strings.ToLower(email), passwordHash, avatarURL, verificationToken,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail looks up a user by case-folded email.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, strings.ToLower(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByVerificationToken(token string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE verification_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by verification token: %w", err)
	}
	return u, nil
}

// MarkVerified flips the user to verified and consumes the verification
// token in the same statement, keeping the token-null-iff-verified
// invariant.
func (s *UserStore) MarkVerified(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET verified = 1, verification_token = NULL, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// SetToken stores the session token issued by the latest login,
// overwriting (and thereby revoking) any previous one.
func (s *UserStore) SetToken(id int64, token string) error {
	_, err := s.db.Exec(
		`UPDATE users SET token = ?, updated_at = datetime('now') WHERE id = ?`,
		token, id,
	)
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

// ClearToken revokes the current session token.
func (s *UserStore) ClearToken(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET token = NULL, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// UpdateSubscription persists the tier and returns the updated user,
// or nil if the user no longer exists.
func (s *UserStore) UpdateSubscription(id int64, subscription string) (*model.User, error) {
	result, err := s.db.Exec(
		`UPDATE users SET subscription = ?, updated_at = datetime('now') WHERE id = ?`,
		subscription, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdateAvatarURL(id int64, avatarURL string) error {
	_, err := s.db.Exec(
		`UPDATE users SET avatar_url = ?, updated_at = datetime('now') WHERE id = ?`,
		avatarURL, id,
	)
	if err != nil {
		return fmt.Errorf("update avatar url: %w", err)
	}
	return nil
}
