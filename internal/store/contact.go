package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/rolodex/internal/model"
)

// ContactStore scopes every query to an owner. A contact that exists
// but belongs to someone else is indistinguishable from one that does
// not exist.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func scanContact(scanner interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	err := scanner.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Favorite,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const contactCols = `id, owner_id, name, email, phone, favorite, created_at, updated_at`

func (s *ContactStore) ListByOwner(ownerID int64) ([]model.Contact, error) {
	rows, err := s.db.Query(
		`SELECT `+contactCols+` FROM contacts WHERE owner_id = ? ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func (s *ContactStore) GetByID(ownerID, id int64) (*model.Contact, error) {
	row := s.db.QueryRow(
		`SELECT `+contactCols+` FROM contacts WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Create inserts a contact owned by ownerID. Ownership is fixed here
// and never updated afterwards.
func (s *ContactStore) Create(ownerID int64, name, email, phone string, favorite bool) (*model.Contact, error) {
	result, err := s.db.Exec(
		`INSERT INTO contacts (owner_id, name, email, phone, favorite) VALUES (?, ?, ?, ?, ?)`,
		ownerID, name, email, phone, favorite,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ownerID, id)
}

// Update overwrites the given fields on the owner's contact and returns
// the updated row, or nil if the contact is missing or owned by someone
// else.
func (s *ContactStore) Update(ownerID, id int64, name, email, phone string, favorite bool) (*model.Contact, error) {
	result, err := s.db.Exec(
		`UPDATE contacts SET name = ?, email = ?, phone = ?, favorite = ?, updated_at = datetime('now') WHERE id = ? AND owner_id = ?`,
		name, email, phone, favorite, id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ownerID, id)
}

func (s *ContactStore) UpdateFavorite(ownerID, id int64, favorite bool) (*model.Contact, error) {
	result, err := s.db.Exec(
		`UPDATE contacts SET favorite = ?, updated_at = datetime('now') WHERE id = ? AND owner_id = ?`,
		favorite, id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update favorite: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ownerID, id)
}

// Delete removes the owner's contact and returns the deleted row, or
// nil if nothing matched.
func (s *ContactStore) Delete(ownerID, id int64) (*model.Contact, error) {
	c, err := s.GetByID(ownerID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if _, err := s.db.Exec(`DELETE FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return nil, fmt.Errorf("delete contact: %w", err)
	}
	return c, nil
}
