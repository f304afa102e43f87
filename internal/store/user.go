package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bitematch/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email sql.NullString
	var anonymous int
	err := scanner.Scan(&u.ID, &email, &u.Name, &u.Phone, &anonymous, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Anonymous = anonymous != 0
	return &u, nil
}

const userCols = `id, email, name, phone, anonymous, created_at, updated_at`

// CreateAnonymous inserts a guest user with no credentials.
func (s *UserStore) CreateAnonymous() (*model.User, error) {
	result, err := s.db.Exec(`INSERT INTO users (anonymous) VALUES (1)`)
	if err != nil {
		return nil, fmt.Errorf("insert anonymous user: %w", err)
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

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Upgrade attaches credentials to an existing user in place, keeping its id.
func (s *UserStore) Upgrade(id int64, email, name, phone, passwordHash string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET email = ?, name = ?, phone = ?, password_hash = ?, anonymous = 0, updated_at = ? WHERE id = ?`,
		email, name, phone, passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("upgrade user: %w", err)
	}
	return s.GetByID(id)
}

// PasswordHash returns the stored bcrypt hash, or "" for guests.
func (s *UserStore) PasswordHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
