package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UserRepository resolves operator accounts. The hub only reads users; all
// writes happen in the account service.
type UserRepository interface {
	// GetByEmail retrieves a user by email address.
	// Returns ErrUserNotFound if no such user exists.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by primary key.
	// Returns ErrUserNotFound if no such user exists.
	GetByID(ctx context.Context, id int64) (*User, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite-backed user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, name, surname, phone_number, age, email, is_verified`

// GetByEmail retrieves a user by email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by primary key.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var name, surname, phone sql.NullString
	var age sql.NullInt64

	err := row.Scan(&u.ID, &name, &surname, &phone, &age, &u.Email, &u.IsVerified)
	if err != nil {
		return nil, err
	}

	u.Name = name.String
	u.Surname = surname.String
	u.PhoneNumber = phone.String
	u.Age = int(age.Int64)
	return &u, nil
}
