package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldcart/internal/domain"
)

// Account is a stored user plus credentials. Only the stub needs it; the
// client never sees password hashes.
type Account struct {
	domain.User
	Username       string
	HashedPassword string
}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name, role, avatar, hashed_password)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Username, a.Name, a.Role, a.Avatar, a.HashedPassword)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*Account, error) {
	a := &Account{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, name, role, avatar, hashed_password
		FROM users WHERE username = ?
	`, username).Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.Avatar, &a.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return a, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*Account, error) {
	a := &Account{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, name, role, avatar, hashed_password
		FROM users WHERE id = ?
	`, id).Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.Avatar, &a.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return a, nil
}
