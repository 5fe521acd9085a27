package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/tokobot/internal/domain"
)

func (s *Store) CreateAdminUser(ctx context.Context, username, passwordHash string) (domain.AdminUser, error) {
	u := domain.AdminUser{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx,
		s.rebind("INSERT INTO admin_users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id"),
		username, passwordHash, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domain.AdminUser{}, domain.ErrUserExists
	}
	if err != nil {
		return domain.AdminUser{}, fmt.Errorf("create admin user: %w", err)
	}
	return u, nil
}

// GetAdminUserByUsername returns domain.ErrInvalidCredentials when no such user exists.
func (s *Store) GetAdminUserByUsername(ctx context.Context, username string) (domain.AdminUser, error) {
	var u domain.AdminUser
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, username, password_hash, created_at FROM admin_users WHERE username = ?"),
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AdminUser{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.AdminUser{}, fmt.Errorf("get admin user: %w", err)
	}
	return u, nil
}

func (s *Store) CountAdminUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return n, nil
}
