package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/set-night/tokobot/internal/domain"
)

// AdminStore persists admin accounts.
type AdminStore interface {
	CreateAdminUser(ctx context.Context, username, passwordHash string) (domain.AdminUser, error)
	GetAdminUserByUsername(ctx context.Context, username string) (domain.AdminUser, error)
	CountAdminUsers(ctx context.Context) (int, error)
}

// AdminClaims are carried by an admin session token.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService checks admin credentials and issues signed session tokens.
type AuthService struct {
	store  AdminStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(store AdminStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login returns a session token for valid credentials and
// domain.ErrInvalidCredentials otherwise.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := s.store.GetAdminUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", time.Time{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, domain.ErrInvalidCredentials
	}
	return s.issue(u.Username)
}

func (s *AuthService) issue(username string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify parses a session token and returns its claims.
func (s *AuthService) Verify(token string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims, nil
}

// CreateAdmin stores a new admin with a bcrypt hashed password.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string) (domain.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.AdminUser{}, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AdminUser{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateAdminUser(ctx, username, string(hash))
}

// EnsureAdmin creates the given account only when no admin exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.store.CountAdminUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}
