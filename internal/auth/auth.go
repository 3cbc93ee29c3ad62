// Package auth issues and checks session tokens for stored accounts.
package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bridge/internal/clock"
	"bridge/internal/model"
	"bridge/internal/store"
)

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired session token")
	ErrSecretRequired     = errors.New("session secret is required")
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	minPasswordLength = 8
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewService(st store.Store, secret string, ttl time.Duration, clk clock.Clock) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: st, secret: []byte(secret), ttl: ttl, clock: clk}, nil
}

func (s *Service) SignUp(creds Credentials) (Session, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return Session{}, err
	}
	if len(creds.Password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}
	if _, ok, err := s.store.GetAccount(email); err != nil {
		return Session{}, err
	} else if ok {
		return Session{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	account := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.SaveAccount(account); err != nil {
		if errors.Is(err, store.ErrAccountExists) {
			return Session{}, ErrUserExists
		}
		return Session{}, err
	}
	return s.issue(account)
}

func (s *Service) SignIn(creds Credentials) (Session, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	account, ok, err := s.store.GetAccount(email)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(account)
}

// UserIDFromToken returns the account id a valid token was issued for.
func (s *Service) UserIDFromToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *Service) issue(account model.Account) (Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   account.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return Session{Token: token, UserID: account.ID, Email: account.Email, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
