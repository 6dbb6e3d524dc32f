// Package auth gates the admin API behind a shared PIN and hands out signed
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidSession    = errors.New("invalid session")
)

const subject = "admin"

// Session is an authenticated admin session.
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Token     string    `json:"token,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gate authenticates a credential and recognizes the sessions it issued.
// Callers never see how sessions are stored.
type Gate interface {
	Authenticate(ctx context.Context, credential string) (*Session, error)
	CurrentSession(token string) (*Session, bool)
}

// HashPIN returns the bcrypt hash to put in the configuration.
func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PinGate checks a PIN against a bcrypt hash and issues HS256 tokens.
type PinGate struct {
	pinHash []byte
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

var _ Gate = (*PinGate)(nil)

func NewPinGate(pinHash, secret string, ttl time.Duration) (*PinGate, error) {
	if strings.TrimSpace(pinHash) == "" {
		return nil, errors.New("auth: pin hash is empty")
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &PinGate{pinHash: []byte(pinHash), secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (g *PinGate) Authenticate(ctx context.Context, credential string) (*Session, error) {
	if err := bcrypt.CompareHashAndPassword(g.pinHash, []byte(credential)); err != nil {
		return nil, ErrInvalidCredential
	}

	now := g.now()
	s := &Session{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(g.ttl).Truncate(time.Second),
	}
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Subject,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}
	s.Token = token
	return s, nil
}

// Verify parses a token and reports why it is not acceptable.
func (g *PinGate) Verify(token string) (*Session, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}
	if !parsed.Valid || claims.Subject != subject {
		return nil, ErrInvalidSession
	}

	s := &Session{ID: claims.ID, Subject: claims.Subject, Token: token}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (g *PinGate) CurrentSession(token string) (*Session, bool) {
	s, err := g.Verify(token)
	return s, err == nil
}
