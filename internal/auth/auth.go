// Package auth defines the identity surface this client consumes: session
// retrieval, auth-state change events, and validation of the backend's JWT
// access tokens.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSessionExpired is returned when the access token is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Session is the signed-in identity.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// EventKind distinguishes auth-state transitions.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// Event is an auth-state change notification.
type Event struct {
	Kind    EventKind
	Session *Session // nil on sign-out
}

// Backend is the hosted auth provider.
type Backend interface {
	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers a handler for sign-in/sign-out events.
	OnAuthStateChange(handler func(Event))
	// SignOut terminates the current session.
	SignOut(ctx context.Context) error
}

// Claims are the token claims this client reads.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates an HS256 access token and builds a Session from
// its claims.
func ParseAccessToken(tokenString, secret string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	session := &Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: tokenString,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
