package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile fallbacks for identities without a display name or picture.
const (
	DefaultUserName    = "Sem Nome"
	DefaultUserProfile = "https://i.stack.imgur.com/dr5qp.jpg"
)

// Claims is the token payload accepted by TokenAuthenticator.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthenticator signs users in from an HS256 identity token.
type TokenAuthenticator struct {
	secret []byte

	mu    sync.Mutex
	token string
}

// NewTokenAuthenticator creates an authenticator validating token with secret.
func NewTokenAuthenticator(secret []byte, token string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: append([]byte(nil), secret...), token: token}
}

func (a *TokenAuthenticator) Authenticate(_ context.Context) (AuthResponse, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token == "" {
		return AuthResponse{}, fmt.Errorf("%w: no identity token", ErrAuthenticationFailed)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return AuthResponse{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if claims.Subject == "" {
		return AuthResponse{}, fmt.Errorf("%w: token has no subject", ErrAuthenticationFailed)
	}
	resp := AuthResponse{UID: claims.Subject, DisplayName: claims.Name, PhotoURL: claims.Picture}
	if resp.DisplayName == "" {
		resp.DisplayName = DefaultUserName
	}
	if resp.PhotoURL == "" {
		resp.PhotoURL = DefaultUserProfile
	}
	return resp, nil
}

// SignOut forgets the token; later Authenticate calls fail.
func (a *TokenAuthenticator) SignOut(_ context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
	return nil
}

// SignToken issues an identity token accepted by TokenAuthenticator.
func SignToken(secret []byte, uid, name, picture string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("backend: uid is required")
	}
	now := time.Now()
	claims := Claims{
		Name:    name,
		Picture: picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Anonymous rejects every sign-in. Used when no authentication is configured.
type Anonymous struct{}

func (Anonymous) Authenticate(context.Context) (AuthResponse, error) {
	return AuthResponse{}, fmt.Errorf("%w: authentication is not configured", ErrAuthenticationFailed)
}

func (Anonymous) SignOut(context.Context) error { return nil }

// NewID returns a time ordered unique id for new children.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
