// Package backend defines the realtime database collaborator the library
// talks to, plus the JSON tree and change-feed helpers adapters share.
//
// Data is a JSON tree addressed by slash separated paths such as
// "rooms/{code}/questions/{id}". Values are normalized to the shapes
// encoding/json produces: map[string]any, []any, string, float64, bool.
package backend

import (
	"context"
	"errors"
)

var (
	ErrNoData               = errors.New("backend: no data at path")
	ErrInvalidPath          = errors.New("backend: invalid path")
	ErrClosed               = errors.New("backend: client closed")
	ErrAuthenticationFailed = errors.New("backend: authentication failed")
)

// AuthResponse is what a successful authentication yields.
type AuthResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Authenticator performs the sign-in flow of a backend.
type Authenticator interface {
	Authenticate(ctx context.Context) (AuthResponse, error)
	SignOut(ctx context.Context) error
}

// Client is the backend collaborator surface.
type Client interface {
	Authenticator

	// WriteData stores data under a freshly generated child of path and
	// returns the child id.
	WriteData(ctx context.Context, path string, data any) (string, error)
	// UpdateData merges the top level fields of data into path.
	UpdateData(ctx context.Context, path string, data any) error
	DeleteData(ctx context.Context, path string) error
	// FetchData returns the value at path or ErrNoData.
	FetchData(ctx context.Context, path string) (any, error)
	// OnDataChange calls cb with the current value at path and again after
	// every change at, above or below it. cb receives nil once the value is
	// gone. The returned func cancels the subscription.
	OnDataChange(ctx context.Context, path string, cb func(value any)) (func(), error)
	Close() error
}
