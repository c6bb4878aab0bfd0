package manager

import (
	"context"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// AuthenticationFailedError is reported to users when sign-in fails.
type AuthenticationFailedError struct {
	Err error
}

func (e *AuthenticationFailedError) Error() string {
	return "Autenticação de usuário falhou. Tente novamente mais tarde."
}

func (e *AuthenticationFailedError) Unwrap() error { return e.Err }

// Authenticator runs the backend sign-in flow.
type Authenticator interface {
	Auth(ctx context.Context) (core.AuthenticatedUser, error)
	SignOut(ctx context.Context) error
}

// AuthManager signs users in and out and keeps Security in sync.
type AuthManager struct {
	u    *utilities.Utilities
	auth Authenticator
}

// NewAuthManager creates an AuthManager signing in through auth.
func NewAuthManager(u *utilities.Utilities, auth Authenticator) *AuthManager {
	return &AuthManager{u: u, auth: auth}
}

// Auth signs in and stores the user. On failure the user is told with a
// toast and Auth returns nil.
func (m *AuthManager) Auth(ctx context.Context) *core.AuthenticatedUser {
	user, err := m.auth.Auth(ctx)
	if err == nil && user.ID == "" {
		err = &AuthenticationFailedError{}
	}
	if err == nil {
		err = m.u.Security.SetUser(ctx, user)
	}
	if err != nil {
		failed := &AuthenticationFailedError{Err: err}
		m.u.Logging.Error("authentication failed", "error", err)
		m.toast(ctx, "authentication_failed", notification.StatusError, "Erro de autenticação", failed.Error())
		return nil
	}
	m.toast(ctx, "authenticated", notification.StatusSuccess, "Autenticado com Sucesso", "Autenticação realizada com sucesso!")
	return &user
}

// AuthenticatedUser returns the stored user, or nil.
func (m *AuthManager) AuthenticatedUser(ctx context.Context) *core.AuthenticatedUser {
	return m.u.Security.User(ctx)
}

// SignOut ends the backend session and forgets the stored user.
func (m *AuthManager) SignOut(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		m.u.Logging.Error("sign out failed", "error", err)
		return err
	}
	if err := m.u.Security.ExcludeAuthenticatedUser(ctx); err != nil {
		m.u.Logging.Warn("failed to forget stored user", "error", err)
	}
	m.toast(ctx, "signed_out", notification.StatusSuccess, "Deslogado com Sucesso", "Você foi deslogado com sucesso!")
	return nil
}

func (m *AuthManager) toast(ctx context.Context, key string, status notification.Status, title, content string) {
	if _, err := m.u.Notification.Toast(ctx, key, status, title, content); err != nil {
		m.u.Logging.Warn("failed to push notification", "key", key, "error", err)
	}
}
