package access

import (
	"context"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// AuthAccess runs the backend sign-in flow. Its API follows configuration
// changes like the room strategies do.
type AuthAccess struct {
	*apiHolder
}

// NewAuthAccess creates an AuthAccess following configuration changes on u.
func NewAuthAccess(u *utilities.Utilities, dial per.Dialer) *AuthAccess {
	return &AuthAccess{apiHolder: newAPIHolder(u, dial, "auth")}
}

func (a *AuthAccess) Auth(ctx context.Context) (core.AuthenticatedUser, error) {
	api, err := a.current()
	if err != nil {
		return core.AuthenticatedUser{}, err
	}
	return api.Authenticate(ctx)
}

func (a *AuthAccess) SignOut(ctx context.Context) error {
	api, err := a.current()
	if err != nil {
		return err
	}
	return api.SignOut(ctx)
}
