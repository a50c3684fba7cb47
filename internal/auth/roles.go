package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
)

// RoleAuthorizer resolves roles through the role service, so explicit
// per-user assignments take effect without a restart.
type RoleAuthorizer struct {
	roles *services.RoleService
}

func NewRoleAuthorizer(roles *services.RoleService) *RoleAuthorizer {
	return &RoleAuthorizer{roles: roles}
}

func (a *RoleAuthorizer) Authorize(ctx context.Context, r *http.Request) (Principal, error) {
	id := UserID(r)
	if id == "" {
		return Principal{}, fmt.Errorf("%w: missing user identity", model.ErrValidation)
	}
	role, err := a.roles.GetRole(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: id, Role: role}, nil
}
