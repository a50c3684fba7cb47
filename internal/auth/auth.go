// Package auth identifies the caller of a request. Authentication mechanics
// (tokens, proxies) live outside this service; the identity arrives on the
// request and this package only resolves it to a principal with a role.
package auth

import (
	"context"
	"net/http"

	"github.com/nbsync/nbsync/internal/model"
)

// Principal is the resolved caller identity.
type Principal struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsTeacher reports whether the principal may create sessions and push cells.
func (p Principal) IsTeacher() bool { return p.Role == model.RoleTeacher }

// Authorizer resolves a request to a principal. Implementations must not
// consume the request body.
type Authorizer interface {
	Authorize(ctx context.Context, r *http.Request) (Principal, error)
}

// UserID extracts the caller identity from the request. The X-User-Id header
// wins over the user query parameter; a trusted front proxy sets the header.
func UserID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("user")
}
