package api

import (
	"context"
	"net/http"
	"strings"

	"hiring-pipeline/internal/common/errors"
)

// Identity headers set by the upstream auth layer.
const (
	HeaderOrgID    = "X-Org-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identity is the caller resolved from the request headers.
type Identity struct {
	OrgID  string
	UserID string
	Role   string
}

type identityKey struct{}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireIdentity rejects requests without an organisation and user.
func (a *API) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			OrgID:  strings.TrimSpace(r.Header.Get(HeaderOrgID)),
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		if id.OrgID == "" || id.UserID == "" {
			a.writeError(w, r, errors.NewUnauthorizedError("missing "+HeaderOrgID+" or "+HeaderUserID+" header"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// stageRoles may move candidates between stages.
var stageRoles = map[string]bool{
	"recruiter": true,
	"manager":   true,
	"admin":     true,
}

func requireRole(id Identity, allowed map[string]bool) error {
	if !allowed[id.Role] {
		return errors.NewForbiddenError(id.Role)
	}
	return nil
}
