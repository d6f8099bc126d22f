package org

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/utils"
)

var log = logger.For("org")

// TeamHeader - team selector for routes without a {teamId} path variable
const TeamHeader = "X-Team-ID"

// MemberLookup - membership source (database.Client)
type MemberLookup interface {
	FetchMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
}

type ctxKey struct{}

// RoleRank - owner > admin > member; unknown roles rank 0
func RoleRank(role string) int {
	switch role {
	case model.RoleOwner:
		return 3
	case model.RoleAdmin:
		return 2
	case model.RoleMember:
		return 1
	}
	return 0
}

// HasRole - role is at least minRole
func HasRole(role, minRole string) bool {
	return RoleRank(role) > 0 && RoleRank(role) >= RoleRank(minRole)
}

// IsValidRole - one of the three team roles
func IsValidRole(role string) bool {
	return RoleRank(role) > 0
}

// TeamIDFromRequest - {teamId} path variable, then the X-Team-ID header
func TeamIDFromRequest(r *http.Request) string {
	if teamID := mux.Vars(r)["teamId"]; teamID != "" {
		return teamID
	}
	return r.Header.Get(TeamHeader)
}

// RequireRole - caller must be a member of the selected team with at least minRole
func RequireRole(lookup MemberLookup, minRole string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			user := auth.UserFromContext(r.Context())
			if user == nil {
				utils.WriteError(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "authentication required")
				return
			}

			teamID := TeamIDFromRequest(r)
			if teamID == "" {
				utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, "team id is required")
				return
			}

			member, err := lookup.FetchMember(r.Context(), teamID, user.ID)
			if errors.Is(err, model.ErrNotFound) {
				log.Warnf("⚠️ User %s is not a member of team %s", user.ID, teamID)
				utils.WriteError(w, http.StatusForbidden, utils.ErrCodeForbidden, "not a member of this team")
				return
			}
			if err != nil {
				log.Errorf("❌ Failed to check membership of %s in %s: %v", user.ID, teamID, err)
				utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to check team membership")
				return
			}

			if !HasRole(member.Role, minRole) {
				utils.WriteError(w, http.StatusForbidden, utils.ErrCodeForbidden, "insufficient team role")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithMember(r.Context(), member)))
		})
	}
}

// WithMember - attach the caller's membership to ctx
func WithMember(ctx context.Context, member *model.TeamMember) context.Context {
	return context.WithValue(ctx, ctxKey{}, member)
}

// MemberFromContext - nil outside team routes
func MemberFromContext(ctx context.Context) *model.TeamMember {
	member, _ := ctx.Value(ctxKey{}).(*model.TeamMember)
	return member
}

// TeamIDFromContext - team of the authorized membership
func TeamIDFromContext(ctx context.Context) string {
	if member := MemberFromContext(ctx); member != nil {
		return member.TeamID
	}
	return ""
}

// Guard - auth + team-role wrapping for module routes
type Guard struct {
	jwtSecret string
	lookup    MemberLookup
}

func NewGuard(jwtSecret string, lookup MemberLookup) *Guard {
	return &Guard{jwtSecret: jwtSecret, lookup: lookup}
}

// Authenticated - valid token, no team required
func (g *Guard) Authenticated(h http.HandlerFunc) http.Handler {
	return auth.Middleware(g.jwtSecret)(h)
}

// Require - valid token and at least minRole in the selected team
func (g *Guard) Require(minRole string, h http.HandlerFunc) http.Handler {
	return auth.Middleware(g.jwtSecret)(RequireRole(g.lookup, minRole)(h))
}
