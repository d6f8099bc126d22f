package team

import (
	"errors"
	"time"
)

// InvitationTTL - how long an emailed invitation stays valid
const InvitationTTL = 7 * 24 * time.Hour

var (
	ErrInvalidRole             = errors.New("role must be admin or member")
	ErrRoleNotAllowed          = errors.New("only the team owner can invite admins")
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationUsed          = errors.New("invitation already accepted")
	ErrInvitationExpired       = errors.New("invitation expired")
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email")
)

// CreateTeamRequest - POST /api/teams
type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// InviteRequest - POST /api/teams/{teamId}/invitations
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

// Invitation - what the mailer renders
type Invitation struct {
	Email     string
	TeamName  string
	Role      string
	Link      string
	ExpiresAt time.Time
}

// InviteResponse - created invitation; the token itself only travels by email
type InviteResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	EmailSent bool      `json:"emailSent"`
}
