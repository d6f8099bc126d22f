package team

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"reelcraft-server/modules/billing"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
)

var log = logger.For("team")

// Store - teams, memberships, invitations and the initial subscription
type Store interface {
	InsertTeam(ctx context.Context, team *model.Team) error
	FetchTeam(ctx context.Context, teamID string) (*model.Team, error)
	InsertMember(ctx context.Context, member *model.TeamMember) error
	FetchMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
	ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	InsertInvitation(ctx context.Context, inv *model.Invitation) error
	FetchInvitationByToken(ctx context.Context, token string) (*model.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, invitationID string, at time.Time) error
	InsertSubscription(ctx context.Context, sub *model.Subscription) error
}

// Mailer - invitation delivery (SMTPMailer)
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

type Service struct {
	store  Store
	mailer Mailer
	appURL string
	now    func() time.Time
}

// NewService - Service 생성
func NewService(store Store, mailer Mailer, appURL string) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateTeam - team, owner membership and a free subscription
func (s *Service) CreateTeam(ctx context.Context, user *auth.User, name string) (*model.Team, error) {
	now := s.now()
	team := &model.Team{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedBy: user.ID,
		CreatedAt: now,
	}
	if err := s.store.InsertTeam(ctx, team); err != nil {
		return nil, err
	}

	if err := s.store.InsertMember(ctx, &model.TeamMember{
		TeamID:    team.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      model.RoleOwner,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := s.store.InsertSubscription(ctx, billing.FreeSubscription(team.ID)); err != nil {
		return nil, err
	}

	log.Infof("🏢 Team %s (%s) created by %s", team.ID, team.Name, user.ID)
	return team, nil
}

// Invite - store an invitation and email its link
func (s *Service) Invite(ctx context.Context, inviter *model.TeamMember, email, role string) (*InviteResponse, error) {
	if role != model.RoleAdmin && role != model.RoleMember {
		return nil, ErrInvalidRole
	}
	if role == model.RoleAdmin && inviter.Role != model.RoleOwner {
		return nil, ErrRoleNotAllowed
	}

	team, err := s.store.FetchTeam(ctx, inviter.TeamID)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &model.Invitation{
		ID:        uuid.NewString(),
		TeamID:    inviter.TeamID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Token:     token,
		InvitedBy: inviter.UserID,
		ExpiresAt: now.Add(InvitationTTL),
		CreatedAt: now,
	}
	if err := s.store.InsertInvitation(ctx, inv); err != nil {
		return nil, err
	}

	resp := &InviteResponse{
		Success:   true,
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
		EmailSent: true,
	}
	if err := s.mailer.SendInvitation(ctx, Invitation{
		Email:     inv.Email,
		TeamName:  team.Name,
		Role:      inv.Role,
		Link:      s.appURL + "/invitations/" + inv.Token,
		ExpiresAt: inv.ExpiresAt,
	}); err != nil {
		log.Warnf("⚠️ Invitation %s stored but email to %s failed: %v", inv.ID, inv.Email, err)
		resp.EmailSent = false
	}

	log.Infof("📨 %s invited %s to team %s as %s", inviter.UserID, inv.Email, inv.TeamID, inv.Role)
	return resp, nil
}

// Accept - join the invitation's team as the caller
func (s *Service) Accept(ctx context.Context, user *auth.User, token string) (*model.TeamMember, error) {
	inv, err := s.store.FetchInvitationByToken(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case inv.AcceptedAt != nil:
		return nil, ErrInvitationUsed
	case !now.Before(inv.ExpiresAt):
		return nil, ErrInvitationExpired
	case user.Email == "" || !strings.EqualFold(user.Email, inv.Email):
		return nil, ErrInvitationEmailMismatch
	}

	member, err := s.store.FetchMember(ctx, inv.TeamID, user.ID)
	switch {
	case err == nil:
		log.Infof("ℹ️ %s already in team %s", user.ID, inv.TeamID)
	case errors.Is(err, model.ErrNotFound):
		member = &model.TeamMember{
			TeamID:    inv.TeamID,
			UserID:    user.ID,
			Email:     inv.Email,
			Role:      inv.Role,
			CreatedAt: now,
		}
		if err := s.store.InsertMember(ctx, member); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.store.MarkInvitationAccepted(ctx, inv.ID, now); err != nil {
		return nil, err
	}

	log.Infof("🤝 %s joined team %s as %s", user.ID, member.TeamID, member.Role)
	return member, nil
}

// Members - everyone in the team
func (s *Service) Members(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	return s.store.ListMembers(ctx, teamID)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
