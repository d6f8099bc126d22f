package team

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reelcraft-server/modules/billing"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/model"
)

type fakeStore struct {
	teams       map[string]*model.Team
	members     map[string]*model.TeamMember
	invitations map[string]*model.Invitation
	subs        []*model.Subscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:       map[string]*model.Team{},
		members:     map[string]*model.TeamMember{},
		invitations: map[string]*model.Invitation{},
	}
}

func (f *fakeStore) InsertTeam(ctx context.Context, team *model.Team) error {
	f.teams[team.ID] = team
	return nil
}

func (f *fakeStore) FetchTeam(ctx context.Context, teamID string) (*model.Team, error) {
	if t, ok := f.teams[teamID]; ok {
		return t, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) InsertMember(ctx context.Context, m *model.TeamMember) error {
	f.members[m.TeamID+"/"+m.UserID] = m
	return nil
}

func (f *fakeStore) FetchMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	if m, ok := f.members[teamID+"/"+userID]; ok {
		return m, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	var out []model.TeamMember
	for _, m := range f.members {
		if m.TeamID == teamID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertInvitation(ctx context.Context, inv *model.Invitation) error {
	f.invitations[inv.Token] = inv
	return nil
}

func (f *fakeStore) FetchInvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	if inv, ok := f.invitations[token]; ok {
		return inv, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) MarkInvitationAccepted(ctx context.Context, id string, at time.Time) error {
	for _, inv := range f.invitations {
		if inv.ID == id {
			inv.AcceptedAt = &at
		}
	}
	return nil
}

func (f *fakeStore) InsertSubscription(ctx context.Context, sub *model.Subscription) error {
	f.subs = append(f.subs, sub)
	return nil
}

type fakeMailer struct {
	sent []Invitation
	err  error
}

func (f *fakeMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	f.sent = append(f.sent, inv)
	return f.err
}

var owner = &auth.User{ID: "owner-1", Email: "owner@acme.test"}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeMailer, *model.Team) {
	t.Helper()
	store := newFakeStore()
	mailer := &fakeMailer{}
	svc := NewService(store, mailer, "https://app.reelcraft.test/")
	team, err := svc.CreateTeam(context.Background(), owner, " Acme ")
	require.NoError(t, err)
	return svc, store, mailer, team
}

func TestCreateTeam(t *testing.T) {
	_, store, _, team := newTestService(t)

	assert.Equal(t, "Acme", team.Name)
	m, err := store.FetchMember(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, m.Role)

	require.Len(t, store.subs, 1)
	assert.Equal(t, team.ID, store.subs[0].TeamID)
	assert.Equal(t, billing.PlanFree, store.subs[0].Plan)
	assert.Equal(t, 3, store.subs[0].VideoLimit)
}

func TestInvite(t *testing.T) {
	svc, store, mailer, team := newTestService(t)
	inviter, _ := store.FetchMember(context.Background(), team.ID, owner.ID)

	resp, err := svc.Invite(context.Background(), inviter, " New@Acme.test", model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, resp.EmailSent)
	assert.Equal(t, "new@acme.test", resp.Email)

	require.Len(t, store.invitations, 1)
	var inv *model.Invitation
	for _, i := range store.invitations {
		inv = i
	}
	assert.Len(t, inv.Token, 64)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "https://app.reelcraft.test/invitations/"+inv.Token, mailer.sent[0].Link)
	assert.Equal(t, "Acme", mailer.sent[0].TeamName)
}

func TestInvite_RoleRules(t *testing.T) {
	svc, _, _, team := newTestService(t)
	admin := &model.TeamMember{TeamID: team.ID, UserID: "admin-1", Role: model.RoleAdmin}

	_, err := svc.Invite(context.Background(), admin, "x@acme.test", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = svc.Invite(context.Background(), admin, "x@acme.test", model.RoleOwner)
	assert.ErrorIs(t, err, ErrInvalidRole)

	resp, err := svc.Invite(context.Background(), admin, "x@acme.test", model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, resp.Role)
}

func TestInvite_MailFailureKeepsInvitation(t *testing.T) {
	svc, store, mailer, team := newTestService(t)
	mailer.err = errors.New("smtp: 535 auth failed")
	inviter, _ := store.FetchMember(context.Background(), team.ID, owner.ID)

	resp, err := svc.Invite(context.Background(), inviter, "x@acme.test", model.RoleMember)
	require.NoError(t, err)
	assert.False(t, resp.EmailSent)
	assert.Len(t, store.invitations, 1)
}

func TestAccept(t *testing.T) {
	svc, store, _, team := newTestService(t)
	inviter, _ := store.FetchMember(context.Background(), team.ID, owner.ID)
	_, err := svc.Invite(context.Background(), inviter, "new@acme.test", model.RoleMember)
	require.NoError(t, err)

	var token string
	for tok := range store.invitations {
		token = tok
	}
	invitee := &auth.User{ID: "user-2", Email: "NEW@acme.test"}

	member, err := svc.Accept(context.Background(), invitee, token)
	require.NoError(t, err)
	assert.Equal(t, team.ID, member.TeamID)
	assert.Equal(t, model.RoleMember, member.Role)
	assert.NotNil(t, store.invitations[token].AcceptedAt)

	_, err = svc.Accept(context.Background(), invitee, token)
	assert.ErrorIs(t, err, ErrInvitationUsed)

	_, err = svc.Accept(context.Background(), invitee, "nope")
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	members, err := svc.Members(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAccept_ExpiredAndMismatch(t *testing.T) {
	svc, store, _, team := newTestService(t)
	store.invitations["expired"] = &model.Invitation{
		ID: "inv-1", TeamID: team.ID, Email: "a@acme.test", Role: model.RoleMember,
		Token: "expired", ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.invitations["other"] = &model.Invitation{
		ID: "inv-2", TeamID: team.ID, Email: "b@acme.test", Role: model.RoleMember,
		Token: "other", ExpiresAt: time.Now().Add(time.Hour),
	}

	_, err := svc.Accept(context.Background(), &auth.User{ID: "u", Email: "a@acme.test"}, "expired")
	assert.ErrorIs(t, err, ErrInvitationExpired)

	_, err = svc.Accept(context.Background(), &auth.User{ID: "u", Email: "a@acme.test"}, "other")
	assert.ErrorIs(t, err, ErrInvitationEmailMismatch)
	assert.Nil(t, store.invitations["other"].AcceptedAt)

	// a token without an email claim cannot take an invitation
	members := len(store.members)
	_, err = svc.Accept(context.Background(), &auth.User{ID: "stranger"}, "other")
	assert.ErrorIs(t, err, ErrInvitationEmailMismatch)
	assert.Nil(t, store.invitations["other"].AcceptedAt)
	assert.Len(t, store.members, members)
}
