package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reelcraft-server/modules/common/model"
)

// InsertTeam - teams 행 생성
func (c *Client) InsertTeam(ctx context.Context, team *model.Team) error {
	_, _, err := c.supabase.From(tableTeams).
		Insert(team, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	return nil
}

// FetchTeam - teams 행 조회
func (c *Client) FetchTeam(ctx context.Context, teamID string) (*model.Team, error) {
	data, _, err := c.supabase.From(tableTeams).
		Select("*", "", false).
		Eq("id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query team: %w", err)
	}
	return decodeFirst[model.Team](data, "team")
}

// InsertMember - team_members 행 생성
func (c *Client) InsertMember(ctx context.Context, member *model.TeamMember) error {
	_, _, err := c.supabase.From(tableMembers).
		Insert(member, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

// FetchMember - membership of a user in a team
func (c *Client) FetchMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	data, _, err := c.supabase.From(tableMembers).
		Select("*", "", false).
		Eq("team_id", teamID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query team member: %w", err)
	}
	return decodeFirst[model.TeamMember](data, "team member")
}

// ListMembers - every member of a team
func (c *Client) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	data, _, err := c.supabase.From(tableMembers).
		Select("*", "", false).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	members := []model.TeamMember{}
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("failed to parse team members: %w", err)
	}
	return members, nil
}

// InsertInvitation - team_invitations 행 생성
func (c *Client) InsertInvitation(ctx context.Context, inv *model.Invitation) error {
	log.Infof("📨 Inserting invitation %s for %s (team: %s)", inv.ID, inv.Email, inv.TeamID)

	_, _, err := c.supabase.From(tableInvitations).
		Insert(inv, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// FetchInvitationByToken - lookup by the emailed token
func (c *Client) FetchInvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	data, _, err := c.supabase.From(tableInvitations).
		Select("*", "", false).
		Eq("token", token).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query invitation: %w", err)
	}
	return decodeFirst[model.Invitation](data, "invitation")
}

// MarkInvitationAccepted - stamp accepted_at
func (c *Client) MarkInvitationAccepted(ctx context.Context, invitationID string, at time.Time) error {
	_, _, err := c.supabase.From(tableInvitations).
		Update(map[string]interface{}{
			"accepted_at": at.UTC().Format(time.RFC3339),
		}, "minimal", "").
		Eq("id", invitationID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	return nil
}
