package database

import (
	"context"
	"fmt"

	"reelcraft-server/modules/common/model"
)

// FetchBrandProfile - brand_profiles 행 조회
func (c *Client) FetchBrandProfile(ctx context.Context, teamID string) (*model.BrandProfile, error) {
	data, _, err := c.supabase.From(tableBrandProfiles).
		Select("*", "", false).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query brand profile: %w", err)
	}
	return decodeFirst[model.BrandProfile](data, "brand profile")
}

// UpsertBrandProfile - one profile per team
func (c *Client) UpsertBrandProfile(ctx context.Context, profile *model.BrandProfile) error {
	log.Infof("📝 Saving brand profile for team %s", profile.TeamID)

	_, _, err := c.supabase.From(tableBrandProfiles).
		Upsert(profile, "team_id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to upsert brand profile: %w", err)
	}
	return nil
}
