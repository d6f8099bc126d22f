package database

import (
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"reelcraft-server/modules/common/config"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
)

var log = logger.For("database")

const (
	tableVideos        = "video_generations"
	tableImages        = "product_images"
	tableSubscriptions = "subscriptions"
	tableBrandProfiles = "brand_profiles"
	tableTeams         = "teams"
	tableMembers       = "team_members"
	tableInvitations   = "team_invitations"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Client{
		supabase: supabaseClient,
	}, nil
}

// Supabase - underlying client, shared with the quota RPC fallback
func (c *Client) Supabase() *supabase.Client {
	return c.supabase
}

// decodeFirst - unmarshal a PostgREST array response and return its first row
func decodeFirst[T any](data []byte, what string) (*T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", what, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return &rows[0], nil
}
