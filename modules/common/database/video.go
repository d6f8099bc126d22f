package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"reelcraft-server/modules/common/model"
)

// InsertVideo - video_generations 행 생성
func (c *Client) InsertVideo(ctx context.Context, video *model.VideoGeneration) error {
	log.Infof("📝 Inserting video %s (team: %s, task: %s)", video.ID, video.TeamID, video.KieTaskID)

	_, _, err := c.supabase.From(tableVideos).
		Insert(video, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// FetchVideo - team-scoped lookup
func (c *Client) FetchVideo(ctx context.Context, teamID, videoID string) (*model.VideoGeneration, error) {
	data, _, err := c.supabase.From(tableVideos).
		Select("*", "", false).
		Eq("id", videoID).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return decodeFirst[model.VideoGeneration](data, "video")
}

// FetchVideoByTaskID - the row whose in-flight provider task matches
func (c *Client) FetchVideoByTaskID(ctx context.Context, taskID string) (*model.VideoGeneration, error) {
	log.Debugf("🔍 Fetching video by task: %s", taskID)

	data, _, err := c.supabase.From(tableVideos).
		Select("*", "", false).
		Eq("kie_task_id", taskID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query video by task: %w", err)
	}
	return decodeFirst[model.VideoGeneration](data, "video")
}

// ListVideos - newest first
func (c *Client) ListVideos(ctx context.Context, teamID string, limit int) ([]model.VideoGeneration, error) {
	data, _, err := c.supabase.From(tableVideos).
		Select("*", "", false).
		Eq("team_id", teamID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	videos := []model.VideoGeneration{}
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse videos: %w", err)
	}
	return videos, nil
}

// UpdateVideo - only rows that are not terminal yet are touched
func (c *Client) UpdateVideo(ctx context.Context, videoID string, update model.VideoUpdate) error {
	fields := update.Fields()
	log.Infof("📝 Updating video %s: %v", videoID, fields)

	_, _, err := c.supabase.From(tableVideos).
		Update(fields, "minimal", "").
		Eq("id", videoID).
		In("status", model.ActiveVideoStatuses()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	return nil
}

// DeleteVideo - remove the row
func (c *Client) DeleteVideo(ctx context.Context, teamID, videoID string) error {
	log.Infof("🗑️ Deleting video %s (team: %s)", videoID, teamID)

	_, _, err := c.supabase.From(tableVideos).
		Delete("minimal", "").
		Eq("id", videoID).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// FetchTimedOutVideos - active rows past their deadline
func (c *Client) FetchTimedOutVideos(ctx context.Context, now time.Time) ([]model.VideoGeneration, error) {
	data, _, err := c.supabase.From(tableVideos).
		Select("*", "", false).
		In("status", model.ActiveVideoStatuses()).
		Lt("timeout_at", now.UTC().Format(time.RFC3339)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query timed out videos: %w", err)
	}

	var videos []model.VideoGeneration
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse videos: %w", err)
	}
	return videos, nil
}
