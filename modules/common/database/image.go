package database

import (
	"context"
	"encoding/json"
	"fmt"

	"reelcraft-server/modules/common/model"
)

// FetchImage - product_images 행 조회 (team-scoped)
func (c *Client) FetchImage(ctx context.Context, teamID, imageID string) (*model.ProductImage, error) {
	data, _, err := c.supabase.From(tableImages).
		Select("*", "", false).
		Eq("id", imageID).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query product image: %w", err)
	}
	return decodeFirst[model.ProductImage](data, "product image")
}

// ImportedDriveFileIDs - drive file ids already imported for a team
func (c *Client) ImportedDriveFileIDs(ctx context.Context, teamID string) (map[string]bool, error) {
	data, _, err := c.supabase.From(tableImages).
		Select("drive_file_id", "", false).
		Eq("team_id", teamID).
		Eq("source", model.ImageSourceDrive).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query imported drive files: %w", err)
	}

	var rows []struct {
		DriveFileID *string `json:"drive_file_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse imported drive files: %w", err)
	}

	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.DriveFileID != nil {
			ids[*row.DriveFileID] = true
		}
	}
	return ids, nil
}

// InsertImage - product_images 행 생성
func (c *Client) InsertImage(ctx context.Context, image *model.ProductImage) error {
	log.Infof("📝 Inserting product image %s (team: %s, source: %s)", image.ID, image.TeamID, image.Source)

	_, _, err := c.supabase.From(tableImages).
		Insert(image, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert product image: %w", err)
	}
	return nil
}
