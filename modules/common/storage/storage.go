package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelcraft-server/modules/common/config"
	"reelcraft-server/modules/common/logger"
)

var log = logger.For("storage")

type Client struct {
	baseURL     string
	serviceKey  string
	videoBucket string
	imageBucket string
	httpClient  *http.Client
}

// NewClient - Storage 클라이언트 생성
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey:  cfg.SupabaseServiceKey,
		videoBucket: cfg.VideoBucket,
		imageBucket: cfg.ImageBucket,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// VideoPath - object path of a finished video
func VideoPath(teamID, videoID string) string {
	return fmt.Sprintf("%s/%s.mp4", teamID, videoID)
}

// ImagePath - object path of an imported drive image
func ImagePath(teamID, fileID string) string {
	return fmt.Sprintf("%s/%s.webp", teamID, fileID)
}

// Download - fetch a remote asset (provider result URL, etc.)
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	log.Infof("📥 Downloading: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to download: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}

	log.Infof("✅ Downloaded %d bytes", len(data))
	return data, nil
}

// Upload - write an object, overwriting any existing one
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	log.Infof("📤 Uploading %d bytes to %s/%s", len(data), bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	log.Infof("✅ Uploaded %s/%s", bucket, path)
	return nil
}

// Remove - delete an object; a missing object is not an error
func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	removeURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, removeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create remove request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remove failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PublicURL - public object URL
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path)
}

// UploadVideo - video bucket, mp4
func (c *Client) UploadVideo(ctx context.Context, path string, data []byte) error {
	return c.Upload(ctx, c.videoBucket, path, data, "video/mp4")
}

// RemoveVideo - video bucket
func (c *Client) RemoveVideo(ctx context.Context, path string) error {
	return c.Remove(ctx, c.videoBucket, path)
}

// UploadImage - product image bucket, webp
func (c *Client) UploadImage(ctx context.Context, path string, data []byte) error {
	return c.Upload(ctx, c.imageBucket, path, data, "image/webp")
}

// ImageURL - public URL of a product image, handed to the video provider
func (c *Client) ImageURL(path string) string {
	return c.PublicURL(c.imageBucket, path)
}

// VideoURL - public URL of a finished video
func (c *Client) VideoURL(path string) string {
	return c.PublicURL(c.videoBucket, path)
}
