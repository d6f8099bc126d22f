package drive

import (
	"errors"
	"time"
)

const (
	// QueueName - Redis list the sync jobs go through
	QueueName = "jobs:drive-sync"

	webpQuality     = 85
	maxDownloadSize = 25 << 20
)

var ErrQueueUnavailable = errors.New("sync queue unavailable")

// SyncRequest - POST /api/drive/sync
type SyncRequest struct {
	FolderID     string `json:"folderId" validate:"required"`
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SyncJob - queued payload
type SyncJob struct {
	TeamID       string    `json:"team_id"`
	FolderID     string    `json:"folder_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	RequestedBy  string    `json:"requested_by"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// SyncResponse - 202 body
type SyncResponse struct {
	Success       bool   `json:"success"`
	Queue         string `json:"queue"`
	QueuePosition int64  `json:"queuePosition"`
}

// SyncResult - per-run counters
type SyncResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// File - one image in the synced folder
type File struct {
	ID       string
	Name     string
	MimeType string
}
