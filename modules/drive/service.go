package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/storage"
	"reelcraft-server/modules/common/utils"
)

var log = logger.For("drive")

// Store - product_images access
type Store interface {
	ImportedDriveFileIDs(ctx context.Context, teamID string) (map[string]bool, error)
	InsertImage(ctx context.Context, image *model.ProductImage) error
}

// ImageUploader - product-images bucket (storage.Client)
type ImageUploader interface {
	UploadImage(ctx context.Context, path string, data []byte) error
}

// JobQueue - Redis list (redis.Queue)
type JobQueue interface {
	Enqueue(ctx context.Context, job interface{}) (int64, error)
	Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error)
}

type Service struct {
	store    Store
	uploader ImageUploader
	sources  SourceFactory
	queue    JobQueue
	convert  func(data []byte, quality float32) ([]byte, error)
	now      func() time.Time
}

// NewService - queue may be nil when Redis is down; Enqueue then fails
func NewService(store Store, uploader ImageUploader, sources SourceFactory, queue JobQueue) *Service {
	return &Service{
		store:    store,
		uploader: uploader,
		sources:  sources,
		queue:    queue,
		convert:  utils.ConvertToWebP,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue - queue a folder sync for the team
func (s *Service) Enqueue(ctx context.Context, teamID, userID string, req SyncRequest) (int64, error) {
	if s.queue == nil {
		return 0, ErrQueueUnavailable
	}

	position, err := s.queue.Enqueue(ctx, SyncJob{
		TeamID:       teamID,
		FolderID:     req.FolderID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		RequestedBy:  userID,
		EnqueuedAt:   s.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	log.Infof("📥 Drive sync queued for team %s (folder: %s, position: %d)", teamID, req.FolderID, position)
	return position, nil
}

// Sync - import every new image of the folder; per-file failures are counted, not fatal
func (s *Service) Sync(ctx context.Context, job SyncJob) (SyncResult, error) {
	var result SyncResult

	source, err := s.sources(ctx, job)
	if err != nil {
		return result, err
	}

	files, err := source.ListImages(ctx, job.FolderID)
	if err != nil {
		return result, err
	}

	imported, err := s.store.ImportedDriveFileIDs(ctx, job.TeamID)
	if err != nil {
		return result, err
	}

	log.Infof("📂 Folder %s: %d image(s), %d already imported for team %s", job.FolderID, len(files), len(imported), job.TeamID)

	for _, file := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if imported[file.ID] || !utils.IsConvertibleImage(file.MimeType) {
			result.Skipped++
			continue
		}
		if err := s.importFile(ctx, source, job.TeamID, file); err != nil {
			log.Warnf("⚠️ Skipping %s (%s): %v", file.Name, file.ID, err)
			result.Failed++
			continue
		}
		imported[file.ID] = true
		result.Imported++
	}
	return result, nil
}

func (s *Service) importFile(ctx context.Context, source FileSource, teamID string, file File) error {
	data, err := source.Download(ctx, file.ID)
	if err != nil {
		return err
	}

	webpData, err := s.convert(data, webpQuality)
	if err != nil {
		return err
	}

	path := storage.ImagePath(teamID, file.ID)
	if err := s.uploader.UploadImage(ctx, path, webpData); err != nil {
		return err
	}

	fileID := file.ID
	return s.store.InsertImage(ctx, &model.ProductImage{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		StoragePath: path,
		FileName:    file.Name,
		MimeType:    "image/webp",
		Source:      model.ImageSourceDrive,
		DriveFileID: &fileID,
		CreatedAt:   s.now(),
	})
}
