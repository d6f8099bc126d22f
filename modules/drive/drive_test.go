package drive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reelcraft-server/modules/common/model"
	redisutil "reelcraft-server/modules/common/redis"
)

type fakeStore struct {
	mu       sync.Mutex
	imported map[string]bool
	images   []*model.ProductImage
}

func (f *fakeStore) ImportedDriveFileIDs(ctx context.Context, teamID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for id := range f.imported {
		out[id] = true
	}
	return out, nil
}

func (f *fakeStore) InsertImage(ctx context.Context, image *model.ProductImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, image)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeUploader) UploadImage(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	return nil
}

type fakeSource struct {
	files   []File
	failing map[string]bool
}

func (f *fakeSource) ListImages(ctx context.Context, folderID string) ([]File, error) {
	return f.files, nil
}

func (f *fakeSource) Download(ctx context.Context, fileID string) ([]byte, error) {
	if f.failing[fileID] {
		return nil, errors.New("403 forbidden")
	}
	return []byte("raw-" + fileID), nil
}

func newTestService(source FileSource, queue JobQueue) (*Service, *fakeStore, *fakeUploader) {
	store := &fakeStore{imported: map[string]bool{"old": true}}
	uploader := &fakeUploader{objects: map[string][]byte{}}
	factory := func(ctx context.Context, job SyncJob) (FileSource, error) { return source, nil }

	svc := NewService(store, uploader, factory, queue)
	svc.convert = func(data []byte, quality float32) ([]byte, error) {
		return append([]byte("webp:"), data...), nil
	}
	return svc, store, uploader
}

func TestSync(t *testing.T) {
	source := &fakeSource{
		files: []File{
			{ID: "new-1", Name: "sneaker.png", MimeType: "image/png"},
			{ID: "old", Name: "boot.jpg", MimeType: "image/jpeg"},
			{ID: "heic", Name: "raw.heic", MimeType: "image/heic"},
			{ID: "broken", Name: "bag.jpg", MimeType: "image/jpeg"},
		},
		failing: map[string]bool{"broken": true},
	}
	svc, store, uploader := newTestService(source, nil)

	result, err := svc.Sync(context.Background(), SyncJob{TeamID: "team-1", FolderID: "folder-1"})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Imported: 1, Skipped: 2, Failed: 1}, result)

	require.Len(t, store.images, 1)
	img := store.images[0]
	assert.Equal(t, "team-1/new-1.webp", img.StoragePath)
	assert.Equal(t, model.ImageSourceDrive, img.Source)
	assert.Equal(t, "new-1", *img.DriveFileID)
	assert.Equal(t, "image/webp", img.MimeType)
	assert.Equal(t, []byte("webp:raw-new-1"), uploader.objects["team-1/new-1.webp"])
}

func TestEnqueue_NoQueue(t *testing.T) {
	svc, _, _ := newTestService(&fakeSource{}, nil)
	_, err := svc.Enqueue(context.Background(), "team-1", "user-1", SyncRequest{FolderID: "f", AccessToken: "t"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestWorker_ProcessesQueuedSync(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	source := &fakeSource{files: []File{{ID: "a", Name: "a.png", MimeType: "image/png"}}}
	svc, store, _ := newTestService(source, redisutil.NewQueue(rdb, QueueName))

	position, err := svc.Enqueue(context.Background(), "team-1", "user-1", SyncRequest{FolderID: "f", AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), position)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartWorker(ctx, svc)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.count() == 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
