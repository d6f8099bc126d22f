package video

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/quota"
)

type fakeStore struct {
	mu        sync.Mutex
	videos    map[string]*model.VideoGeneration
	images    map[string]*model.ProductImage
	profiles  map[string]*model.BrandProfile
	lookupErr error
	updateErr error
	updates   []model.VideoUpdate

	// failStatus rejects only updates moving a row to that status
	failStatus string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		videos:   map[string]*model.VideoGeneration{},
		images:   map[string]*model.ProductImage{},
		profiles: map[string]*model.BrandProfile{},
	}
}

func (f *fakeStore) InsertVideo(ctx context.Context, v *model.VideoGeneration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.videos[v.ID] = &cp
	return nil
}

func (f *fakeStore) FetchVideo(ctx context.Context, teamID, id string) (*model.VideoGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok || v.TeamID != teamID {
		return nil, model.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) FetchVideoByTaskID(ctx context.Context, taskID string) (*model.VideoGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, v := range f.videos {
		if v.KieTaskID == taskID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) ListVideos(ctx context.Context, teamID string, limit int) ([]model.VideoGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.VideoGeneration
	for _, v := range f.videos {
		if v.TeamID == teamID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateVideo(ctx context.Context, id string, u model.VideoUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.failStatus != "" && u.Status != nil && *u.Status == f.failStatus {
		return errors.New("transient db error")
	}
	f.updates = append(f.updates, u)
	v, ok := f.videos[id]
	if !ok || model.IsTerminal(v.Status) {
		return nil
	}
	u.Apply(v)
	return nil
}

func (f *fakeStore) DeleteVideo(ctx context.Context, teamID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.videos, id)
	return nil
}

func (f *fakeStore) FetchTimedOutVideos(ctx context.Context, now time.Time) ([]model.VideoGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.VideoGeneration
	for _, v := range f.videos {
		if !model.IsTerminal(v.Status) && v.TimeoutAt.Before(now) {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchImage(ctx context.Context, teamID, id string) (*model.ProductImage, error) {
	if img, ok := f.images[id]; ok && img.TeamID == teamID {
		return img, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) FetchBrandProfile(ctx context.Context, teamID string) (*model.BrandProfile, error) {
	if p, ok := f.profiles[teamID]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) get(id string) model.VideoGeneration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.videos[id]
}

type fakeProvider struct {
	mu          sync.Mutex
	generates   []GenerateTaskRequest
	extends     []ExtendTaskRequest
	generateErr error
	extendErr   error
	counter     int
}

func (f *fakeProvider) Generate(ctx context.Context, req GenerateTaskRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates = append(f.generates, req)
	if f.generateErr != nil {
		return "", f.generateErr
	}
	f.counter++
	return fmt.Sprintf("task-%d", f.counter), nil
}

func (f *fakeProvider) Extend(ctx context.Context, req ExtendTaskRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extends = append(f.extends, req)
	if f.extendErr != nil {
		return "", f.extendErr
	}
	f.counter++
	return fmt.Sprintf("task-%d", f.counter), nil
}

type fakeObjects struct {
	downloadErr error
	uploadErr   error
	uploads     map[string][]byte
	removed     []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{uploads: map[string][]byte{}}
}

func (f *fakeObjects) Download(ctx context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("bytes-of-" + url), nil
}

func (f *fakeObjects) UploadVideo(ctx context.Context, path string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[path] = data
	return nil
}

func (f *fakeObjects) RemoveVideo(ctx context.Context, path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeObjects) ImageURL(path string) string { return "https://cdn.test/images/" + path }
func (f *fakeObjects) VideoURL(path string) string { return "https://cdn.test/videos/" + path }

type fakeQuota struct {
	mu    sync.Mutex
	used  int
	limit int
	err   error
}

func (f *fakeQuota) Consume(ctx context.Context, teamID string) (quota.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return quota.Usage{}, f.err
	}
	if f.used >= f.limit {
		return quota.Usage{Used: f.used, Limit: f.limit}, quota.ErrQuotaExceeded
	}
	f.used++
	return quota.Usage{Used: f.used, Limit: f.limit}, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (f *fakePublisher) Publish(ctx context.Context, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := message.(StatusEvent)
	if !ok {
		return errors.New("unexpected message type")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Status)
	}
	return out
}

type testEnv struct {
	store     *fakeStore
	provider  *fakeProvider
	objects   *fakeObjects
	quota     *fakeQuota
	locker    *fakeLocker
	publisher *fakePublisher
	service   *Service
	now       time.Time
}

const testTeam = "team-1"

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     newFakeStore(),
		provider:  &fakeProvider{},
		objects:   newFakeObjects(),
		quota:     &fakeQuota{limit: 10},
		locker:    newFakeLocker(),
		publisher: &fakePublisher{},
		now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	env.store.images["img-1"] = &model.ProductImage{ID: "img-1", TeamID: testTeam, StoragePath: testTeam + "/sneaker.png"}
	env.service = NewService(Deps{
		Store:     env.store,
		Provider:  env.provider,
		Objects:   env.objects,
		Quota:     env.quota,
		Locker:    env.locker,
		Publisher: env.publisher,
	}, Options{
		Model:       "veo3_fast",
		CallbackURL: "https://api.test/api/webhooks/kie",
		Now:         func() time.Time { return env.now },
	})
	return env
}

func succeeded(taskID string) *Callback {
	return &Callback{TaskID: taskID, Kind: CallbackSucceeded, ResultURLs: []string{"https://provider.test/" + taskID + ".mp4"}}
}
