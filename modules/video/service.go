package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"reelcraft-server/modules/brand"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/quota"
	"reelcraft-server/modules/common/storage"
)

var log = logger.For("video")

// Store - video_generations plus the rows dispatch reads
type Store interface {
	InsertVideo(ctx context.Context, video *model.VideoGeneration) error
	FetchVideo(ctx context.Context, teamID, videoID string) (*model.VideoGeneration, error)
	FetchVideoByTaskID(ctx context.Context, taskID string) (*model.VideoGeneration, error)
	ListVideos(ctx context.Context, teamID string, limit int) ([]model.VideoGeneration, error)
	UpdateVideo(ctx context.Context, videoID string, update model.VideoUpdate) error
	DeleteVideo(ctx context.Context, teamID, videoID string) error
	FetchTimedOutVideos(ctx context.Context, now time.Time) ([]model.VideoGeneration, error)
	FetchImage(ctx context.Context, teamID, imageID string) (*model.ProductImage, error)
	FetchBrandProfile(ctx context.Context, teamID string) (*model.BrandProfile, error)
}

// Provider - generation backend
type Provider interface {
	Generate(ctx context.Context, req GenerateTaskRequest) (string, error)
	Extend(ctx context.Context, req ExtendTaskRequest) (string, error)
}

// ObjectStore - result download and video/image object storage
type ObjectStore interface {
	Download(ctx context.Context, url string) ([]byte, error)
	UploadVideo(ctx context.Context, path string, data []byte) error
	RemoveVideo(ctx context.Context, path string) error
	ImageURL(path string) string
	VideoURL(path string) string
}

// QuotaGate - atomic check-and-increment of the monthly counter
type QuotaGate interface {
	Consume(ctx context.Context, teamID string) (quota.Usage, error)
}

// Locker - duplicate-delivery suppression
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Publisher - realtime status fan-out
type Publisher interface {
	Publish(ctx context.Context, message interface{}) error
}

// Deps - collaborators; Locker and Publisher are optional
type Deps struct {
	Store     Store
	Provider  Provider
	Objects   ObjectStore
	Quota     QuotaGate
	Locker    Locker
	Publisher Publisher
}

// Options - provider settings
type Options struct {
	Model       string
	CallbackURL string
	DedupeTTL   time.Duration
	Now         func() time.Time
}

type Service struct {
	store       Store
	provider    Provider
	objects     ObjectStore
	quota       QuotaGate
	locker      Locker
	publisher   Publisher
	model       string
	callbackURL string
	dedupeTTL   time.Duration
	now         func() time.Time
}

// NewService - Service 생성
func NewService(deps Deps, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.DedupeTTL == 0 {
		opts.DedupeTTL = 2 * time.Minute
	}
	return &Service{
		store:       deps.Store,
		provider:    deps.Provider,
		objects:     deps.Objects,
		quota:       deps.Quota,
		locker:      deps.Locker,
		publisher:   deps.Publisher,
		model:       opts.Model,
		callbackURL: opts.CallbackURL,
		dedupeTTL:   opts.DedupeTTL,
		now:         opts.Now,
	}
}

// Dispatch - validate, gate on quota, submit segment 1 and record the row
func (s *Service) Dispatch(ctx context.Context, teamID string, req GenerationRequest) (*GenerationResponse, error) {
	if err := Normalize(&req); err != nil {
		return nil, err
	}

	image, err := s.store.FetchImage(ctx, teamID, req.ImageID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product image: %w", err)
	}

	plan := BuildPlan(req, s.objects.ImageURL(image.StoragePath))
	plan.SegmentPrompts[0] = s.enrichPrompt(ctx, teamID, plan.SegmentPrompts[0])

	usage, err := s.quota.Consume(ctx, teamID)
	if err != nil {
		if errors.Is(err, quota.ErrNoSubscription) {
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, err
	}
	log.Infof("💰 Team %s quota %d/%d", teamID, usage.Used, usage.Limit)

	taskID, err := s.provider.Generate(ctx, GenerateTaskRequest{
		Prompt:         plan.SegmentPrompts[0],
		GenerationType: plan.GenerationType,
		ImageURLs:      plan.ImageURLs,
		AspectRatio:    plan.AspectRatio,
		CallBackURL:    s.callbackURL,
		Model:          s.model,
		Seeds:          plan.Seed,
	})
	if err != nil {
		log.Warnf("❌ Provider rejected generation for team %s: %v", teamID, err)
		if !errors.Is(err, ErrProviderCall) {
			err = &ProviderError{Message: err.Error()}
		}
		return nil, err
	}

	now := s.now()
	video := &model.VideoGeneration{
		ID:             uuid.NewString(),
		TeamID:         teamID,
		ImageID:        req.ImageID,
		Prompt:         req.Prompt,
		AspectRatio:    plan.AspectRatio,
		TargetDuration: req.Duration,
		CurrentSegment: 1,
		SegmentPrompts: plan.SegmentPrompts,
		KieTaskID:      taskID,
		Status:         model.StatusPending,
		Seed:           plan.Seed,
		WasCropped:     plan.WasCropped,
		CreatedAt:      now,
		UpdatedAt:      now,
		TimeoutAt:      TimeoutAt(now, plan.Segments),
	}
	if req.LogoURL != "" {
		video.LogoURL = model.StringPtr(req.LogoURL)
	}
	if req.AdditionalImageURL != "" {
		video.AdditionalImageURL = model.StringPtr(req.AdditionalImageURL)
	}

	if err := s.store.InsertVideo(ctx, video); err != nil {
		log.Errorf("❌ Provider task %s has no row: %v", taskID, err)
		return nil, fmt.Errorf("failed to record video: %w", err)
	}
	s.publish(ctx, video)

	log.Infof("🎬 Video %s dispatched (task: %s, segments: %d)", video.ID, taskID, plan.Segments)
	return &GenerationResponse{
		Success:              true,
		VideoID:              video.ID,
		KieTaskID:            taskID,
		Status:               video.Status,
		EstimatedTimeSeconds: int(EstimatedTime(plan.Segments).Seconds()),
		Segments:             plan.Segments,
		WasCropped:           plan.WasCropped,
	}, nil
}

func (s *Service) enrichPrompt(ctx context.Context, teamID, prompt string) string {
	profile, err := s.store.FetchBrandProfile(ctx, teamID)
	if errors.Is(err, model.ErrNotFound) {
		return prompt
	}
	if err != nil {
		log.Warnf("⚠️ Brand profile unavailable for team %s: %v", teamID, err)
		return prompt
	}
	return brand.EnrichPrompt(profile, prompt)
}

// HandleCallback - one provider delivery; error means "retry me" (HTTP 500)
func (s *Service) HandleCallback(ctx context.Context, cb *Callback) (CallbackOutcome, error) {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, cb.TaskID, s.dedupeTTL)
		if err != nil {
			log.Warnf("⚠️ Dedupe lock unavailable for task %s: %v", cb.TaskID, err)
		} else if !acquired {
			log.Infof("🔁 Duplicate callback for task %s ignored", cb.TaskID)
			return OutcomeIgnored, nil
		}
	}

	outcome, err := s.handleCallback(ctx, cb)
	if err != nil && s.locker != nil {
		if relErr := s.locker.Release(ctx, cb.TaskID); relErr != nil {
			log.Warnf("⚠️ %v", relErr)
		}
	}
	return outcome, err
}

func (s *Service) handleCallback(ctx context.Context, cb *Callback) (CallbackOutcome, error) {
	video, err := s.store.FetchVideoByTaskID(ctx, cb.TaskID)
	if errors.Is(err, model.ErrNotFound) {
		log.Infof("🤷 No video for task %s (superseded or unknown)", cb.TaskID)
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load video for task %s: %w", cb.TaskID, err)
	}

	if model.IsTerminal(video.Status) {
		log.Infof("⏭️ Video %s already %s, callback ignored", video.ID, video.Status)
		return OutcomeIgnored, nil
	}

	if cb.Kind == CallbackFailed {
		return s.fail(ctx, video, EventSegmentFailed, cb.Message)
	}
	if len(cb.ResultURLs) == 0 {
		return s.fail(ctx, video, EventMissingResult, MsgMissingResult)
	}

	data, err := s.objects.Download(ctx, cb.ResultURLs[0])
	if err != nil {
		return s.fail(ctx, video, EventDownloadFailed, fmt.Sprintf("%v: %v", ErrDownload, err))
	}

	if video.CurrentSegment < SegmentsNeeded(video.TargetDuration) {
		return s.extend(ctx, video)
	}
	return s.materialize(ctx, video, data)
}

// extend - issue the next segment on top of the task that just finished
func (s *Service) extend(ctx context.Context, video *model.VideoGeneration) (CallbackOutcome, error) {
	prompt := segmentPrompt(video, video.CurrentSegment)

	newTaskID, err := s.provider.Extend(ctx, ExtendTaskRequest{
		TaskID:      video.KieTaskID,
		Prompt:      prompt,
		Seeds:       video.Seed,
		CallBackURL: s.callbackURL,
	})
	if err != nil {
		return s.fail(ctx, video, EventExtendFailed, fmt.Sprintf("failed to extend video: %v", err))
	}

	status, err := Next(video.Status, EventSegmentCompleted)
	if err != nil {
		return OutcomeIgnored, nil
	}
	next := video.CurrentSegment + 1
	if err := s.apply(ctx, video, model.VideoUpdate{
		Status:         &status,
		KieTaskID:      &newTaskID,
		CurrentSegment: &next,
	}); err != nil {
		return "", err
	}

	log.Infof("➡️ Video %s segment %d/%d in flight (task: %s)", video.ID, next, SegmentsNeeded(video.TargetDuration), newTaskID)
	return OutcomeExtended, nil
}

// materialize - store the final asset and complete the row
func (s *Service) materialize(ctx context.Context, video *model.VideoGeneration, data []byte) (CallbackOutcome, error) {
	// a retry after a failed completion finds the row already merging; upload is an upsert
	if video.Status != model.StatusMerging {
		merging, err := Next(video.Status, EventFinalSegmentCompleted)
		if err != nil {
			return OutcomeIgnored, nil
		}
		if err := s.apply(ctx, video, model.VideoUpdate{Status: &merging}); err != nil {
			return "", err
		}
	}

	path := storage.VideoPath(video.TeamID, video.ID)
	if err := s.objects.UploadVideo(ctx, path, data); err != nil {
		return s.fail(ctx, video, EventStorageFailed, fmt.Sprintf("%v: %v", ErrStorage, err))
	}

	completed, err := Next(video.Status, EventStored)
	if err != nil {
		return OutcomeIgnored, nil
	}
	now := s.now()
	if err := s.apply(ctx, video, model.VideoUpdate{
		Status:      &completed,
		StoragePath: &path,
		CompletedAt: &now,
	}); err != nil {
		return "", err
	}

	log.Infof("✅ Video %s completed (%d bytes at %s)", video.ID, len(data), path)
	return OutcomeCompleted, nil
}

// fail - record a failure; an already-terminal row is left alone
func (s *Service) fail(ctx context.Context, video *model.VideoGeneration, ev Event, message string) (CallbackOutcome, error) {
	status, err := Next(video.Status, ev)
	if err != nil {
		log.Warnf("⚠️ Video %s: %v", video.ID, err)
		return OutcomeIgnored, nil
	}
	if err := s.apply(ctx, video, model.VideoUpdate{
		Status:       &status,
		ErrorMessage: &message,
	}); err != nil {
		return "", err
	}

	log.Warnf("❌ Video %s failed (%s): %s", video.ID, ev, message)
	return OutcomeFailed, nil
}

func (s *Service) apply(ctx context.Context, video *model.VideoGeneration, update model.VideoUpdate) error {
	if err := s.store.UpdateVideo(ctx, video.ID, update); err != nil {
		return fmt.Errorf("failed to update video %s: %w", video.ID, err)
	}
	update.Apply(video)
	s.publish(ctx, video)
	return nil
}

func (s *Service) publish(ctx context.Context, video *model.VideoGeneration) {
	if s.publisher == nil {
		return
	}
	event := StatusEvent{
		Type:           "video_status",
		TeamID:         video.TeamID,
		VideoID:        video.ID,
		Status:         video.Status,
		CurrentSegment: video.CurrentSegment,
		ErrorMessage:   video.ErrorMessage,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warnf("⚠️ Failed to publish status of %s: %v", video.ID, err)
	}
}

// segmentPrompt - prompt for 0-based segment index
func segmentPrompt(video *model.VideoGeneration, index int) string {
	if index < len(video.SegmentPrompts) {
		return video.SegmentPrompts[index]
	}
	if n := len(video.SegmentPrompts); n > 0 {
		return video.SegmentPrompts[n-1]
	}
	return continuationPrefix + video.Prompt
}

// SweepTimeouts - fail active rows past their deadline; returns how many were failed
func (s *Service) SweepTimeouts(ctx context.Context) (int, error) {
	videos, err := s.store.FetchTimedOutVideos(ctx, s.now())
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range videos {
		outcome, err := s.fail(ctx, &videos[i], EventTimedOut, MsgTimedOut)
		if err != nil {
			log.Errorf("❌ %v", err)
			continue
		}
		if outcome == OutcomeFailed {
			failed++
		}
	}
	return failed, nil
}

// VideoView - row plus a playable URL once completed
type VideoView struct {
	model.VideoGeneration
	VideoURL string `json:"video_url,omitempty"`
}

func (s *Service) view(video model.VideoGeneration) VideoView {
	v := VideoView{VideoGeneration: video}
	if video.StoragePath != nil && *video.StoragePath != "" {
		v.VideoURL = s.objects.VideoURL(*video.StoragePath)
	}
	return v
}

// Get - one video of the team
func (s *Service) Get(ctx context.Context, teamID, videoID string) (*VideoView, error) {
	video, err := s.store.FetchVideo(ctx, teamID, videoID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	v := s.view(*video)
	return &v, nil
}

// List - newest first
func (s *Service) List(ctx context.Context, teamID string) ([]VideoView, error) {
	videos, err := s.store.ListVideos(ctx, teamID, ListLimit)
	if err != nil {
		return nil, err
	}
	views := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, s.view(v))
	}
	return views, nil
}

// Delete - remove the stored asset and the row
func (s *Service) Delete(ctx context.Context, teamID, videoID string) error {
	video, err := s.store.FetchVideo(ctx, teamID, videoID)
	if errors.Is(err, model.ErrNotFound) {
		return ErrVideoNotFound
	}
	if err != nil {
		return err
	}

	if video.StoragePath != nil && *video.StoragePath != "" {
		if err := s.objects.RemoveVideo(ctx, *video.StoragePath); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return s.store.DeleteVideo(ctx, teamID, videoID)
}
