package brand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
)

var log = logger.For("brand")

// Store - brand_profiles access
type Store interface {
	FetchBrandProfile(ctx context.Context, teamID string) (*model.BrandProfile, error)
	UpsertBrandProfile(ctx context.Context, profile *model.BrandProfile) error
}

// Generator - JSON-mode LLM (gemini.Client)
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	store     Store
	generator Generator
	now       func() time.Time
}

// NewService - Service 생성
func NewService(store Store, generator Generator) *Service {
	return &Service{
		store:     store,
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

const analysisPrompt = `You are a brand strategist. Analyze the brand below from its public presence and answer with JSON only, using exactly these keys:
{"toneOfVoice": string, "brandValues": [string, ...up to 5], "visualIdentity": string}

Company: %s
Website: %s
Instagram: %s
TikTok: %s`

// Analyze - ask the model about the brand and save the profile
func (s *Service) Analyze(ctx context.Context, teamID string, req AnalyzeRequest) (*model.BrandProfile, error) {
	log.Infof("🔍 Analyzing brand %q for team %s", req.CompanyName, teamID)

	prompt := fmt.Sprintf(analysisPrompt,
		req.CompanyName, req.WebsiteURL, orNone(req.InstagramURL), orNone(req.TiktokURL))

	raw, err := s.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	profile := &model.BrandProfile{
		TeamID:         teamID,
		CompanyName:    req.CompanyName,
		WebsiteURL:     req.WebsiteURL,
		ToneOfVoice:    analysis.ToneOfVoice,
		BrandValues:    analysis.BrandValues,
		VisualIdentity: analysis.VisualIdentity,
		AnalyzedAt:     &now,
	}
	if req.InstagramURL != "" {
		profile.InstagramURL = model.StringPtr(req.InstagramURL)
	}
	if req.TiktokURL != "" {
		profile.TiktokURL = model.StringPtr(req.TiktokURL)
	}

	if err := s.store.UpsertBrandProfile(ctx, profile); err != nil {
		return nil, err
	}

	log.Infof("✅ Brand profile saved for team %s", teamID)
	return profile, nil
}

// Get - the team's profile
func (s *Service) Get(ctx context.Context, teamID string) (*model.BrandProfile, error) {
	profile, err := s.store.FetchBrandProfile(ctx, teamID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return profile, err
}

// ParseAnalysis - tolerate ```json fences around the model output
func ParseAnalysis(raw string) (*Analysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("%w: invalid model output: %v", ErrAnalysis, err)
	}
	if analysis.ToneOfVoice == "" && len(analysis.BrandValues) == 0 && analysis.VisualIdentity == "" {
		return nil, fmt.Errorf("%w: empty analysis", ErrAnalysis)
	}
	if len(analysis.BrandValues) > 5 {
		analysis.BrandValues = analysis.BrandValues[:5]
	}
	return &analysis, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
