package brand

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reelcraft-server/modules/common/model"
)

type fakeStore struct {
	profiles map[string]*model.BrandProfile
}

func (f *fakeStore) FetchBrandProfile(ctx context.Context, teamID string) (*model.BrandProfile, error) {
	if p, ok := f.profiles[teamID]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) UpsertBrandProfile(ctx context.Context, profile *model.BrandProfile) error {
	f.profiles[profile.TeamID] = profile
	return nil
}

type fakeGenerator struct {
	out    string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestAnalyze_SavesProfile(t *testing.T) {
	store := &fakeStore{profiles: map[string]*model.BrandProfile{}}
	gen := &fakeGenerator{out: "```json\n{\"toneOfVoice\":\"playful\",\"brandValues\":[\"bold\",\"fun\"],\"visualIdentity\":\"neon pastel\"}\n```"}
	svc := NewService(store, gen)

	profile, err := svc.Analyze(context.Background(), "team-1", AnalyzeRequest{
		CompanyName:  "Acme",
		WebsiteURL:   "https://acme.test",
		InstagramURL: "https://instagram.com/acme",
	})
	require.NoError(t, err)

	assert.Equal(t, "playful", profile.ToneOfVoice)
	assert.Equal(t, []string{"bold", "fun"}, profile.BrandValues)
	assert.NotNil(t, profile.AnalyzedAt)
	assert.Equal(t, "https://instagram.com/acme", *profile.InstagramURL)
	assert.Nil(t, profile.TiktokURL)
	assert.Contains(t, gen.prompt, "Company: Acme")
	assert.Contains(t, gen.prompt, "TikTok: (none)")

	got, err := svc.Get(context.Background(), "team-1")
	require.NoError(t, err)
	assert.Same(t, profile, got)
}

func TestAnalyze_ModelFailure(t *testing.T) {
	svc := NewService(&fakeStore{profiles: map[string]*model.BrandProfile{}}, &fakeGenerator{err: errors.New("429")})
	_, err := svc.Analyze(context.Background(), "t", AnalyzeRequest{CompanyName: "A", WebsiteURL: "https://a.test"})
	assert.ErrorIs(t, err, ErrAnalysis)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(&fakeStore{profiles: map[string]*model.BrandProfile{}}, &fakeGenerator{})
	_, err := svc.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestParseAnalysis(t *testing.T) {
	a, err := ParseAnalysis(`{"toneOfVoice":"calm","brandValues":["a","b","c","d","e","f"],"visualIdentity":"white"}`)
	require.NoError(t, err)
	assert.Len(t, a.BrandValues, 5)

	_, err = ParseAnalysis(`{}`)
	assert.ErrorIs(t, err, ErrAnalysis)

	_, err = ParseAnalysis(`nope`)
	assert.ErrorIs(t, err, ErrAnalysis)
}

func TestEnrichPrompt(t *testing.T) {
	assert.Equal(t, "spin", EnrichPrompt(nil, "spin"))
	assert.Equal(t, "spin", EnrichPrompt(&model.BrandProfile{CompanyName: "Acme"}, "spin"))

	profile := &model.BrandProfile{
		CompanyName:    "Acme",
		ToneOfVoice:    "playful",
		BrandValues:    []string{"bold", "fun"},
		VisualIdentity: "neon pastel",
	}
	assert.Equal(t,
		"spin\n\nBrand style (Acme): tone of voice: playful; brand values: bold, fun; visual identity: neon pastel.",
		EnrichPrompt(profile, "spin"))
}
