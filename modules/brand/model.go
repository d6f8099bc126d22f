package brand

import "errors"

var (
	ErrProfileNotFound = errors.New("brand profile not found")
	ErrAnalysis        = errors.New("brand analysis failed")
)

// AnalyzeRequest - POST /api/brand/analyze
type AnalyzeRequest struct {
	CompanyName  string `json:"companyName" validate:"required,max=200"`
	WebsiteURL   string `json:"websiteUrl" validate:"required,url"`
	InstagramURL string `json:"instagramUrl,omitempty" validate:"omitempty,url"`
	TiktokURL    string `json:"tiktokUrl,omitempty" validate:"omitempty,url"`
}

// Analysis - JSON the model is asked to return
type Analysis struct {
	ToneOfVoice    string   `json:"toneOfVoice"`
	BrandValues    []string `json:"brandValues"`
	VisualIdentity string   `json:"visualIdentity"`
}
