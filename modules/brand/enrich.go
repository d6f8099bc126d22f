package brand

import (
	"strings"

	"reelcraft-server/modules/common/model"
)

// EnrichPrompt - append the team's brand style to a generation prompt
func EnrichPrompt(profile *model.BrandProfile, prompt string) string {
	if profile == nil {
		return prompt
	}

	var parts []string
	if tone := strings.TrimSpace(profile.ToneOfVoice); tone != "" {
		parts = append(parts, "tone of voice: "+tone)
	}
	if len(profile.BrandValues) > 0 {
		parts = append(parts, "brand values: "+strings.Join(profile.BrandValues, ", "))
	}
	if visual := strings.TrimSpace(profile.VisualIdentity); visual != "" {
		parts = append(parts, "visual identity: "+visual)
	}
	if len(parts) == 0 {
		return prompt
	}
	return prompt + "\n\nBrand style (" + profile.CompanyName + "): " + strings.Join(parts, "; ") + "."
}
