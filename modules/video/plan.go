package video

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// SegmentsNeeded - ceil(duration / 8); anything non-positive is one segment
func SegmentsNeeded(duration int) int {
	if duration <= 0 {
		return 1
	}
	return (duration + BaseSegmentSeconds - 1) / BaseSegmentSeconds
}

// EstimatedTime - rough wall-clock time for the whole chain
func EstimatedTime(segments int) time.Duration {
	return time.Duration(segments) * SegmentEstimatedTime
}

// TimeoutAt - deadline after which the sweeper fails the row
func TimeoutAt(created time.Time, segments int) time.Time {
	return created.Add(time.Duration(segments) * SegmentTimeout)
}

// DeriveSeed - caller seed wins, otherwise a stable hash of image and prompt
func DeriveSeed(seed *int, imageID, prompt string) int {
	if seed != nil && *seed >= MinSeed && *seed <= MaxSeed {
		return *seed
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(imageID + "|" + prompt))
	return MinSeed + int(h.Sum32()%uint32(MaxSeed-MinSeed+1))
}

// continuationPrefix - derived prompt for segments after the first
const continuationPrefix = "Continue the same shot seamlessly: "

// BuildSegmentPrompts - one prompt per segment
func BuildSegmentPrompts(prompt string, supplied []string, segments int) []string {
	prompts := make([]string, segments)
	for i := range prompts {
		switch {
		case len(supplied) > i:
			prompts[i] = supplied[i]
		case len(supplied) > 0:
			prompts[i] = supplied[len(supplied)-1]
		case i == 0:
			prompts[i] = prompt
		default:
			prompts[i] = continuationPrefix + prompt
		}
	}
	return prompts
}

// Plan - everything the dispatcher decides before calling the provider
type Plan struct {
	Segments       int
	SegmentPrompts []string
	Seed           int
	GenerationType string
	AspectRatio    string // what the provider is asked for
	WasCropped     bool
	ImageURLs      []string
}

// Normalize - defaults and bounds; returns ErrInvalidRequest on bad input
func Normalize(req *GenerationRequest) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.ImageID == "" || req.Prompt == "" {
		return fmt.Errorf("%w: imageId and prompt are required", ErrInvalidRequest)
	}
	if req.AspectRatio == "" {
		req.AspectRatio = AspectWide
	}
	if req.AspectRatio != AspectWide && req.AspectRatio != AspectNarrow {
		return fmt.Errorf("%w: aspect ratio must be %s or %s", ErrInvalidRequest, AspectWide, AspectNarrow)
	}
	if req.Duration == 0 {
		req.Duration = DefaultDuration
	}
	if req.Duration < 0 || req.Duration > MaxDuration {
		return fmt.Errorf("%w: duration must be between 1 and %d seconds", ErrInvalidRequest, MaxDuration)
	}
	return nil
}

// BuildPlan - pure planning step over a normalized request
func BuildPlan(req GenerationRequest, imageURL string) Plan {
	segments := SegmentsNeeded(req.Duration)
	plan := Plan{
		Segments:       segments,
		Seed:           DeriveSeed(req.Seed, req.ImageID, req.Prompt),
		GenerationType: GenerationFrames,
		AspectRatio:    req.AspectRatio,
		ImageURLs:      []string{imageURL},
	}

	plan.SegmentPrompts = BuildSegmentPrompts(req.Prompt, req.SegmentPrompts, segments)

	if req.LogoURL != "" || req.AdditionalImageURL != "" {
		plan.GenerationType = GenerationReference
		if req.LogoURL != "" {
			plan.ImageURLs = append(plan.ImageURLs, req.LogoURL)
		}
		if req.AdditionalImageURL != "" {
			plan.ImageURLs = append(plan.ImageURLs, req.AdditionalImageURL)
		}
		// reference mode only renders wide
		if req.AspectRatio == AspectNarrow {
			plan.AspectRatio = AspectWide
			plan.WasCropped = true
		}
	}
	return plan
}
