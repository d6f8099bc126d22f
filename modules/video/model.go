package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelcraft-server/modules/common/quota"
)

const (
	// BaseSegmentSeconds - length of one provider segment
	BaseSegmentSeconds = 8
	MaxDuration        = 64
	DefaultDuration    = 8

	AspectWide   = "16:9"
	AspectNarrow = "9:16"

	GenerationFrames    = "FIRST_AND_LAST_FRAMES_2_VIDEO"
	GenerationReference = "REFERENCE_2_VIDEO"

	MinSeed = 10000
	MaxSeed = 99999

	SegmentTimeout       = 10 * time.Minute
	SegmentEstimatedTime = 90 * time.Second

	ListLimit = 50

	MsgProviderFailed = "Video generation failed at provider"
	MsgMissingResult  = "Provider reported success but returned no result URL"
	MsgTimedOut       = "Video generation timed out"

	providerSuccessCode = 200
)

var (
	ErrQuotaExceeded     = quota.ErrQuotaExceeded
	ErrProviderCall      = errors.New("provider call failed")
	ErrMissingResult     = errors.New("provider returned no result url")
	ErrDownload          = errors.New("failed to download result")
	ErrStorage           = errors.New("failed to store video")
	ErrVideoNotFound     = errors.New("video not found")
	ErrImageNotFound     = errors.New("product image not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRequest    = errors.New("invalid generation request")
	ErrMalformedCallback = errors.New("malformed provider callback")
)

// ProviderError - provider-side failure; Message is the provider's own text
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderCall
}

// GenerationRequest - POST /api/videos/generate
type GenerationRequest struct {
	ImageID            string   `json:"imageId" validate:"required"`
	Prompt             string   `json:"prompt" validate:"required"`
	AspectRatio        string   `json:"aspectRatio" validate:"omitempty,oneof=16:9 9:16"`
	Duration           int      `json:"durationSeconds" validate:"omitempty,min=1,max=64"`
	Seed               *int     `json:"seed,omitempty" validate:"omitempty,min=10000,max=99999"`
	SegmentPrompts     []string `json:"segmentPrompts,omitempty" validate:"omitempty,max=8,dive,required"`
	LogoURL            string   `json:"logoUrl,omitempty" validate:"omitempty,url"`
	AdditionalImageURL string   `json:"additionalImageUrl,omitempty" validate:"omitempty,url"`
}

// GenerationResponse - accepted generation
type GenerationResponse struct {
	Success              bool   `json:"success"`
	VideoID              string `json:"videoId"`
	KieTaskID            string `json:"kieTaskId"`
	Status               string `json:"status"`
	EstimatedTimeSeconds int    `json:"estimatedTimeSeconds"`
	Segments             int    `json:"segments"`
	WasCropped           bool   `json:"wasCropped"`
}

// GenerateTaskRequest - provider generate body
type GenerateTaskRequest struct {
	Prompt         string   `json:"prompt"`
	GenerationType string   `json:"generationType"`
	ImageURLs      []string `json:"imageUrls"`
	AspectRatio    string   `json:"aspectRatio"`
	CallBackURL    string   `json:"callBackUrl"`
	Model          string   `json:"model"`
	Seeds          int      `json:"seeds"`
}

// ExtendTaskRequest - provider extend body
type ExtendTaskRequest struct {
	TaskID      string `json:"taskId"`
	Prompt      string `json:"prompt"`
	Seeds       int    `json:"seeds"`
	CallBackURL string `json:"callBackUrl"`
}

// taskResponse - provider envelope for generate/extend
type taskResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// callbackPayload - raw webhook body
type callbackPayload struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		TaskID string `json:"taskId"`
		Info   *struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"info"`
	} `json:"data"`
}

// CallbackKind - outcome the provider reported
type CallbackKind int

const (
	CallbackSucceeded CallbackKind = iota + 1
	CallbackFailed
)

// Callback - validated webhook, either succeeded (with result urls) or failed (with message)
type Callback struct {
	TaskID     string
	Kind       CallbackKind
	Message    string
	ResultURLs []string
}

// ParseCallback - reject anything without a code and a task id
func ParseCallback(body []byte) (*Callback, error) {
	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if p.Code == nil {
		return nil, fmt.Errorf("%w: missing code", ErrMalformedCallback)
	}
	if p.Data == nil || p.Data.TaskID == "" {
		return nil, fmt.Errorf("%w: missing data.taskId", ErrMalformedCallback)
	}

	cb := &Callback{TaskID: p.Data.TaskID}
	if *p.Code != providerSuccessCode {
		cb.Kind = CallbackFailed
		cb.Message = p.Msg
		if cb.Message == "" {
			cb.Message = MsgProviderFailed
		}
		return cb, nil
	}

	cb.Kind = CallbackSucceeded
	if p.Data.Info != nil {
		for _, u := range p.Data.Info.ResultURLs {
			if u != "" {
				cb.ResultURLs = append(cb.ResultURLs, u)
			}
		}
	}
	return cb, nil
}

// CallbackOutcome - what HandleCallback did with a delivery
type CallbackOutcome string

const (
	OutcomeIgnored   CallbackOutcome = "ignored"
	OutcomeFailed    CallbackOutcome = "failed"
	OutcomeExtended  CallbackOutcome = "extended"
	OutcomeCompleted CallbackOutcome = "completed"
)

// StatusEvent - pushed to the realtime feed on every status write
type StatusEvent struct {
	Type           string  `json:"type"`
	TeamID         string  `json:"teamId"`
	VideoID        string  `json:"videoId"`
	Status         string  `json:"status"`
	CurrentSegment int     `json:"currentSegment"`
	ErrorMessage   *string `json:"errorMessage,omitempty"`
}
