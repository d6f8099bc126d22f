package model

import (
	"errors"
	"time"
)

// ErrNotFound - returned by the data layer when a row does not exist
var ErrNotFound = errors.New("not found")

// Video generation statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusMerging    = "merging"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ActiveVideoStatuses - statuses a row can still leave
func ActiveVideoStatuses() []string {
	return []string{StatusPending, StatusProcessing, StatusMerging}
}

// IsTerminal - completed and failed rows never change status again
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// VideoGeneration - video_generations 테이블 구조
type VideoGeneration struct {
	ID                 string     `json:"id"`
	TeamID             string     `json:"team_id"`
	ImageID            string     `json:"image_id"`
	Prompt             string     `json:"prompt"`
	AspectRatio        string     `json:"aspect_ratio"`
	TargetDuration     int        `json:"target_duration"`
	CurrentSegment     int        `json:"current_segment"`
	SegmentPrompts     []string   `json:"segment_prompts"`
	KieTaskID          string     `json:"kie_task_id"`
	Status             string     `json:"status"`
	ErrorMessage       *string    `json:"error_message"`
	StoragePath        *string    `json:"storage_path"`
	Seed               int        `json:"seed"`
	LogoURL            *string    `json:"logo_url"`
	AdditionalImageURL *string    `json:"additional_image_url"`
	WasCropped         bool       `json:"was_cropped"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	TimeoutAt          time.Time  `json:"timeout_at"`
}

// VideoUpdate - partial update of a video row; nil fields are left alone
type VideoUpdate struct {
	Status         *string
	KieTaskID      *string
	CurrentSegment *int
	ErrorMessage   *string
	StoragePath    *string
	CompletedAt    *time.Time
}

// Fields - column map for PostgREST
func (u VideoUpdate) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"updated_at": "now()",
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.KieTaskID != nil {
		fields["kie_task_id"] = *u.KieTaskID
	}
	if u.CurrentSegment != nil {
		fields["current_segment"] = *u.CurrentSegment
	}
	if u.ErrorMessage != nil {
		fields["error_message"] = *u.ErrorMessage
	}
	if u.StoragePath != nil {
		fields["storage_path"] = *u.StoragePath
	}
	if u.CompletedAt != nil {
		fields["completed_at"] = u.CompletedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

// Apply - apply the update to an in-memory row
func (u VideoUpdate) Apply(v *VideoGeneration) {
	if u.Status != nil {
		v.Status = *u.Status
	}
	if u.KieTaskID != nil {
		v.KieTaskID = *u.KieTaskID
	}
	if u.CurrentSegment != nil {
		v.CurrentSegment = *u.CurrentSegment
	}
	if u.ErrorMessage != nil {
		msg := *u.ErrorMessage
		v.ErrorMessage = &msg
	}
	if u.StoragePath != nil {
		path := *u.StoragePath
		v.StoragePath = &path
	}
	if u.CompletedAt != nil {
		at := *u.CompletedAt
		v.CompletedAt = &at
	}
	v.UpdatedAt = time.Now().UTC()
}

// ProductImage - product_images 테이블 구조
type ProductImage struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	StoragePath string    `json:"storage_path"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	Source      string    `json:"source"` // "upload" | "drive"
	DriveFileID *string   `json:"drive_file_id"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	ImageSourceUpload = "upload"
	ImageSourceDrive  = "drive"
)

// Subscription - subscriptions 테이블 구조
type Subscription struct {
	TeamID                   string     `json:"team_id"`
	Plan                     string     `json:"plan"`
	VideoLimit               int        `json:"video_limit"`
	VideosGeneratedThisMonth int        `json:"videos_generated_this_month"`
	StripeCustomerID         *string    `json:"stripe_customer_id"`
	StripeSubscriptionID     *string    `json:"stripe_subscription_id"`
	CurrentPeriodStart       *time.Time `json:"current_period_start"`
	CurrentPeriodEnd         *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd        bool       `json:"cancel_at_period_end"`
	Status                   string     `json:"status"`
}

// Remaining - videos left this period, never negative
func (s *Subscription) Remaining() int {
	if left := s.VideoLimit - s.VideosGeneratedThisMonth; left > 0 {
		return left
	}
	return 0
}

// BrandProfile - brand_profiles 테이블 구조
type BrandProfile struct {
	TeamID         string     `json:"team_id"`
	CompanyName    string     `json:"company_name"`
	WebsiteURL     string     `json:"website_url"`
	InstagramURL   *string    `json:"instagram_url"`
	TiktokURL      *string    `json:"tiktok_url"`
	ToneOfVoice    string     `json:"tone_of_voice"`
	BrandValues    []string   `json:"brand_values"`
	VisualIdentity string     `json:"visual_identity"`
	AnalyzedAt     *time.Time `json:"analyzed_at"`
}

// Team roles, highest first
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Team - teams 테이블 구조
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember - team_members 테이블 구조
type TeamMember struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Invitation - team_invitations 테이블 구조
type Invitation struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Token      string     `json:"token"`
	InvitedBy  string     `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// StringPtr - pointer helper for optional columns
func StringPtr(s string) *string { return &s }

// IntPtr - pointer helper for optional columns
func IntPtr(i int) *int { return &i }
