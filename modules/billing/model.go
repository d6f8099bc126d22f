package billing

import (
	"errors"
	"time"
)

// Subscription statuses written by the webhook
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
)

var (
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidSignature     = errors.New("invalid stripe signature")
	ErrCheckout             = errors.New("failed to create checkout session")
)

// CheckoutRequest - POST /api/billing/checkout
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter pro business"`
}

// CheckoutParams - what the checkout backend needs
type CheckoutParams struct {
	TeamID     string
	Plan       string
	PriceID    string
	CustomerID string
	SuccessURL string
	CancelURL  string
}

// SubscriptionView - GET /api/billing/subscription
type SubscriptionView struct {
	Plan              string     `json:"plan"`
	Limit             int        `json:"limit"`
	Used              int        `json:"used"`
	Remaining         int        `json:"remaining"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
}
