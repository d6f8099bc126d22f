package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/model"
)

var log = logger.For("billing")

const (
	metadataTeamID = "team_id"
	metadataPlan   = "plan"
)

// Store - subscriptions access
type Store interface {
	FetchSubscription(ctx context.Context, teamID string) (*model.Subscription, error)
	FetchSubscriptionByCustomer(ctx context.Context, customerID string) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, teamID string, fields map[string]interface{}) error
}

// CheckoutCreator - hosted checkout backend (StripeCheckout)
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (string, error)
}

type Service struct {
	store         Store
	checkout      CheckoutCreator
	catalog       *Catalog
	webhookSecret string
	appURL        string
}

// NewService - Service 생성
func NewService(store Store, checkout CheckoutCreator, catalog *Catalog, webhookSecret, appURL string) *Service {
	return &Service{
		store:         store,
		checkout:      checkout,
		catalog:       catalog,
		webhookSecret: webhookSecret,
		appURL:        strings.TrimRight(appURL, "/"),
	}
}

// Checkout - start a subscription checkout for the team
func (s *Service) Checkout(ctx context.Context, teamID, planName string) (string, error) {
	plan, ok := s.catalog.Plan(planName)
	if !ok || plan.PriceID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlan, planName)
	}

	params := CheckoutParams{
		TeamID:     teamID,
		Plan:       plan.Name,
		PriceID:    plan.PriceID,
		SuccessURL: s.appURL + "/billing?checkout=success",
		CancelURL:  s.appURL + "/billing?checkout=cancelled",
	}
	if sub, err := s.store.FetchSubscription(ctx, teamID); err == nil && sub.StripeCustomerID != nil {
		params.CustomerID = *sub.StripeCustomerID
	}

	url, err := s.checkout.CreateCheckout(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCheckout, err)
	}

	log.Infof("💳 Checkout started for team %s (plan: %s)", teamID, plan.Name)
	return url, nil
}

// Subscription - plan and usage of the team
func (s *Service) Subscription(ctx context.Context, teamID string) (*SubscriptionView, error) {
	sub, err := s.store.FetchSubscription(ctx, teamID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Plan:              sub.Plan,
		Limit:             sub.VideoLimit,
		Used:              sub.VideosGeneratedThisMonth,
		Remaining:         sub.Remaining(),
		Status:            sub.Status,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}, nil
}

// HandleWebhook - verify the Stripe signature and apply the event
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	log.Infof("📨 Stripe event %s (%s)", event.ID, event.Type)
	return s.applyEvent(ctx, event)
}

func (s *Service) applyEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return s.checkoutCompleted(ctx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.subscriptionUpdated(ctx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.subscriptionDeleted(ctx, &sub)

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to parse invoice: %w", err)
		}
		return s.invoicePaid(ctx, &inv)
	}

	log.Debugf("⏭️ Stripe event %s ignored", event.Type)
	return nil
}

func (s *Service) checkoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	teamID := session.ClientReferenceID
	if teamID == "" {
		teamID = session.Metadata[metadataTeamID]
	}
	if teamID == "" {
		log.Warnf("⚠️ Checkout session %s has no team reference", session.ID)
		return nil
	}

	fields := map[string]interface{}{
		"status": StatusActive,
	}
	if session.Customer != nil {
		fields["stripe_customer_id"] = session.Customer.ID
	}
	if session.Subscription != nil {
		fields["stripe_subscription_id"] = session.Subscription.ID
	}
	if plan, ok := s.catalog.Plan(session.Metadata[metadataPlan]); ok {
		fields["plan"] = plan.Name
		fields["video_limit"] = plan.VideoLimit
	}

	log.Infof("✅ Checkout completed for team %s", teamID)
	return s.store.UpdateSubscription(ctx, teamID, fields)
}

func (s *Service) subscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	teamID, err := s.resolveTeam(ctx, sub.Metadata[metadataTeamID], sub.Customer)
	if err != nil || teamID == "" {
		return err
	}

	fields := map[string]interface{}{
		"stripe_subscription_id": sub.ID,
		"status":                 string(sub.Status),
		"cancel_at_period_end":   sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodStart > 0 {
		fields["current_period_start"] = unixRFC3339(sub.CurrentPeriodStart)
	}
	if sub.CurrentPeriodEnd > 0 {
		fields["current_period_end"] = unixRFC3339(sub.CurrentPeriodEnd)
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID := sub.Items.Data[0].Price.ID
		if plan, ok := s.catalog.PlanForPrice(priceID); ok {
			fields["plan"] = plan.Name
			fields["video_limit"] = plan.VideoLimit
		} else {
			log.Warnf("⚠️ Subscription %s uses unknown price %s", sub.ID, priceID)
		}
	}

	return s.store.UpdateSubscription(ctx, teamID, fields)
}

func (s *Service) subscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	teamID, err := s.resolveTeam(ctx, sub.Metadata[metadataTeamID], sub.Customer)
	if err != nil || teamID == "" {
		return err
	}

	free := s.catalog.Free()
	log.Infof("⬇️ Team %s downgraded to %s", teamID, free.Name)
	return s.store.UpdateSubscription(ctx, teamID, map[string]interface{}{
		"plan":                   free.Name,
		"video_limit":            free.VideoLimit,
		"status":                 StatusCanceled,
		"stripe_subscription_id": nil,
		"cancel_at_period_end":   false,
	})
}

// invoicePaid - a new billing period starts with an empty counter
func (s *Service) invoicePaid(ctx context.Context, inv *stripe.Invoice) error {
	if inv.Subscription == nil {
		return nil
	}
	switch inv.BillingReason {
	case stripe.InvoiceBillingReasonSubscriptionCreate, stripe.InvoiceBillingReasonSubscriptionCycle:
	default:
		return nil
	}

	teamID, err := s.resolveTeam(ctx, "", inv.Customer)
	if err != nil || teamID == "" {
		return err
	}

	log.Infof("🔄 New billing period for team %s, counter reset", teamID)
	return s.store.UpdateSubscription(ctx, teamID, map[string]interface{}{
		"videos_generated_this_month": 0,
		"status":                      StatusActive,
	})
}

// resolveTeam - metadata first, then the stored customer id; "" when unknown
func (s *Service) resolveTeam(ctx context.Context, teamID string, customer *stripe.Customer) (string, error) {
	if teamID != "" {
		return teamID, nil
	}
	if customer == nil || customer.ID == "" {
		return "", nil
	}

	sub, err := s.store.FetchSubscriptionByCustomer(ctx, customer.ID)
	if errors.Is(err, model.ErrNotFound) {
		log.Warnf("⚠️ No subscription for Stripe customer %s", customer.ID)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sub.TeamID, nil
}

func unixRFC3339(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
