package database

import (
	"context"
	"fmt"

	"reelcraft-server/modules/common/model"
)

// FetchSubscription - subscriptions 행 조회
func (c *Client) FetchSubscription(ctx context.Context, teamID string) (*model.Subscription, error) {
	data, _, err := c.supabase.From(tableSubscriptions).
		Select("*", "", false).
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return decodeFirst[model.Subscription](data, "subscription")
}

// FetchSubscriptionByCustomer - lookup by Stripe customer id
func (c *Client) FetchSubscriptionByCustomer(ctx context.Context, customerID string) (*model.Subscription, error) {
	data, _, err := c.supabase.From(tableSubscriptions).
		Select("*", "", false).
		Eq("stripe_customer_id", customerID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription by customer: %w", err)
	}
	return decodeFirst[model.Subscription](data, "subscription")
}

// InsertSubscription - new team starts on a plan row
func (c *Client) InsertSubscription(ctx context.Context, sub *model.Subscription) error {
	_, _, err := c.supabase.From(tableSubscriptions).
		Insert(sub, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// UpdateSubscription - partial update by team
func (c *Client) UpdateSubscription(ctx context.Context, teamID string, fields map[string]interface{}) error {
	log.Infof("📝 Updating subscription for team %s: %v", teamID, fields)

	fields["updated_at"] = "now()"
	_, _, err := c.supabase.From(tableSubscriptions).
		Update(fields, "minimal", "").
		Eq("team_id", teamID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}
