package billing

import "reelcraft-server/modules/common/model"

const (
	PlanFree     = "free"
	PlanStarter  = "starter"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Plan - monthly video allowance and its Stripe price
type Plan struct {
	Name       string `json:"name"`
	VideoLimit int    `json:"videoLimit"`
	PriceID    string `json:"-"`
}

// Catalog - plans keyed by name and by Stripe price id
type Catalog struct {
	byName  map[string]Plan
	byPrice map[string]Plan
}

// NewCatalog - price ids come from STRIPE_PRICE_* config
func NewCatalog(starterPrice, proPrice, businessPrice string) *Catalog {
	plans := []Plan{
		{Name: PlanFree, VideoLimit: 3},
		{Name: PlanStarter, VideoLimit: 20, PriceID: starterPrice},
		{Name: PlanPro, VideoLimit: 60, PriceID: proPrice},
		{Name: PlanBusiness, VideoLimit: 200, PriceID: businessPrice},
	}

	c := &Catalog{
		byName:  make(map[string]Plan, len(plans)),
		byPrice: make(map[string]Plan, len(plans)),
	}
	for _, p := range plans {
		c.byName[p.Name] = p
		if p.PriceID != "" {
			c.byPrice[p.PriceID] = p
		}
	}
	return c
}

func (c *Catalog) Plan(name string) (Plan, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// PlanForPrice - plan sold under a Stripe price
func (c *Catalog) PlanForPrice(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// Free - the plan every team starts on and falls back to
func (c *Catalog) Free() Plan {
	return c.byName[PlanFree]
}

// FreeSubscription - initial subscriptions row of a new team
func FreeSubscription(teamID string) *model.Subscription {
	return &model.Subscription{
		TeamID:     teamID,
		Plan:       PlanFree,
		VideoLimit: 3,
		Status:     StatusActive,
	}
}
