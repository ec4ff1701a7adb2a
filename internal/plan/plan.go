// Package plan is the single registry of subscription plans. Both the
// checkout session factory and the public pricing endpoint read from it, so
// plan data cannot drift between surfaces.
package plan

// Plan describes a purchasable subscription plan. Prices are integer
// minor-currency units. Immutable at runtime.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Currency string   `json:"currency"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}

var registry = []Plan{
	{
		ID:       "basic",
		Name:     "Basic Plan",
		Price:    999,
		Currency: "usd",
		Interval: "month",
		Features: []string{"Access to basic playlists", "Standard quality", "Limited downloads"},
	},
	{
		ID:       "premium",
		Name:     "Premium Plan",
		Price:    1999,
		Currency: "usd",
		Interval: "month",
		Features: []string{"Access to all playlists", "High quality", "Unlimited downloads", "Offline mode"},
	},
}

// Get returns the plan with the given id.
func Get(id string) (Plan, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// List returns all plans in display order.
func List() []Plan {
	out := make([]Plan, len(registry))
	copy(out, registry)
	return out
}
