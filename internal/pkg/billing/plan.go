package billing

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrUnmappedPrice signals that a price has no catalog entry and the basic
// plan was substituted.
var ErrUnmappedPrice = errors.New("price not mapped to a plan")

// PlanDuration is how long one paid purchase keeps a plan active.
const PlanDuration = 30 * 24 * time.Hour

const (
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// PlanEntry binds a purchase price in cents to a plan and its daily quota.
type PlanEntry struct {
	PriceCents        int64  `json:"price_cents"`
	Plan              string `json:"plan"`
	DailyMessageLimit int    `json:"daily_message_limit"`
}

var catalog = map[int64]PlanEntry{
	3700: {PriceCents: 3700, Plan: PlanBasic, DailyMessageLimit: 30},
	9700: {PriceCents: 9700, Plan: PlanPro, DailyMessageLimit: 150},
}

// ResolvePlan looks the price up in the catalog. Unknown prices return the
// basic plan together with ErrUnmappedPrice; callers grant access anyway.
func ResolvePlan(priceCents int64) (PlanEntry, error) {
	if e, ok := catalog[priceCents]; ok {
		return e, nil
	}
	return defaultPlan(), ErrUnmappedPrice
}

// Plans returns the catalog sorted by price.
func Plans() []PlanEntry {
	out := make([]PlanEntry, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}

// PlanByName finds a catalog entry by plan identifier.
func PlanByName(plan string) (PlanEntry, bool) {
	p := strings.ToLower(strings.TrimSpace(plan))
	for _, e := range catalog {
		if e.Plan == p {
			return e, true
		}
	}
	return PlanEntry{}, false
}

func defaultPlan() PlanEntry {
	e, _ := PlanByName(PlanBasic)
	return e
}

func isPaidStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == "paid"
}
