/**
 * @description
 * This file defines the static membership plan catalog. Plans are a small
 * fixed set of offerings; they are not persisted and exist only to pre-fill
 * the total amount and derive the membership end date from the start date.
 */

package domain

import "fmt"

// MembershipPlan is one catalog entry with a fixed duration and price.
type MembershipPlan struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DurationMonths int     `json:"duration_months"`
	Price          float64 `json:"price"`
	Description    string  `json:"description"`
}

// MembershipPlans is the catalog offered at the front desk.
var MembershipPlans = []MembershipPlan{
	{
		ID:             "1month",
		Name:           "1 Month Plan",
		DurationMonths: 1,
		Price:          700,
		Description:    "Perfect for beginners",
	},
	{
		ID:             "3months",
		Name:           "3 Months Plan",
		DurationMonths: 3,
		Price:          1500,
		Description:    "Most popular choice",
	},
}

// FindPlan looks up a plan by its catalog ID.
func FindPlan(id string) (MembershipPlan, error) {
	for _, p := range MembershipPlans {
		if p.ID == id {
			return p, nil
		}
	}
	return MembershipPlan{}, fmt.Errorf("unknown membership plan %q", id)
}
