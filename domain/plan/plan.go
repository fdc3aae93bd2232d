// Package plan provides plan value types and pure functions.
package plan

import "github.com/artpar/fleetbill/domain/money"

// Plan represents a phone-line pricing plan (immutable value type).
// Clearing pools the plan's included minutes/SMS across every line on the
// plan, so one line's unused allowance offsets another line's overage.
type Plan struct {
	Name            string
	MonthlyPrice    money.Money
	PricePerMin     money.Money // per excess minute
	PricePerSMS     money.Money // per excess SMS
	IncludedMin     money.Minutes
	IncludedSMS     int64
	WithMinClearing bool
	WithSMSClearing bool
	Description     string
}

// Find finds a plan by name in a list.
// This is a PURE function.
func Find(plans []Plan, name string) (Plan, bool) {
	for _, p := range plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}
