// Package penalty computes plan-wide overage shortfalls and distributes them
// fairly across a plan's consumptions, equalizing the lowest-usage lines
// first.
package penalty

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/plan"
)

// Penalty records the total minute and SMS shortfall to be distributed among
// one plan's consumptions for one bill. Exactly one per (bill, plan).
type Penalty struct {
	BillID   string
	PlanName string
	Minutes  money.Minutes
	SMS      int64
}

// HasShortfall reports whether there is anything to distribute.
func (p Penalty) HasShortfall() bool {
	return p.Minutes.IsPositive() || p.SMS > 0
}

// MinuteShortfall returns the plan-wide minute shortfall: the pooled
// allowance minus real usage, floored at zero.
// This is a PURE function.
func MinuteShortfall(p plan.Plan, cs []consumption.Consumption) money.Minutes {
	target := p.IncludedMin.MulCount(int64(len(cs)))
	real := money.Minutes{}
	for _, c := range cs {
		real = real.Add(c.Mins)
	}
	if short := target.Sub(real); short.IsPositive() {
		return short
	}
	return money.Minutes{}
}

// SMSShortfall returns the plan-wide SMS shortfall, floored at zero.
// This is a PURE function.
func SMSShortfall(p plan.Plan, cs []consumption.Consumption) int64 {
	target := p.IncludedSMS * int64(len(cs))
	var real int64
	for _, c := range cs {
		real += c.SMS
	}
	if short := target - real; short > 0 {
		return short
	}
	return 0
}

// DistributeMinutes assigns shortfall minutes across the consumptions,
// adding to each one's PenaltyMin. Only lines below the plan's minute
// allowance are eligible; lowest-usage groups are equalized upward first and
// the distributed total equals the shortfall exactly.
func DistributeMinutes(p plan.Plan, cs []*consumption.Consumption, shortfall money.Minutes) error {
	if shortfall.IsZero() {
		return nil
	}
	return distribute(
		p.IncludedMin.Decimal(),
		shortfall.Decimal(),
		-money.MinutePlaces,
		cs,
		func(c *consumption.Consumption) decimal.Decimal { return c.Mins.Decimal() },
		func(c *consumption.Consumption, share decimal.Decimal) {
			c.PenaltyMin = c.PenaltyMin.Add(money.MinutesFromDecimal(share))
		},
	)
}

// DistributeSMS assigns shortfall SMS units across the consumptions, adding
// to each one's PenaltySMS. Same rule as minutes, at whole-unit granularity.
func DistributeSMS(p plan.Plan, cs []*consumption.Consumption, shortfall int64) error {
	if shortfall <= 0 {
		return nil
	}
	return distribute(
		decimal.NewFromInt(p.IncludedSMS),
		decimal.NewFromInt(shortfall),
		0,
		cs,
		func(c *consumption.Consumption) decimal.Decimal { return decimal.NewFromInt(c.SMS) },
		func(c *consumption.Consumption, share decimal.Decimal) {
			c.PenaltySMS += share.IntPart()
		},
	)
}

// distribute runs the fair-distribution rule over one usage dimension.
//
// Eligible consumptions (usage strictly below the allowance) are grouped by
// exact usage, with a sentinel empty group at the allowance so the group
// keys tile the whole range. Walking adjacent key pairs (low, high)
// ascending, each low group can absorb gap*size before its members reach the
// high level; the absorbed amount is split exactly evenly, the group merges
// into the high group, and the walk continues until the remaining penalty is
// exhausted. Leftover penalty after the sentinel, or a non-positive gap,
// means the engine itself is broken and aborts with an IntegrityError.
func distribute(
	allowance, remaining decimal.Decimal,
	exp int32,
	cs []*consumption.Consumption,
	usage func(*consumption.Consumption) decimal.Decimal,
	addShare func(*consumption.Consumption, decimal.Decimal),
) error {
	groups := make(map[string][]*consumption.Consumption)
	var keys []decimal.Decimal
	for _, c := range cs {
		u := usage(c)
		if u.Cmp(allowance) >= 0 {
			continue // already at or above allowance, owes no share
		}
		k := u.String()
		if _, seen := groups[k]; !seen {
			keys = append(keys, u)
		}
		groups[k] = append(groups[k], c)
	}
	if len(keys) == 0 {
		return &billing.IntegrityError{
			Entity: "penalty",
			Key:    allowance.String(),
			Reason: "shortfall with no eligible consumptions",
		}
	}

	// Sentinel group at the allowance itself.
	keys = append(keys, allowance)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Cmp(keys[j]) < 0 })

	current := groups[keys[0].String()]
	for i := 0; i+1 < len(keys); i++ {
		low, high := keys[i], keys[i+1]
		gap := high.Sub(low)
		if !gap.IsPositive() {
			return &billing.IntegrityError{
				Entity: "penalty",
				Key:    low.String(),
				Reason: "non-positive gap between usage groups",
			}
		}

		capacity := gap.Mul(decimal.NewFromInt(int64(len(current))))
		toApply := capacity
		if remaining.Cmp(capacity) < 0 {
			toApply = remaining
		}

		for j, share := range money.SplitEven(toApply, len(current), exp) {
			addShare(current[j], share)
		}
		remaining = remaining.Sub(toApply)
		if remaining.IsZero() {
			return nil
		}

		// Group fully equalized to the high level; merge and continue.
		current = append(current, groups[high.String()]...)
	}

	return &billing.IntegrityError{
		Entity: "penalty",
		Key:    allowance.String(),
		Reason: remaining.String() + " left after equalizing every group to the allowance",
	}
}
