// Package consumption provides the billable record for a phone line within a
// bill and the pure computation that produces its totals.
package consumption

import (
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/plan"
)

// Line holds the raw reported fields of one invoice line, exactly as the
// parsing collaborator extracted them from the carrier invoice.
type Line struct {
	ReportedUser     string        `json:"reported_user"`
	ReportedPlan     string        `json:"reported_plan"`
	MonthlyPrice     money.Money   `json:"monthly_price"`
	Services         money.Money   `json:"services"`
	Refunds          money.Money   `json:"refunds"`
	IncludedMin      money.Minutes `json:"included_min"`
	ExceededMin      money.Minutes `json:"exceeded_min"`
	ExceededMinPrice money.Money   `json:"exceeded_min_price"`
	NDLMin           money.Minutes `json:"ndl_min"`
	NDLMinPrice      money.Money   `json:"ndl_min_price"`
	IDLMin           money.Minutes `json:"idl_min"`
	IDLMinPrice      money.Money   `json:"idl_min_price"`
	SMS              int64         `json:"sms"`
	SMSPrice         money.Money   `json:"sms_price"`
	EquipmentPrice   money.Money   `json:"equipment_price"`
	OtherPrice       money.Money   `json:"other_price"`
	ReportedTotal    money.Money   `json:"reported_total"`
}

// Totals are the derived fields of a consumption. They are outputs of
// Compute only and are never set directly.
type Totals struct {
	Mins             money.Minutes // included + exceeded, before penalty
	TotalBeforeTaxes money.Money
	Taxes            money.Tax
	TotalBeforeRound money.Money
	Total            money.Money // final rounded billable amount
}

// Consumption is the billable record for one (phone, bill) pair. PlanName
// references the plan the line was billed under at computation time; lines
// may switch plans between bills.
type Consumption struct {
	ID       string
	PhoneID  string
	BillID   string
	PlanName string

	Line

	PenaltyMin money.Minutes
	PenaltySMS int64
	Extra      money.Money // manual adjustment, added before rounding

	Totals

	Payed bool
}

// Compute derives a consumption's totals from its raw line, the plan it was
// billed under, the bill's aggregate tax ratio and the current penalty and
// extra values. It is a PURE function, re-applied whenever a penalty field
// or the extra adjustment changes.
//
// With minute clearing the carrier's mixed-rate total is not trusted: the
// flat monthly price is stripped out and every used minute, penalty minutes
// included, is re-priced at the plan's per-minute rate. With SMS clearing on
// top, every SMS is re-priced the same way; when the plan ended up with no
// SMS penalty all SMS were within the pooled allowance, so the carrier's
// reported SMS charge is subtracted to avoid double-charging. Without minute
// clearing the line owes the flat monthly price, nothing else.
func Compute(line Line, p plan.Plan, taxes money.Tax, penaltyMin money.Minutes, penaltySMS int64, extra money.Money) Totals {
	mins := line.IncludedMin.Add(line.ExceededMin)

	var total money.Money
	if p.WithMinClearing {
		total = line.ReportedTotal.Sub(p.MonthlyPrice)
		total = total.Add(p.PricePerMin.MulMinutes(mins.Add(penaltyMin)))
		if p.WithSMSClearing {
			total = total.Add(p.PricePerSMS.MulCount(line.SMS + penaltySMS))
			if penaltySMS == 0 {
				total = total.Sub(line.SMSPrice)
			}
		}
	} else {
		total = p.MonthlyPrice
	}

	beforeRound := total.WithTaxes(taxes).Add(extra)

	return Totals{
		Mins:             mins,
		TotalBeforeTaxes: total,
		Taxes:            taxes,
		TotalBeforeRound: beforeRound,
		Total:            beforeRound.RoundToUnit(),
	}
}

// Recompute refreshes c's derived totals in place.
func (c *Consumption) Recompute(p plan.Plan, taxes money.Tax) {
	c.Totals = Compute(c.Line, p, taxes, c.PenaltyMin, c.PenaltySMS, c.Extra)
}
