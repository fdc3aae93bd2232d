// Package billing provides the bill and fleet value types and the closed
// error set of the settlement engine.
package billing

import (
	"time"

	"github.com/artpar/fleetbill/domain/money"
)

// Fleet is a group of phone lines billed together by one carrier account.
type Fleet struct {
	ID            string
	Provider      string
	AccountNumber int64
	Email         string
}

// Bill is one carrier invoice for a fleet and billing period. A bill is
// created empty, populated exactly once when the parsed invoice is ingested
// (ParsingDate set, one-way), and may have its penalties recalculated any
// number of times afterwards.
type Bill struct {
	ID             string
	FleetID        string
	BillingDate    time.Time
	UploadDate     time.Time
	ParsingDate    *time.Time
	ProviderNumber string

	InternalTax money.Tax
	IvaTax      money.Tax
	OtherTax    money.Tax

	ReportedTotal money.Money
	ReportedDebt  money.Money
}

// Taxes returns the bill's aggregate tax ratio, the sum of its components.
func (b Bill) Taxes() money.Tax {
	return b.InternalTax.Add(b.IvaTax).Add(b.OtherTax)
}

// Parsed reports whether the bill's invoice has been ingested.
func (b Bill) Parsed() bool {
	return b.ParsingDate != nil
}
