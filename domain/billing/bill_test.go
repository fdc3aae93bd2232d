package billing_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/money"
)

func TestBillTaxes(t *testing.T) {
	b := billing.Bill{
		InternalTax: money.MustTax("0.0417"),
		IvaTax:      money.MustTax("0.27"),
		OtherTax:    money.MustTax("0.01"),
	}

	want := money.MustTax("0.3217")
	if got := b.Taxes(); !got.Equal(want) {
		t.Errorf("Taxes() = %s, want %s", got, want)
	}
}

func TestBillParsed(t *testing.T) {
	var b billing.Bill
	if b.Parsed() {
		t.Error("empty bill reports parsed")
	}

	now := time.Now()
	b.ParsingDate = &now
	if !b.Parsed() {
		t.Error("bill with parsing date reports unparsed")
	}
}

func TestErrorKinds(t *testing.T) {
	parseErr := fmt.Errorf("ingest: %w", billing.Parsef("phone %s does not exist", "123"))
	var pe *billing.ParseError
	if !errors.As(parseErr, &pe) {
		t.Fatal("errors.As failed for wrapped ParseError")
	}
	if pe.Reason != "phone 123 does not exist" {
		t.Errorf("Reason = %q", pe.Reason)
	}

	adjErr := fmt.Errorf("settle: %w", &billing.AdjustmentError{Reason: "bill must be parsed first"})
	var ae *billing.AdjustmentError
	if !errors.As(adjErr, &ae) {
		t.Fatal("errors.As failed for wrapped AdjustmentError")
	}

	intErr := error(&billing.IntegrityError{Entity: "consumption", Key: "phone-1/bill-1"})
	var ie *billing.IntegrityError
	if !errors.As(intErr, &ie) {
		t.Fatal("errors.As failed for IntegrityError")
	}
	if ie.Error() != "integrity: duplicate consumption phone-1/bill-1" {
		t.Errorf("Error() = %q", ie.Error())
	}
}
