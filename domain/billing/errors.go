package billing

import "fmt"

// ParseError means an invoice could not be turned into consumption records:
// malformed input, or a referenced phone or plan missing from reference data.
// Ingestion is all-or-nothing; a ParseError leaves the bill unparsed with no
// consumptions created.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse invoice: %s: %v", e.Reason, e.Err)
	}
	return "parse invoice: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parsef builds a ParseError with a formatted reason.
func Parsef(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// AdjustmentError means penalties were requested for a bill that is not in a
// state to receive them (not yet parsed). Nothing is mutated.
type AdjustmentError struct {
	Reason string
}

func (e *AdjustmentError) Error() string {
	return "adjust bill: " + e.Reason
}

// IntegrityError marks a violated data invariant: a duplicate (phone, bill)
// consumption, a duplicate (bill, plan) penalty, or an internally
// inconsistent distribution state. These are programming or data errors, not
// user errors, and are never silently absorbed.
type IntegrityError struct {
	Entity string
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("integrity: %s %s: %s", e.Entity, e.Key, e.Reason)
	}
	return fmt.Sprintf("integrity: duplicate %s %s", e.Entity, e.Key)
}
