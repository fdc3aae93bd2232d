package money

import "github.com/shopspring/decimal"

// SplitEven divides total into n shares at a granularity of 10^exp
// (exp -2 for minutes, 0 for SMS units). Each share is the truncated even
// split; the leftover quanta are dealt out one at a time starting from the
// first share, so the shares always sum to total exactly. total must be a
// multiple of the quantum and n must be positive.
func SplitEven(total decimal.Decimal, n int, exp int32) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	places := -exp
	base := total.Div(decimal.NewFromInt(int64(n))).Truncate(places)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
	}

	quantum := decimal.New(1, exp)
	leftover := total.Sub(base.Mul(decimal.NewFromInt(int64(n))))
	// leftover is a whole number of quanta strictly less than n of them.
	extra := leftover.Div(quantum).IntPart()
	for i := int64(0); i < extra && i < int64(n); i++ {
		shares[i] = shares[i].Add(quantum)
	}
	return shares
}
