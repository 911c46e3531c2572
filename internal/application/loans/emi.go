package loans

import (
	"github.com/shopspring/decimal"
)

var monthlyRateDivisor = decimal.NewFromInt(1200)

// EMI returns the equated monthly instalment for principal over tenure months
// at an annual rate in percent, rounded half-up to paise. A zero rate splits
// the principal evenly.
func EMI(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	if tenureMonths <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(tenureMonths))
	if !annualRatePercent.IsPositive() {
		return principal.DivRound(n, 2)
	}
	r := annualRatePercent.DivRound(monthlyRateDivisor, 16)
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	num := principal.Mul(r).Mul(growth)
	den := growth.Sub(decimal.NewFromInt(1))
	return num.DivRound(den, 2)
}
