// Package eligibility decides whether a collateral-backed loan request fits a
// product's terms and reports the loan-to-value ratio of the request.
//
// Everything here is a pure function of its inputs: no I/O, no shared state.
// Callers are expected to pass a consistent snapshot of product terms and
// collateral prices.
package eligibility

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product holds the terms the calculator reads from a loan product.
type Product struct {
	MinAmount            decimal.Decimal `json:"min_amount"`
	MaxAmount            decimal.Decimal `json:"max_amount"`
	InterestRatePercent  decimal.Decimal `json:"interest_rate_percent"`
	MaxLTVPercent        decimal.Decimal `json:"max_ltv_percent"`
	MinTenureMonths      int             `json:"min_tenure_months"`
	MaxTenureMonths      int             `json:"max_tenure_months"`
	ProcessingFeePercent decimal.Decimal `json:"processing_fee_percent"`
	IsActive             bool            `json:"is_active"`
}

// Line is one pledged mutual-fund holding.
type Line struct {
	ISIN         string
	UnitsPledged decimal.Decimal
	CurrentPrice decimal.Decimal
}

// Value is units × price, unrounded.
func (l Line) Value() decimal.Decimal {
	return l.UnitsPledged.Mul(l.CurrentPrice)
}

// Input is one evaluation request.
type Input struct {
	RequestedAmount decimal.Decimal
	TenureMonths    int
	Product         Product
	Lines           []Line
}

// Result is returned only when the request is accepted.
type Result struct {
	TotalCollateralValue decimal.Decimal `json:"total_collateral_value"`
	MaxByCollateral      decimal.Decimal `json:"max_by_collateral"`
	MaxEligibleAmount    decimal.Decimal `json:"max_eligible_amount"`
	CurrentLTVPercent    decimal.Decimal `json:"current_ltv_percent"`
	Accepted             bool            `json:"accepted"`
}

// ExposureResult is the collateral total and LTV of a principal, with no
// product checks applied.
type ExposureResult struct {
	TotalCollateralValue decimal.Decimal `json:"total_collateral_value"`
	CurrentLTVPercent    decimal.Decimal `json:"current_ltv_percent"`
}

// Evaluate runs the full eligibility check. It either returns a complete
// accepted Result or exactly one *Error.
func Evaluate(in Input) (*Result, error) {
	total, err := collateralTotal(in.Lines)
	if err != nil {
		return nil, err
	}

	p := in.Product
	if !p.IsActive {
		return nil, &Error{Kind: KindProductInactive}
	}
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}

	if !total.IsPositive() {
		return nil, &Error{Kind: KindZeroCollateralValue}
	}

	// Never round up: the eligible principal must not be overstated.
	maxByCollateral := total.Mul(p.MaxLTVPercent).Div(hundred).RoundDown(2)
	maxEligible := decimal.Min(maxByCollateral, p.MaxAmount)

	if in.RequestedAmount.LessThan(p.MinAmount) || in.RequestedAmount.GreaterThan(p.MaxAmount) {
		return nil, &Error{
			Kind:            KindAmountOutOfProductRange,
			RequestedAmount: in.RequestedAmount,
			MinAmount:       p.MinAmount,
			MaxAmount:       p.MaxAmount,
		}
	}
	if in.TenureMonths < p.MinTenureMonths || in.TenureMonths > p.MaxTenureMonths {
		return nil, &Error{
			Kind:            KindTenureOutOfProductRange,
			TenureMonths:    in.TenureMonths,
			MinTenureMonths: p.MinTenureMonths,
			MaxTenureMonths: p.MaxTenureMonths,
		}
	}
	if in.RequestedAmount.GreaterThan(maxEligible) {
		return nil, &Error{
			Kind:              KindExceedsCollateralEligibility,
			RequestedAmount:   in.RequestedAmount,
			MaxEligibleAmount: maxEligible,
		}
	}

	return &Result{
		TotalCollateralValue: total,
		MaxByCollateral:      maxByCollateral,
		MaxEligibleAmount:    maxEligible,
		CurrentLTVPercent:    ltvPercent(in.RequestedAmount, total),
		Accepted:             true,
	}, nil
}

// Exposure reports the collateral total and the LTV of principal against it.
// Used to re-price existing applications and outstanding loans.
func Exposure(principal decimal.Decimal, lines []Line) (*ExposureResult, error) {
	total, err := collateralTotal(lines)
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, &Error{Kind: KindZeroCollateralValue}
	}
	return &ExposureResult{
		TotalCollateralValue: total,
		CurrentLTVPercent:    ltvPercent(principal, total),
	}, nil
}

// ValidateProduct rejects reference data the calculator cannot use.
func ValidateProduct(p Product) error {
	switch {
	case !p.MaxLTVPercent.IsPositive():
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "max LTV must be greater than 0"}
	case p.MaxLTVPercent.GreaterThan(hundred):
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "max LTV cannot exceed 100"}
	case !p.MinAmount.IsPositive():
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "min amount must be greater than 0"}
	case p.MinAmount.GreaterThan(p.MaxAmount):
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "min amount exceeds max amount"}
	case p.MinTenureMonths <= 0:
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "min tenure must be greater than 0"}
	case p.MinTenureMonths > p.MaxTenureMonths:
		return &Error{Kind: KindInvalidProductConfiguration, Reason: "min tenure exceeds max tenure"}
	}
	return nil
}

// collateralTotal validates every line and returns Σ units×price rounded
// half-up to 2 places.
func collateralTotal(lines []Line) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, &Error{Kind: KindNoCollateral}
	}
	total := decimal.Zero
	for i, l := range lines {
		if !l.UnitsPledged.IsPositive() {
			return decimal.Zero, &Error{Kind: KindInvalidCollateralLine, LineIndex: i, Field: "units_pledged"}
		}
		if !l.CurrentPrice.IsPositive() {
			return decimal.Zero, &Error{Kind: KindInvalidCollateralLine, LineIndex: i, Field: "current_price"}
		}
		total = total.Add(l.Value())
	}
	return total.Round(2), nil
}

func ltvPercent(principal, total decimal.Decimal) decimal.Decimal {
	return principal.Mul(hundred).DivRound(total, 1)
}
