package eligibility

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies why an evaluation was rejected.
type Kind string

const (
	KindProductInactive              Kind = "product_inactive"
	KindNoCollateral                 Kind = "no_collateral"
	KindInvalidCollateralLine        Kind = "invalid_collateral_line"
	KindZeroCollateralValue          Kind = "zero_collateral_value"
	KindAmountOutOfProductRange      Kind = "amount_out_of_product_range"
	KindTenureOutOfProductRange      Kind = "tenure_out_of_product_range"
	KindExceedsCollateralEligibility Kind = "exceeds_collateral_eligibility"
	KindInvalidProductConfiguration  Kind = "invalid_product_configuration"
)

// Error is the single rejection type returned by Evaluate and Exposure.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind Kind

	// InvalidCollateralLine
	LineIndex int
	Field     string

	// AmountOutOfProductRange, ExceedsCollateralEligibility
	RequestedAmount   decimal.Decimal
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	MaxEligibleAmount decimal.Decimal

	// TenureOutOfProductRange
	TenureMonths    int
	MinTenureMonths int
	MaxTenureMonths int

	// InvalidProductConfiguration
	Reason string
}

// Sentinels for errors.Is; comparison is by Kind only.
var (
	ErrProductInactive              = &Error{Kind: KindProductInactive}
	ErrNoCollateral                 = &Error{Kind: KindNoCollateral}
	ErrInvalidCollateralLine        = &Error{Kind: KindInvalidCollateralLine}
	ErrZeroCollateralValue          = &Error{Kind: KindZeroCollateralValue}
	ErrAmountOutOfProductRange      = &Error{Kind: KindAmountOutOfProductRange}
	ErrTenureOutOfProductRange      = &Error{Kind: KindTenureOutOfProductRange}
	ErrExceedsCollateralEligibility = &Error{Kind: KindExceedsCollateralEligibility}
	ErrInvalidProductConfiguration  = &Error{Kind: KindInvalidProductConfiguration}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindProductInactive:
		return "Loan product is not active"
	case KindNoCollateral:
		return "At least one collateral line is required"
	case KindInvalidCollateralLine:
		return fmt.Sprintf("Collateral line %d has a non-positive %s", e.LineIndex, e.Field)
	case KindZeroCollateralValue:
		return "Total collateral value must be greater than zero"
	case KindAmountOutOfProductRange:
		return fmt.Sprintf("Loan amount must be between %s and %s", e.MinAmount.StringFixed(2), e.MaxAmount.StringFixed(2))
	case KindTenureOutOfProductRange:
		return fmt.Sprintf("Tenure must be between %d and %d months", e.MinTenureMonths, e.MaxTenureMonths)
	case KindExceedsCollateralEligibility:
		return fmt.Sprintf("Requested amount exceeds maximum eligible amount of %s", e.MaxEligibleAmount.StringFixed(2))
	case KindInvalidProductConfiguration:
		return "Invalid loan product configuration: " + e.Reason
	}
	return string(e.Kind)
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Details returns the structured fields for the API error envelope.
func (e *Error) Details() map[string]interface{} {
	d := map[string]interface{}{"kind": e.Kind}
	switch e.Kind {
	case KindInvalidCollateralLine:
		d["line_index"] = e.LineIndex
		d["field"] = e.Field
	case KindAmountOutOfProductRange:
		d["requested_amount"] = e.RequestedAmount.StringFixed(2)
		d["min_amount"] = e.MinAmount.StringFixed(2)
		d["max_amount"] = e.MaxAmount.StringFixed(2)
	case KindTenureOutOfProductRange:
		d["tenure_months"] = e.TenureMonths
		d["min_tenure_months"] = e.MinTenureMonths
		d["max_tenure_months"] = e.MaxTenureMonths
	case KindExceedsCollateralEligibility:
		d["requested_amount"] = e.RequestedAmount.StringFixed(2)
		d["max_eligible_amount"] = e.MaxEligibleAmount.StringFixed(2)
	case KindInvalidProductConfiguration:
		d["reason"] = e.Reason
	}
	return d
}
