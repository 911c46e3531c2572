package eligibility

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equityProduct() Product {
	return Product{
		MinAmount:            d("100000"),
		MaxAmount:            d("10000000"),
		InterestRatePercent:  d("10.5"),
		MaxLTVPercent:        d("50"),
		MinTenureMonths:      6,
		MaxTenureMonths:      36,
		ProcessingFeePercent: d("1.5"),
		IsActive:             true,
	}
}

func singleLine() []Line {
	return []Line{{ISIN: "INF109K01Z48", UnitsPledged: d("1000"), CurrentPrice: d("150.25")}}
}

func assertKind(t *testing.T, err error, want *Error) *Error {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "want %s, got %v", want.Kind, err)
	var e *Error
	require.True(t, errors.As(err, &e))
	return e
}

func TestEvaluate_SingleLineAccepted(t *testing.T) {
	res, err := Evaluate(Input{
		RequestedAmount: d("75000"),
		TenureMonths:    12,
		Product:         equityProduct(),
		Lines:           singleLine(),
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "150250.00", res.TotalCollateralValue.StringFixed(2))
	assert.Equal(t, "75125.00", res.MaxByCollateral.StringFixed(2))
	assert.Equal(t, "75125.00", res.MaxEligibleAmount.StringFixed(2))
	assert.Equal(t, "49.9", res.CurrentLTVPercent.StringFixed(1))
}

func TestEvaluate_ExceedsCollateralEligibility(t *testing.T) {
	_, err := Evaluate(Input{
		RequestedAmount: d("80000"),
		TenureMonths:    12,
		Product:         equityProduct(),
		Lines:           singleLine(),
	})
	e := assertKind(t, err, ErrExceedsCollateralEligibility)
	assert.True(t, e.RequestedAmount.Equal(d("80000")))
	assert.True(t, e.MaxEligibleAmount.Equal(d("75125")))
	assert.Equal(t, "75125.00", e.Details()["max_eligible_amount"])
}

func TestEvaluate_TenureOutOfRange(t *testing.T) {
	_, err := Evaluate(Input{
		RequestedAmount: d("75000"),
		TenureMonths:    3,
		Product:         equityProduct(),
		Lines:           singleLine(),
	})
	e := assertKind(t, err, ErrTenureOutOfProductRange)
	assert.Equal(t, 3, e.TenureMonths)
	assert.Equal(t, 6, e.MinTenureMonths)
	assert.Equal(t, 36, e.MaxTenureMonths)
}

func TestEvaluate_EmptyCollateralWinsOverEverything(t *testing.T) {
	inactive := equityProduct()
	inactive.IsActive = false
	inactive.MaxLTVPercent = decimal.Zero

	_, err := Evaluate(Input{
		RequestedAmount: d("-1"),
		TenureMonths:    0,
		Product:         inactive,
	})
	assertKind(t, err, ErrNoCollateral)
}

func TestEvaluate_TwoLines(t *testing.T) {
	p := equityProduct()
	p.MinAmount = d("50000")
	p.MaxAmount = d("5000000")
	p.MaxLTVPercent = d("75")

	res, err := Evaluate(Input{
		RequestedAmount: d("50000"),
		TenureMonths:    12,
		Product:         p,
		Lines: []Line{
			{ISIN: "A", UnitsPledged: d("500"), CurrentPrice: d("100.00")},
			{ISIN: "B", UnitsPledged: d("500"), CurrentPrice: d("50.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "75000.00", res.TotalCollateralValue.StringFixed(2))
	assert.Equal(t, "56250.00", res.MaxByCollateral.StringFixed(2))
	assert.Equal(t, "66.7", res.CurrentLTVPercent.StringFixed(1))
}

func TestEvaluate_InvalidCollateralLineReportsIndex(t *testing.T) {
	lines := []Line{
		{ISIN: "A", UnitsPledged: d("10"), CurrentPrice: d("10")},
		{ISIN: "B", UnitsPledged: d("10"), CurrentPrice: d("0")},
	}
	_, err := Evaluate(Input{RequestedAmount: d("100000"), TenureMonths: 12, Product: equityProduct(), Lines: lines})
	e := assertKind(t, err, ErrInvalidCollateralLine)
	assert.Equal(t, 1, e.LineIndex)
	assert.Equal(t, "current_price", e.Field)

	lines[0].UnitsPledged = d("-0.0001")
	_, err = Evaluate(Input{RequestedAmount: d("100000"), TenureMonths: 12, Product: equityProduct(), Lines: lines})
	e = assertKind(t, err, ErrInvalidCollateralLine)
	assert.Equal(t, 0, e.LineIndex)
	assert.Equal(t, "units_pledged", e.Field)
}

func TestEvaluate_ProductInactive(t *testing.T) {
	p := equityProduct()
	p.IsActive = false
	_, err := Evaluate(Input{RequestedAmount: d("75000"), TenureMonths: 12, Product: p, Lines: singleLine()})
	assertKind(t, err, ErrProductInactive)
}

func TestEvaluate_InvalidProductConfiguration(t *testing.T) {
	cases := map[string]func(p *Product){
		"zero ltv":        func(p *Product) { p.MaxLTVPercent = decimal.Zero },
		"ltv above 100":   func(p *Product) { p.MaxLTVPercent = d("100.01") },
		"min above max":   func(p *Product) { p.MinAmount = d("20000000") },
		"tenure inverted": func(p *Product) { p.MinTenureMonths = 48 },
		"zero min tenure": func(p *Product) { p.MinTenureMonths = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := equityProduct()
			mutate(&p)
			_, err := Evaluate(Input{RequestedAmount: d("75000"), TenureMonths: 12, Product: p, Lines: singleLine()})
			e := assertKind(t, err, ErrInvalidProductConfiguration)
			assert.NotEmpty(t, e.Reason)
		})
	}
}

func TestEvaluate_AmountBoundsAreInclusive(t *testing.T) {
	p := equityProduct()
	// Plenty of collateral so only the product range matters.
	lines := []Line{{ISIN: "A", UnitsPledged: d("100000"), CurrentPrice: d("500")}}

	for _, amt := range []string{"100000", "10000000"} {
		res, err := Evaluate(Input{RequestedAmount: d(amt), TenureMonths: 12, Product: p, Lines: lines})
		require.NoError(t, err, amt)
		assert.True(t, res.Accepted)
	}

	for _, amt := range []string{"99999.99", "10000000.01"} {
		_, err := Evaluate(Input{RequestedAmount: d(amt), TenureMonths: 12, Product: p, Lines: lines})
		e := assertKind(t, err, ErrAmountOutOfProductRange)
		assert.Equal(t, "100000.00", e.Details()["min_amount"])
		assert.Equal(t, "10000000.00", e.Details()["max_amount"])
	}
}

func TestEvaluate_TenureBoundsAreInclusive(t *testing.T) {
	for _, tenure := range []int{6, 36} {
		_, err := Evaluate(Input{RequestedAmount: d("75000"), TenureMonths: tenure, Product: equityProduct(), Lines: singleLine()})
		require.NoError(t, err)
	}
	for _, tenure := range []int{5, 37} {
		_, err := Evaluate(Input{RequestedAmount: d("75000"), TenureMonths: tenure, Product: equityProduct(), Lines: singleLine()})
		assertKind(t, err, ErrTenureOutOfProductRange)
	}
}

func TestEvaluate_MaxEligibleCappedByProduct(t *testing.T) {
	p := equityProduct()
	p.MaxAmount = d("200000")
	lines := []Line{{ISIN: "A", UnitsPledged: d("10000"), CurrentPrice: d("100")}}

	res, err := Evaluate(Input{RequestedAmount: d("200000"), TenureMonths: 12, Product: p, Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, "500000.00", res.MaxByCollateral.StringFixed(2))
	assert.Equal(t, "200000.00", res.MaxEligibleAmount.StringFixed(2))
}

func TestEvaluate_RoundingNeverOverstatesEligibility(t *testing.T) {
	p := equityProduct()
	p.MinAmount = d("1")
	p.MaxLTVPercent = d("33.33")
	// 0.3333 × 1001.00 = 333.6333 → 333.63, never 333.64
	lines := []Line{{ISIN: "A", UnitsPledged: d("10.0100"), CurrentPrice: d("100.00")}}

	res, err := Evaluate(Input{RequestedAmount: d("333.63"), TenureMonths: 12, Product: p, Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, "333.63", res.MaxByCollateral.StringFixed(2))
	assert.True(t, res.MaxEligibleAmount.LessThanOrEqual(res.TotalCollateralValue.Mul(p.MaxLTVPercent).Div(d("100"))))

	_, err = Evaluate(Input{RequestedAmount: d("333.64"), TenureMonths: 12, Product: p, Lines: lines})
	assertKind(t, err, ErrExceedsCollateralEligibility)
}

func TestExposure_TotalRoundsHalfUp(t *testing.T) {
	// 0.0050 × 1.00 = 0.005 → 0.01
	lines := []Line{
		{ISIN: "A", UnitsPledged: d("0.0050"), CurrentPrice: d("1.00")},
	}
	res, err := Exposure(d("0"), lines)
	require.NoError(t, err)
	assert.Equal(t, "0.01", res.TotalCollateralValue.StringFixed(2))

	lines = []Line{{ISIN: "A", UnitsPledged: d("0.0049"), CurrentPrice: d("1.00")}}
	_, err = Exposure(d("0"), lines)
	assertKind(t, err, ErrZeroCollateralValue)
}

func TestEvaluate_ZeroCollateralValue(t *testing.T) {
	// 0.0049 × 1.00 = 0.0049 → 0.00
	lines := []Line{{ISIN: "A", UnitsPledged: d("0.0049"), CurrentPrice: d("1.00")}}
	_, err := Evaluate(Input{RequestedAmount: d("100000"), TenureMonths: 12, Product: equityProduct(), Lines: lines})
	assertKind(t, err, ErrZeroCollateralValue)

	// Product checks come first.
	inactive := equityProduct()
	inactive.IsActive = false
	_, err = Evaluate(Input{RequestedAmount: d("100000"), TenureMonths: 12, Product: inactive, Lines: lines})
	assertKind(t, err, ErrProductInactive)

	// Amount and tenure would fail too, but the zero total is reported.
	_, err = Evaluate(Input{RequestedAmount: d("1"), TenureMonths: 1, Product: equityProduct(), Lines: lines})
	assertKind(t, err, ErrZeroCollateralValue)
}

func TestEvaluate_Idempotent(t *testing.T) {
	in := Input{RequestedAmount: d("75000"), TenureMonths: 12, Product: equityProduct(), Lines: singleLine()}
	a, err := Evaluate(in)
	require.NoError(t, err)
	b, err := Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExposure_ReportsLTVWithoutProductChecks(t *testing.T) {
	res, err := Exposure(d("120000"), singleLine())
	require.NoError(t, err)
	assert.Equal(t, "150250.00", res.TotalCollateralValue.StringFixed(2))
	assert.Equal(t, "79.9", res.CurrentLTVPercent.StringFixed(1))

	_, err = Exposure(d("1"), nil)
	assertKind(t, err, ErrNoCollateral)
}

func TestError_IsComparesKindOnly(t *testing.T) {
	err := &Error{Kind: KindTenureOutOfProductRange, TenureMonths: 2}
	assert.True(t, errors.Is(err, ErrTenureOutOfProductRange))
	assert.False(t, errors.Is(err, ErrNoCollateral))
	assert.Contains(t, err.Error(), "Tenure must be between")
}
