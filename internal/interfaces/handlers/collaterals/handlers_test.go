package collaterals

import (
	"context"
	"testing"

	colsvc "lamf-backend/internal/application/collaterals"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/infrastructure/cache"
	"lamf-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*fiber.App, *gorm.DB, *cache.NAVCache) {
	db := testutil.NewDB(t)
	navCache, _ := testutil.NewNAVCache(t)
	h := &Handlers{Service: &colsvc.Service{DB: db, NAV: navCache}}
	app := fiber.New()
	app.Get("/collaterals", h.List)
	app.Post("/collaterals/nav-refresh", h.RefreshNAV)
	app.Get("/collaterals/:id", h.Get)
	app.Patch("/collaterals/:id/nav", h.UpdateNAV)
	app.Post("/collaterals/:id/lien", h.MarkLien)
	app.Post("/collaterals/:id/release", h.ReleaseLien)
	app.Delete("/collaterals/:id", h.Delete)
	return app, db, navCache
}

// pending application for 5,00,000 backed by two lines worth 10,00,000 and 5,00,000.
func seed(t *testing.T, db *gorm.DB) (*domain.LoanApplication, []domain.Collateral) {
	t.Helper()
	p := testutil.EquityProduct(t, db)
	c := testutil.Customer(t, db, "ABCDE1234F", "rahul@example.com")
	a := &domain.LoanApplication{
		ApplicationNumber:    "APP-20260101-00000001",
		CustomerID:           c.ID,
		ProductID:            p.ID,
		RequestedAmount:      testutil.D("500000"),
		TenureMonths:         12,
		Status:               domain.ApplicationPending,
		TotalCollateralValue: testutil.D("1500000"),
		MaxEligibleAmount:    testutil.D("750000"),
		CurrentLTV:           testutil.D("33.3"),
	}
	require.NoError(t, a.SetTerms(p.Terms()))
	require.NoError(t, db.Create(a).Error)
	lines := []domain.Collateral{
		{LoanApplicationID: &a.ID, Position: 0, FundName: "Bluechip", ISIN: "INF109K01Z48", AMCName: "ICICI", FolioNumber: "F1", UnitsPledged: testutil.D("10000"), LienStatus: domain.LienPending},
		{LoanApplicationID: &a.ID, Position: 1, FundName: "Liquid", ISIN: "INF179K01VK4", AMCName: "HDFC", FolioNumber: "F2", UnitsPledged: testutil.D("5000"), LienStatus: domain.LienPending},
	}
	for i := range lines {
		lines[i].Reprice(testutil.D("100"))
	}
	require.NoError(t, db.Create(&lines).Error)
	return a, lines
}

func TestRefreshNAV(t *testing.T) {
	app, db, navCache := setup(t)
	a, _ := seed(t, db)

	code, body := testutil.Do(t, app, "POST", "/collaterals/nav-refresh", map[string]string{"isin": "inf109k01z48", "nav": "50"})
	require.Equal(t, 200, code, body)
	res := testutil.Data(body)
	assert.EqualValues(t, 1, res["collaterals_updated"])
	assert.EqualValues(t, 1, res["applications_updated"])

	var stored domain.LoanApplication
	require.NoError(t, db.Where("id = ?", a.ID).First(&stored).Error)
	assert.Equal(t, "1000000.00", stored.TotalCollateralValue.StringFixed(2))
	assert.Equal(t, "50.0", stored.CurrentLTV.StringFixed(1))

	nav, err := navCache.GetNAV(context.Background(), "INF109K01Z48")
	require.NoError(t, err)
	assert.Equal(t, "50.00", nav.StringFixed(2))

	code, _ = testutil.Do(t, app, "POST", "/collaterals/nav-refresh", map[string]string{"isin": "BAD", "nav": "50"})
	assert.Equal(t, 400, code)
}

func TestLienAndDelete(t *testing.T) {
	app, db, _ := setup(t)
	a, lines := seed(t, db)
	first, second := lines[0].ID.String(), lines[1].ID.String()

	code, _ := testutil.Do(t, app, "POST", "/collaterals/"+first+"/lien", map[string]string{"reference": ""})
	assert.Equal(t, 400, code)

	code, body := testutil.Do(t, app, "POST", "/collaterals/"+first+"/lien", map[string]string{"reference": "CAMS-LIEN-001"})
	require.Equal(t, 200, code)
	assert.Equal(t, "marked", testutil.Data(body)["lien_status"])

	code, _ = testutil.Do(t, app, "DELETE", "/collaterals/"+first, nil)
	assert.Equal(t, 409, code)

	code, _ = testutil.Do(t, app, "POST", "/collaterals/"+second+"/release", nil)
	assert.Equal(t, 409, code)

	code, _ = testutil.Do(t, app, "POST", "/collaterals/"+first+"/release", nil)
	assert.Equal(t, 200, code)

	code, _ = testutil.Do(t, app, "DELETE", "/collaterals/"+second, nil)
	assert.Equal(t, 200, code)

	code, body = testutil.Do(t, app, "GET", "/collaterals?loan_application_id="+a.ID.String(), nil)
	require.Equal(t, 200, code)
	assert.EqualValues(t, 1, body["metadata"].(map[string]interface{})["count"])
}

func TestUpdateNAVAndGet(t *testing.T) {
	app, db, _ := setup(t)
	_, lines := seed(t, db)
	id := lines[0].ID.String()

	code, _ := testutil.Do(t, app, "PATCH", "/collaterals/"+id+"/nav", map[string]string{"nav": "0"})
	assert.Equal(t, 400, code)

	code, body := testutil.Do(t, app, "PATCH", "/collaterals/"+id+"/nav", map[string]string{"nav": "120.5"})
	require.Equal(t, 200, code)
	assert.Equal(t, "1205000", testutil.Data(body)["current_value"])

	code, _ = testutil.Do(t, app, "GET", "/collaterals/6f1c2a9e-1b7d-4c55-9a7e-2f6d3f0a8b11", nil)
	assert.Equal(t, 404, code)

	code, _ = testutil.Do(t, app, "GET", "/collaterals?loan_id=nope", nil)
	assert.Equal(t, 400, code)
}
