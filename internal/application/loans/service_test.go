package loans

import (
	"context"
	"sync"
	"testing"
	"time"

	"lamf-backend/internal/domain"
	"lamf-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var d = testutil.D

var disbursedAt = time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

func newService(db *gorm.DB) *Service {
	return &Service{DB: db, Now: func() time.Time { return disbursedAt }}
}

// approvedApplication stores a 5,00,000 / 12 month request backed by 10000
// units at 150.
func approvedApplication(t *testing.T, db *gorm.DB, status domain.ApplicationStatus) *domain.LoanApplication {
	t.Helper()
	p := testutil.EquityProduct(t, db)
	c := testutil.Customer(t, db, "ABCDE1234F", "rahul@example.com")
	app := &domain.LoanApplication{
		ApplicationNumber:    "APP-20260130-0000AAAA",
		CustomerID:           c.ID,
		ProductID:            p.ID,
		RequestedAmount:      d("500000"),
		TenureMonths:         12,
		Status:               status,
		TotalCollateralValue: d("1500000"),
		MaxEligibleAmount:    d("750000"),
		CurrentLTV:           d("33.3"),
	}
	require.NoError(t, app.SetTerms(p.Terms()))
	require.NoError(t, db.Create(app).Error)
	line := domain.Collateral{LoanApplicationID: &app.ID, FundName: "Bluechip", ISIN: "INF109K01Z48", AMCName: "ICICI", FolioNumber: "F1", UnitsPledged: d("10000"), LienStatus: domain.LienMarked}
	line.Reprice(d("150"))
	require.NoError(t, db.Create(&line).Error)
	return app
}

func disburse(t *testing.T, db *gorm.DB) *domain.Loan {
	t.Helper()
	app := approvedApplication(t, db, domain.ApplicationApproved)
	loan, err := newService(db).Disburse(context.Background(), app.ID, DisburseInput{})
	require.NoError(t, err)
	return loan
}

func TestDisburse(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	app := approvedApplication(t, db, domain.ApplicationApproved)

	// Catalog edits after approval do not change the loan terms.
	require.NoError(t, db.Model(&domain.LoanProduct{}).Where("id = ?", app.ProductID).Update("interest_rate", d("14")).Error)

	method := "neft"
	loan, err := svc.Disburse(context.Background(), app.ID, DisburseInput{PaymentMethod: &method})
	require.NoError(t, err)

	assert.Regexp(t, `^LN-20260131-[0-9A-F]{8}$`, loan.LoanNumber)
	assert.Equal(t, "500000.00", loan.SanctionedAmount.StringFixed(2))
	assert.Equal(t, "500000.00", loan.OutstandingPrincipal.StringFixed(2))
	assert.Equal(t, "10.50", loan.InterestRate.StringFixed(2))
	assert.Equal(t, "44074.30", loan.EMIAmount.StringFixed(2))
	assert.Equal(t, domain.LoanActive, loan.Status)
	require.NotNil(t, loan.MaturityDate)
	assert.Equal(t, disbursedAt.AddDate(0, 12, 0), *loan.MaturityDate)

	var stored domain.LoanApplication
	require.NoError(t, db.Where("id = ?", app.ID).First(&stored).Error)
	assert.Equal(t, domain.ApplicationDisbursed, stored.Status)

	var lines []domain.Collateral
	require.NoError(t, db.Where("loan_id = ?", loan.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0].LoanApplicationID)

	var txns []domain.Transaction
	require.NoError(t, db.Where("loan_id = ?", loan.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, domain.TxDisbursement, txns[0].Type)

	var ev domain.ApplicationEvent
	require.NoError(t, db.Where("application_id = ? AND event_type = ?", app.ID, domain.EventDisbursed).First(&ev).Error)

	_, err = svc.Disburse(context.Background(), app.ID, DisburseInput{})
	assert.ErrorIs(t, err, ErrApplicationNotApproved)
}

func TestDisburse_Refusals(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	pending := approvedApplication(t, db, domain.ApplicationPending)

	_, err := svc.Disburse(context.Background(), pending.ID, DisburseInput{})
	assert.ErrorIs(t, err, ErrApplicationNotApproved)

	_, err = svc.Disburse(context.Background(), uuid.New(), DisburseInput{})
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	bad := "bitcoin"
	_, err = svc.Disburse(context.Background(), pending.ID, DisburseInput{PaymentMethod: &bad})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	var n int64
	db.Model(&domain.Loan{}).Count(&n)
	assert.Zero(t, n)
}

// afterRead runs write once, inside the caller's transaction, right after
// the first read of table. It stands in for a competing request that
// commits between a service's read and its write.
func afterRead(t *testing.T, db *gorm.DB, table string, write func(tx *gorm.DB)) {
	t.Helper()
	var once sync.Once
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:after_read_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() { write(tx.Session(&gorm.Session{NewDB: true})) })
	}))
}

func TestDisburse_StaleApprovalCreatesNoLoan(t *testing.T) {
	db := testutil.NewDB(t)
	app := approvedApplication(t, db, domain.ApplicationApproved)
	afterRead(t, db, "loan_applications", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE loan_applications SET status = ? WHERE id = ?", domain.ApplicationDisbursed, app.ID).Error)
	})

	_, err := newService(db).Disburse(context.Background(), app.ID, DisburseInput{})
	assert.ErrorIs(t, err, ErrApplicationNotApproved)

	for _, model := range []interface{}{&domain.Loan{}, &domain.Transaction{}, &domain.ApplicationEvent{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
	var n int64
	require.NoError(t, db.Model(&domain.Collateral{}).Where("loan_application_id = ?", app.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRecordTransaction_StaleBalanceIsNotOverdrawn(t *testing.T) {
	db := testutil.NewDB(t)
	loan := disburse(t, db)
	// A 4,00,000 repayment lands after the balance was read.
	afterRead(t, db, "loans", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE loans SET outstanding_principal = ? WHERE id = ?", d("100000"), loan.ID).Error)
	})

	_, err := newService(db).RecordTransaction(context.Background(), loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("300000")})
	assert.ErrorIs(t, err, ErrOverpayment)

	// The refused payment rolls back with everything else in its transaction.
	var stored domain.Loan
	require.NoError(t, db.Where("id = ?", loan.ID).First(&stored).Error)
	assert.Equal(t, "500000.00", stored.OutstandingPrincipal.StringFixed(2))
	assert.Equal(t, domain.LoanActive, stored.Status)

	var n int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("loan_id = ? AND type = ?", loan.ID, domain.TxPrincipalRepayment).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRecordTransaction_DecrementsCurrentBalance(t *testing.T) {
	db := testutil.NewDB(t)
	loan := disburse(t, db)
	afterRead(t, db, "loans", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE loans SET outstanding_principal = ? WHERE id = ?", d("400000"), loan.ID).Error)
	})

	_, err := newService(db).RecordTransaction(context.Background(), loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("150000")})
	require.NoError(t, err)

	var stored domain.Loan
	require.NoError(t, db.Where("id = ?", loan.ID).First(&stored).Error)
	assert.Equal(t, "250000.00", stored.OutstandingPrincipal.StringFixed(2))
}

func TestGet_IncludesExposure(t *testing.T) {
	db := testutil.NewDB(t)
	loan := disburse(t, db)

	detail, err := newService(db).Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Exposure)
	assert.Equal(t, "1500000.00", detail.Exposure.TotalCollateralValue.StringFixed(2))
	assert.Equal(t, "33.3", detail.Exposure.CurrentLTVPercent.StringFixed(1))
	assert.Len(t, detail.Collaterals, 1)
	assert.Len(t, detail.Transactions, 1)

	_, err = newService(db).Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestRecordTransaction_RepaysAndCloses(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	method := "upi"
	txn, err := svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("200000"), PaymentMethod: &method})
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-`, txn.TransactionNumber)

	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("300000.01")})
	assert.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "interest_payment", Amount: d("1")})
	assert.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("300000")})
	require.NoError(t, err)

	detail, err := svc.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, detail.OutstandingPrincipal.IsZero())
	assert.Equal(t, domain.LoanClosed, detail.Status)
	assert.NotNil(t, detail.LastPaymentAt)

	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("1")})
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestRecordTransaction_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "disbursement", Amount: d("1")})
	assert.ErrorIs(t, err, ErrInvalidTransactionType)
	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	bad := "paypal"
	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "principal_repayment", Amount: d("1"), PaymentMethod: &bad})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	_, err = svc.RecordTransaction(ctx, uuid.New(), TransactionInput{Type: "principal_repayment", Amount: d("1")})
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestAccrueInterest_ThenPay(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	// 5,00,000 × 10.5% × 30 / 365 = 4315.07
	accrued, err := svc.AccrueInterest(ctx, loan.ID, disbursedAt.Add(30*24*time.Hour+time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "4315.07", accrued.OutstandingInterest.StringFixed(2))

	again, err := svc.AccrueInterest(ctx, loan.ID, disbursedAt.Add(30*24*time.Hour+2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "4315.07", again.OutstandingInterest.StringFixed(2))

	_, err = svc.RecordTransaction(ctx, loan.ID, TransactionInput{Type: "interest_payment", Amount: d("4315.07")})
	require.NoError(t, err)

	detail, err := svc.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, detail.OutstandingInterest.IsZero())
	assert.Equal(t, domain.LoanActive, detail.Status)
}

func TestLTVReport(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	rows, err := svc.LTVReport(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, loan.ID, rows[0].LoanID)
	assert.False(t, rows[0].AboveMaxLTV)

	// NAV falls to 90: 5,00,000 / 9,00,000 = 55.6% against a 50% cap.
	require.NoError(t, db.Model(&domain.Collateral{}).Where("loan_id = ?", loan.ID).
		Updates(map[string]interface{}{"current_nav": d("90"), "current_value": d("900000")}).Error)
	rows, err = svc.LTVReport(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "55.6", rows[0].CurrentLTV.StringFixed(1))
	assert.True(t, rows[0].AboveMaxLTV)

	var stored domain.Loan
	require.NoError(t, db.Where("id = ?", loan.ID).First(&stored).Error)
	assert.Equal(t, domain.LoanActive, stored.Status)
}

func TestUpdateStatus(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, loan.ID, "closed")
	assert.ErrorIs(t, err, ErrOutstandingBalance)
	_, err = svc.UpdateStatus(ctx, loan.ID, "margin_call")
	assert.ErrorIs(t, err, ErrInvalidLoanStatus)

	l, err := svc.UpdateStatus(ctx, loan.ID, "defaulted")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanDefaulted, l.Status)

	_, err = svc.UpdateStatus(ctx, loan.ID, "active")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestList(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	loan := disburse(t, db)
	ctx := context.Background()

	active, err := svc.List(ctx, domain.LoanActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = svc.UpdateStatus(ctx, loan.ID, "defaulted")
	require.NoError(t, err)
	active, err = svc.List(ctx, domain.LoanActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
