package loans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lamf-backend/internal/application/eligibility"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/pkg/numbering"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrLoanNotFound           = errors.New("Loan not found")
	ErrApplicationNotFound    = errors.New("Loan application not found")
	ErrApplicationNotApproved = errors.New("Only approved applications can be disbursed")
	ErrLoanNotActive          = errors.New("Loan is not active")
	ErrInvalidLoanStatus      = errors.New("Invalid loan status")
	ErrOutstandingBalance     = errors.New("Loan cannot be closed with an outstanding balance")
	ErrInvalidTransactionType = errors.New("Transaction type must be principal_repayment or interest_payment")
	ErrInvalidAmount          = errors.New("Amount must be greater than zero")
	ErrInvalidPaymentMethod   = errors.New("Invalid payment method")
	ErrOverpayment            = errors.New("Payment exceeds the outstanding amount")
)

var daysPerYear = decimal.NewFromInt(365)

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

type DisburseInput struct {
	PaymentMethod   *string `json:"payment_method"`
	ReferenceNumber *string `json:"reference_number"`
}

type TransactionInput struct {
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description"`
	TransactionDate *time.Time      `json:"transaction_date"`
	PaymentMethod   *string         `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number"`
}

// LoanDetail is a loan with the current exposure of its outstanding principal.
type LoanDetail struct {
	domain.Loan
	Exposure *eligibility.ExposureResult `json:"exposure"`
}

// LTVRow is one line of the portfolio LTV report.
type LTVRow struct {
	LoanID               uuid.UUID       `json:"loan_id"`
	LoanNumber           string          `json:"loan_number"`
	CustomerID           uuid.UUID       `json:"customer_id"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	TotalCollateralValue decimal.Decimal `json:"total_collateral_value"`
	CurrentLTV           decimal.Decimal `json:"current_ltv"`
	MaxLTV               decimal.Decimal `json:"max_ltv"`
	AboveMaxLTV          bool            `json:"above_max_ltv"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validPaymentMethod(m *string) bool {
	return m == nil || *m == "" || domain.IsValidPaymentMethod(*m)
}

// Disburse turns an approved application into an active loan. The loan takes
// over the application's collateral and the terms frozen at intake.
func (s *Service) Disburse(ctx context.Context, appID uuid.UUID, in DisburseInput) (*domain.Loan, error) {
	if !validPaymentMethod(in.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	var loan *domain.Loan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app domain.LoanApplication
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Collaterals", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).Where("id = ?", appID).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}
		if app.Status != domain.ApplicationApproved {
			return ErrApplicationNotApproved
		}
		next, err := app.Status.Transition(domain.ApplicationDisbursed)
		if err != nil {
			return err
		}
		// Claim the application before anything else is written; a
		// concurrent disbursement that committed first leaves no row to match.
		claim := tx.Model(&domain.LoanApplication{}).
			Where("id = ? AND status = ?", app.ID, domain.ApplicationApproved).
			Update("status", next)
		if claim.Error != nil {
			return fmt.Errorf("Failed to update loan application: %v", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrApplicationNotApproved
		}
		terms, err := app.Terms()
		if err != nil {
			return fmt.Errorf("Failed to read product snapshot: %v", err)
		}

		now := s.now()
		maturity := now.AddDate(0, app.TenureMonths, 0)
		loan = &domain.Loan{
			LoanNumber:           numbering.Loan(now),
			ApplicationID:        app.ID,
			CustomerID:           app.CustomerID,
			ProductID:            app.ProductID,
			SanctionedAmount:     app.RequestedAmount,
			OutstandingPrincipal: app.RequestedAmount,
			OutstandingInterest:  decimal.Zero,
			InterestRate:         terms.InterestRatePercent,
			MaxLTV:               terms.MaxLTVPercent,
			TenureMonths:         app.TenureMonths,
			EMIAmount:            EMI(app.RequestedAmount, terms.InterestRatePercent, app.TenureMonths),
			DisbursedAt:          &now,
			MaturityDate:         &maturity,
			InterestAccruedTo:    &now,
			Status:               domain.LoanActive,
		}
		if err := tx.Omit("Customer", "Product", "Collaterals", "Transactions").Create(loan).Error; err != nil {
			return fmt.Errorf("Failed to create loan: %v", err)
		}
		if len(app.Collaterals) > 0 {
			if err := tx.Model(&domain.Collateral{}).Where("loan_application_id = ?", app.ID).Updates(map[string]interface{}{
				"loan_id":             loan.ID,
				"loan_application_id": nil,
			}).Error; err != nil {
				return fmt.Errorf("Failed to transfer collaterals: %v", err)
			}
		}
		desc := "Loan disbursement for " + app.ApplicationNumber
		if err := tx.Create(&domain.Transaction{
			TransactionNumber: numbering.Transaction(now),
			LoanID:            loan.ID,
			Type:              domain.TxDisbursement,
			Amount:            loan.SanctionedAmount,
			Description:       &desc,
			TransactionDate:   now,
			PaymentMethod:     in.PaymentMethod,
			ReferenceNumber:   in.ReferenceNumber,
		}).Error; err != nil {
			return fmt.Errorf("Failed to record disbursement: %v", err)
		}
		ev, err := domain.NewApplicationEvent(app.ID, domain.EventDisbursed, map[string]interface{}{
			"from":        app.Status,
			"to":          next,
			"loan_id":     loan.ID,
			"loan_number": loan.LoanNumber,
			"amount":      loan.SanctionedAmount,
		})
		if err != nil {
			return err
		}
		if err := tx.Create(ev).Error; err != nil {
			return err
		}
		for i := range app.Collaterals {
			app.Collaterals[i].LoanID = &loan.ID
			app.Collaterals[i].LoanApplicationID = nil
		}
		loan.Collaterals = app.Collaterals
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("loan_number", loan.LoanNumber).Str("amount", loan.SanctionedAmount.StringFixed(2)).Msg("loan disbursed")
	return loan, nil
}

// List returns loans newest first. An empty status lists every loan.
func (s *Service) List(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error) {
	var loans []domain.Loan
	q := s.DB.WithContext(ctx).Preload("Customer").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch loans: %v", err)
	}
	return loans, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LoanDetail, error) {
	var loan domain.Loan
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Product").
		Preload("Collaterals", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("transaction_date DESC") }).
		Where("id = ?", id).First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	detail := &LoanDetail{Loan: loan}
	if exp, err := eligibility.Exposure(loan.OutstandingPrincipal, domain.Lines(loan.Collaterals)); err == nil {
		detail.Exposure = exp
	}
	return detail, nil
}

// LTVReport lists the exposure of every active loan against the LTV cap it
// was sanctioned under. It only reports; no loan state changes.
func (s *Service) LTVReport(ctx context.Context) ([]LTVRow, error) {
	var loans []domain.Loan
	if err := s.DB.WithContext(ctx).
		Preload("Collaterals", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("status = ?", domain.LoanActive).
		Order("created_at ASC").
		Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch loans: %v", err)
	}
	rows := make([]LTVRow, 0, len(loans))
	for _, l := range loans {
		exp, err := eligibility.Exposure(l.OutstandingPrincipal, domain.Lines(l.Collaterals))
		if err != nil {
			log.Warn().Err(err).Str("loan_number", l.LoanNumber).Msg("skipping loan in LTV report")
			continue
		}
		rows = append(rows, LTVRow{
			LoanID:               l.ID,
			LoanNumber:           l.LoanNumber,
			CustomerID:           l.CustomerID,
			OutstandingPrincipal: l.OutstandingPrincipal,
			TotalCollateralValue: exp.TotalCollateralValue,
			CurrentLTV:           exp.CurrentLTVPercent,
			MaxLTV:               l.MaxLTV,
			AboveMaxLTV:          exp.CurrentLTVPercent.GreaterThan(l.MaxLTV),
		})
	}
	return rows, nil
}

func load(tx *gorm.DB, id uuid.UUID) (*domain.Loan, error) {
	var loan domain.Loan
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// AccrueInterest adds simple daily interest on the outstanding principal for
// the whole days between the last accrual and asOf.
func (s *Service) AccrueInterest(ctx context.Context, id uuid.UUID, asOf time.Time) (*domain.Loan, error) {
	var out *domain.Loan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := load(tx, id)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanActive {
			return ErrLoanNotActive
		}
		from := loan.InterestAccruedTo
		if from == nil {
			from = loan.DisbursedAt
		}
		if from == nil {
			from = &loan.CreatedAt
		}
		days := int64(asOf.Sub(*from) / (24 * time.Hour))
		if days <= 0 {
			out = loan
			return nil
		}
		interest := loan.OutstandingPrincipal.
			Mul(loan.InterestRate).
			Mul(decimal.NewFromInt(days)).
			Div(decimal.NewFromInt(100).Mul(daysPerYear)).
			Round(2)
		through := from.Add(time.Duration(days) * 24 * time.Hour)
		loan.OutstandingInterest = loan.OutstandingInterest.Add(interest)
		loan.InterestAccruedTo = &through
		if err := tx.Model(&domain.Loan{}).Where("id = ?", loan.ID).Updates(map[string]interface{}{
			"outstanding_interest": loan.OutstandingInterest,
			"interest_accrued_to":  through,
		}).Error; err != nil {
			return fmt.Errorf("Failed to accrue interest: %v", err)
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordTransaction books a repayment against an active loan. A loan with
// nothing left outstanding is closed.
func (s *Service) RecordTransaction(ctx context.Context, loanID uuid.UUID, in TransactionInput) (*domain.Transaction, error) {
	typ, ok := domain.ParseTransactionType(strings.TrimSpace(in.Type))
	if !ok || typ == domain.TxDisbursement {
		return nil, ErrInvalidTransactionType
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validPaymentMethod(in.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	var out *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := load(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanActive {
			return ErrLoanNotActive
		}
		amount := in.Amount.Round(2)
		column, outstanding := "outstanding_principal", loan.OutstandingPrincipal
		if typ == domain.TxInterestPayment {
			column, outstanding = "outstanding_interest", loan.OutstandingInterest
		}
		if amount.GreaterThan(outstanding) {
			return ErrOverpayment
		}
		now := s.now()
		date := now
		if in.TransactionDate != nil {
			date = *in.TransactionDate
		}
		// The decrement is guarded in SQL so a payment that committed after
		// the read above cannot be overwritten or overdrawn.
		res := tx.Model(&domain.Loan{}).
			Where("id = ? AND status = ? AND "+column+" >= ?", loan.ID, domain.LoanActive, amount).
			Updates(map[string]interface{}{
				column:            gorm.Expr(column+" - ?", amount),
				"last_payment_at": date,
			})
		if res.Error != nil {
			return fmt.Errorf("Failed to update loan: %v", res.Error)
		}
		if res.RowsAffected == 0 {
			current, err := load(tx, loan.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.LoanActive {
				return ErrLoanNotActive
			}
			return ErrOverpayment
		}
		if loan, err = load(tx, loan.ID); err != nil {
			return err
		}
		if loan.OutstandingPrincipal.IsZero() && loan.OutstandingInterest.IsZero() {
			next, err := loan.Status.Transition(domain.LoanClosed)
			if err != nil {
				return err
			}
			if err := tx.Model(&domain.Loan{}).Where("id = ? AND status = ?", loan.ID, domain.LoanActive).
				Update("status", next).Error; err != nil {
				return fmt.Errorf("Failed to update loan: %v", err)
			}
		}
		t := &domain.Transaction{
			TransactionNumber: numbering.Transaction(now),
			LoanID:            loan.ID,
			Type:              typ,
			Amount:            amount,
			Description:       in.Description,
			TransactionDate:   date,
			PaymentMethod:     in.PaymentMethod,
			ReferenceNumber:   in.ReferenceNumber,
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("Failed to create transaction: %v", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus closes or defaults an active loan. Closing requires nothing
// outstanding.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Loan, error) {
	to, ok := domain.ParseLoanStatus(strings.TrimSpace(status))
	if !ok {
		return nil, ErrInvalidLoanStatus
	}
	var out *domain.Loan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := load(tx, id)
		if err != nil {
			return err
		}
		next, err := loan.Status.Transition(to)
		if err != nil {
			return err
		}
		if next == domain.LoanClosed && (loan.OutstandingPrincipal.IsPositive() || loan.OutstandingInterest.IsPositive()) {
			return ErrOutstandingBalance
		}
		loan.Status = next
		if err := tx.Model(&domain.Loan{}).Where("id = ?", loan.ID).Update("status", next).Error; err != nil {
			return fmt.Errorf("Failed to update loan: %v", err)
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
