package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lamf-backend/internal/application/customers"
	"lamf-backend/internal/application/eligibility"
	"lamf-backend/internal/application/loans"
	"lamf-backend/internal/application/products"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/infrastructure/cache"
	"lamf-backend/internal/infrastructure/metrics"
	"lamf-backend/internal/pkg/numbering"
	"lamf-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound     = errors.New("Loan application not found")
	ErrInvalidApplication      = errors.New("Invalid loan application")
	ErrInvalidStatus           = errors.New("Invalid application status")
	ErrRejectionReasonRequired = errors.New("A rejection reason is required")
	ErrDisburseViaLoans        = errors.New("Applications are disbursed through the loans endpoint")
	ErrApplicationClosed       = errors.New("Loan application is closed")
)

// NAVSource supplies the latest known NAV for an ISIN.
type NAVSource interface {
	GetNAV(ctx context.Context, isin string) (decimal.Decimal, error)
}

type Service struct {
	DB      *gorm.DB
	NAV     NAVSource
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type CollateralInput struct {
	FundName     string           `json:"fund_name"`
	ISIN         string           `json:"isin"`
	AMCName      string           `json:"amc_name"`
	FolioNumber  string           `json:"folio_number"`
	UnitsPledged decimal.Decimal  `json:"units_pledged"`
	CurrentNAV   *decimal.Decimal `json:"current_nav"`
}

type CreateInput struct {
	Customer        customers.CustomerInput `json:"customer"`
	ProductID       uuid.UUID               `json:"product_id"`
	RequestedAmount decimal.Decimal         `json:"requested_amount"`
	TenureMonths    int                     `json:"tenure_months"`
	Collaterals     []CollateralInput       `json:"collaterals"`
	Draft           bool                    `json:"draft"`
}

// Preview is the outcome of an evaluation that was not persisted.
type Preview struct {
	eligibility.Result
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	EMIAmount     decimal.Decimal `json:"emi_amount"`
}

type ListFilter struct {
	Status     *domain.ApplicationStatus
	CustomerID *uuid.UUID
}

type UpdateStatusInput struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ProcessingFee is requested × fee% rounded half-up to paise.
func ProcessingFee(requested, feePercent decimal.Decimal) decimal.Decimal {
	return requested.Mul(feePercent).Div(decimal.NewFromInt(100)).Round(2)
}

func outcome(err error) string {
	if err == nil {
		return "accepted"
	}
	var ee *eligibility.Error
	if errors.As(err, &ee) {
		return string(ee.Kind)
	}
	return "error"
}

func (s *Service) evaluate(source string, in eligibility.Input) (*eligibility.Result, error) {
	res, err := eligibility.Evaluate(in)
	s.Metrics.ObserveEvaluation(source, outcome(err))
	return res, err
}

// normalizeLines checks the descriptive fields of each line and that units
// and NAV fit their stored scale. Sign and zero checks are left to the
// calculator so it reports the failing line index.
func normalizeLines(in []CollateralInput) ([]CollateralInput, error) {
	out := make([]CollateralInput, len(in))
	for i, l := range in {
		l.ISIN = validation.Upper(l.ISIN)
		l.FundName = strings.TrimSpace(l.FundName)
		l.AMCName = strings.TrimSpace(l.AMCName)
		l.FolioNumber = strings.TrimSpace(l.FolioNumber)
		switch {
		case l.FundName == "":
			return nil, fmt.Errorf("%w: collaterals[%d].fund_name is required", ErrInvalidApplication, i)
		case !validation.IsValidISIN(l.ISIN):
			return nil, fmt.Errorf("%w: collaterals[%d].isin is invalid", ErrInvalidApplication, i)
		case l.AMCName == "":
			return nil, fmt.Errorf("%w: collaterals[%d].amc_name is required", ErrInvalidApplication, i)
		case l.FolioNumber == "":
			return nil, fmt.Errorf("%w: collaterals[%d].folio_number is required", ErrInvalidApplication, i)
		case !domain.FitsScale(l.UnitsPledged, domain.UnitsScale):
			return nil, fmt.Errorf("%w: collaterals[%d].units_pledged allows at most %d decimal places", ErrInvalidApplication, i, domain.UnitsScale)
		case l.CurrentNAV != nil && !domain.FitsScale(*l.CurrentNAV, domain.NAVScale):
			return nil, fmt.Errorf("%w: collaterals[%d].current_nav allows at most %d decimal places", ErrInvalidApplication, i, domain.NAVScale)
		}
		out[i] = l
	}
	return out, nil
}

// priceLines fills a missing NAV from the cache. A NAV that is still unknown
// stays zero and the calculator rejects the line.
func (s *Service) priceLines(ctx context.Context, in []CollateralInput) ([]domain.Collateral, error) {
	out := make([]domain.Collateral, len(in))
	for i, l := range in {
		nav := decimal.Zero
		switch {
		case l.CurrentNAV != nil:
			nav = *l.CurrentNAV
		case s.NAV != nil:
			cached, err := s.NAV.GetNAV(ctx, l.ISIN)
			if err != nil && !errors.Is(err, cache.ErrNAVNotCached) {
				return nil, fmt.Errorf("Failed to read NAV for %s: %v", l.ISIN, err)
			}
			if err == nil {
				nav = cached
			}
		}
		c := domain.Collateral{
			Position:     i,
			FundName:     l.FundName,
			ISIN:         l.ISIN,
			AMCName:      l.AMCName,
			FolioNumber:  l.FolioNumber,
			UnitsPledged: l.UnitsPledged,
			LienStatus:   domain.LienPending,
		}
		c.Reprice(nav)
		out[i] = c
	}
	return out, nil
}

type prepared struct {
	product     *domain.LoanProduct
	collaterals []domain.Collateral
	result      *eligibility.Result
}

func (s *Service) prepare(ctx context.Context, source string, in CreateInput) (*prepared, error) {
	if in.ProductID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id is required", ErrInvalidApplication)
	}
	lines, err := normalizeLines(in.Collaterals)
	if err != nil {
		return nil, err
	}
	product, err := (&products.Service{DB: s.DB}).Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	collaterals, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	res, err := s.evaluate(source, eligibility.Input{
		RequestedAmount: in.RequestedAmount,
		TenureMonths:    in.TenureMonths,
		Product:         product.Terms(),
		Lines:           domain.Lines(collaterals),
	})
	if err != nil {
		return nil, err
	}
	return &prepared{product: product, collaterals: collaterals, result: res}, nil
}

// Evaluate runs the calculator against the catalog product without writing.
func (s *Service) Evaluate(ctx context.Context, in CreateInput) (*Preview, error) {
	p, err := s.prepare(ctx, "preview", in)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Result:        *p.result,
		ProcessingFee: ProcessingFee(in.RequestedAmount, p.product.ProcessingFeePercentage),
		EMIAmount:     loans.EMI(in.RequestedAmount, p.product.InterestRate, in.TenureMonths),
	}, nil
}

// Create evaluates the request and, only if it is accepted, stores the
// application with its collateral, outcome and product snapshot.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.LoanApplication, error) {
	p, err := s.prepare(ctx, "intake", in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	app := &domain.LoanApplication{
		ApplicationNumber:    numbering.Application(now),
		ProductID:            p.product.ID,
		RequestedAmount:      in.RequestedAmount,
		TenureMonths:         in.TenureMonths,
		Status:               domain.ApplicationPending,
		TotalCollateralValue: p.result.TotalCollateralValue,
		MaxEligibleAmount:    p.result.MaxEligibleAmount,
		CurrentLTV:           p.result.CurrentLTVPercent,
		ProcessingFee:        ProcessingFee(in.RequestedAmount, p.product.ProcessingFeePercentage),
		AppliedAt:            &now,
	}
	if in.Draft {
		app.Status = domain.ApplicationDraft
		app.AppliedAt = nil
	}
	if err := app.SetTerms(p.product.Terms()); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := customers.FindOrCreate(tx, in.Customer)
		if err != nil {
			return err
		}
		app.CustomerID = customer.ID
		app.Customer = customer
		if err := tx.Omit("Customer", "Product", "Collaterals").Create(app).Error; err != nil {
			return fmt.Errorf("Failed to create loan application: %v", err)
		}
		for i := range p.collaterals {
			p.collaterals[i].LoanApplicationID = &app.ID
		}
		if err := tx.Create(&p.collaterals).Error; err != nil {
			return fmt.Errorf("Failed to create collaterals: %v", err)
		}
		return recordEvent(tx, app.ID, domain.EventCreated, map[string]interface{}{
			"status":                 app.Status,
			"requested_amount":       app.RequestedAmount,
			"total_collateral_value": app.TotalCollateralValue,
			"max_eligible_amount":    app.MaxEligibleAmount,
			"current_ltv":            app.CurrentLTV,
		})
	})
	if err != nil {
		return nil, err
	}
	app.Product = p.product
	app.Collaterals = p.collaterals
	log.Info().Str("application_number", app.ApplicationNumber).Str("status", string(app.Status)).Msg("loan application created")
	return app, nil
}

// recordEvent appends to the application's audit trail on tx.
func recordEvent(tx *gorm.DB, appID uuid.UUID, eventType string, data map[string]interface{}) error {
	ev, err := domain.NewApplicationEvent(appID, eventType, data)
	if err != nil {
		return err
	}
	if err := tx.Create(ev).Error; err != nil {
		return fmt.Errorf("Failed to create application event: %v", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.LoanApplication, error) {
	var apps []domain.LoanApplication
	q := s.DB.WithContext(ctx).Preload("Customer").Preload("Product").Order("created_at DESC")
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if err := q.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch loan applications: %v", err)
	}
	return apps, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	return load(s.DB.WithContext(ctx), id, true)
}

func load(tx *gorm.DB, id uuid.UUID, withRelations bool) (*domain.LoanApplication, error) {
	var app domain.LoanApplication
	q := tx
	if withRelations {
		q = q.Preload("Customer").Preload("Product").Preload("Collaterals", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	}
	if err := q.Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (s *Service) Events(ctx context.Context, id uuid.UUID) ([]domain.ApplicationEvent, error) {
	if _, err := load(s.DB.WithContext(ctx), id, false); err != nil {
		return nil, err
	}
	var events []domain.ApplicationEvent
	if err := s.DB.WithContext(ctx).Where("application_id = ?", id).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch application events: %v", err)
	}
	return events, nil
}

// UpdateStatus moves the application along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, in UpdateStatusInput) (*domain.LoanApplication, error) {
	to, ok := domain.ParseApplicationStatus(strings.TrimSpace(in.Status))
	if !ok {
		return nil, ErrInvalidStatus
	}
	if to == domain.ApplicationDisbursed {
		return nil, ErrDisburseViaLoans
	}
	reason := strings.TrimSpace(in.Reason)
	if to == domain.ApplicationRejected && reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	var out *domain.LoanApplication
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := load(tx, id, false)
		if err != nil {
			return err
		}
		from := app.Status
		next, err := from.Transition(to)
		if err != nil {
			return err
		}
		now := s.now()
		app.Status = next
		switch next {
		case domain.ApplicationPending:
			app.AppliedAt = &now
		case domain.ApplicationApproved:
			app.ApprovedAt = &now
		case domain.ApplicationRejected:
			app.RejectedAt = &now
			app.RejectionReason = &reason
		}
		if err := tx.Omit("Customer", "Product", "Collaterals").Save(app).Error; err != nil {
			return fmt.Errorf("Failed to update loan application: %v", err)
		}
		data := map[string]interface{}{"from": from, "to": next}
		if reason != "" {
			data["reason"] = reason
		}
		if err := recordEvent(tx, app.ID, domain.EventStatusChanged, data); err != nil {
			return err
		}
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reevaluate reruns the calculator on the stored lines against the terms
// frozen at intake. The stored outcome changes only when the request is still
// accepted; either way the attempt is recorded as an event.
func (s *Service) Reevaluate(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, *eligibility.Result, error) {
	var (
		out     *domain.LoanApplication
		res     *eligibility.Result
		evalErr error
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := load(tx, id, true)
		if err != nil {
			return err
		}
		if app.Status.IsTerminal() {
			return ErrApplicationClosed
		}
		terms, err := app.Terms()
		if err != nil {
			return fmt.Errorf("Failed to read product snapshot: %v", err)
		}
		res, evalErr = s.evaluate("reevaluate", eligibility.Input{
			RequestedAmount: app.RequestedAmount,
			TenureMonths:    app.TenureMonths,
			Product:         terms,
			Lines:           domain.Lines(app.Collaterals),
		})
		data := map[string]interface{}{"accepted": evalErr == nil}
		if evalErr != nil {
			data["outcome"] = outcome(evalErr)
			data["message"] = evalErr.Error()
		} else {
			app.TotalCollateralValue = res.TotalCollateralValue
			app.MaxEligibleAmount = res.MaxEligibleAmount
			app.CurrentLTV = res.CurrentLTVPercent
			if err := tx.Model(&domain.LoanApplication{}).Where("id = ?", app.ID).Updates(map[string]interface{}{
				"total_collateral_value": app.TotalCollateralValue,
				"max_eligible_amount":    app.MaxEligibleAmount,
				"current_ltv":            app.CurrentLTV,
			}).Error; err != nil {
				return fmt.Errorf("Failed to update loan application: %v", err)
			}
			data["total_collateral_value"] = res.TotalCollateralValue
			data["max_eligible_amount"] = res.MaxEligibleAmount
			data["current_ltv"] = res.CurrentLTVPercent
		}
		if err := recordEvent(tx, app.ID, domain.EventReevaluated, data); err != nil {
			return err
		}
		out = app
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if evalErr != nil {
		return out, nil, evalErr
	}
	return out, res, nil
}
