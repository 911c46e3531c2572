package collaterals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lamf-backend/internal/application/eligibility"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCollateralNotFound   = errors.New("Collateral not found")
	ErrInvalidNAV           = errors.New("NAV must be greater than zero")
	ErrNAVPrecision         = errors.New("NAV allows at most 2 decimal places")
	ErrInvalidISIN          = errors.New("ISIN is invalid")
	ErrLienReferenceMissing = errors.New("A lien reference is required")
	ErrLoanActive           = errors.New("Lien cannot be released while the loan is active")
	ErrCollateralLocked     = errors.New("Collateral can only be removed from a draft or pending application before the lien is marked")
	ErrLastCollateral       = errors.New("An application must keep at least one collateral line")
)

// repriceable application statuses; decided applications keep their figures.
var openStatuses = []domain.ApplicationStatus{domain.ApplicationDraft, domain.ApplicationPending, domain.ApplicationApproved}

// NAVStore publishes refreshed NAVs for intake to reuse.
type NAVStore interface {
	SetNAV(ctx context.Context, isin string, nav decimal.Decimal) error
}

type Service struct {
	DB  *gorm.DB
	NAV NAVStore
	Now func() time.Time
}

type ListFilter struct {
	LoanID            *uuid.UUID
	LoanApplicationID *uuid.UUID
}

// RefreshResult summarizes a NAV feed update.
type RefreshResult struct {
	ISIN                string          `json:"isin"`
	NAV                 decimal.Decimal `json:"nav"`
	CollateralsUpdated  int             `json:"collaterals_updated"`
	ApplicationsUpdated int             `json:"applications_updated"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Collateral, error) {
	var out []domain.Collateral
	q := s.DB.WithContext(ctx).Order("created_at DESC").Order("position ASC")
	if f.LoanID != nil {
		q = q.Where("loan_id = ?", *f.LoanID)
	}
	if f.LoanApplicationID != nil {
		q = q.Where("loan_application_id = ?", *f.LoanApplicationID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch collaterals: %v", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Collateral, error) {
	return load(s.DB.WithContext(ctx), id)
}

func load(tx *gorm.DB, id uuid.UUID) (*domain.Collateral, error) {
	var c domain.Collateral
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollateralNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateNAV reprices a single line and its owning application.
func (s *Service) UpdateNAV(ctx context.Context, id uuid.UUID, nav decimal.Decimal) (*domain.Collateral, error) {
	if !nav.IsPositive() {
		return nil, ErrInvalidNAV
	}
	if !domain.FitsScale(nav, domain.NAVScale) {
		return nil, ErrNAVPrecision
	}
	var out *domain.Collateral
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := load(tx, id)
		if err != nil {
			return err
		}
		c.Reprice(nav)
		if err := saveValue(tx, c); err != nil {
			return err
		}
		if c.LoanApplicationID != nil {
			if _, err := reprice(tx, *c.LoanApplicationID, map[string]interface{}{
				"collateral_id": c.ID,
				"isin":          c.ISIN,
				"nav":           nav,
			}); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshNAV applies a daily NAV to every line holding isin and recomputes
// the exposure of each open application that pledges it.
func (s *Service) RefreshNAV(ctx context.Context, isin string, nav decimal.Decimal) (*RefreshResult, error) {
	isin = validation.Upper(isin)
	if !validation.IsValidISIN(isin) {
		return nil, ErrInvalidISIN
	}
	if !nav.IsPositive() {
		return nil, ErrInvalidNAV
	}
	if !domain.FitsScale(nav, domain.NAVScale) {
		return nil, ErrNAVPrecision
	}
	res := &RefreshResult{ISIN: isin, NAV: nav}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines []domain.Collateral
		if err := tx.Where("isin = ?", isin).Find(&lines).Error; err != nil {
			return err
		}
		seen := map[uuid.UUID]bool{}
		for i := range lines {
			lines[i].Reprice(nav)
			if err := saveValue(tx, &lines[i]); err != nil {
				return err
			}
			if id := lines[i].LoanApplicationID; id != nil && !seen[*id] {
				seen[*id] = true
				ok, err := reprice(tx, *id, map[string]interface{}{"isin": isin, "nav": nav})
				if err != nil {
					return err
				}
				if ok {
					res.ApplicationsUpdated++
				}
			}
		}
		res.CollateralsUpdated = len(lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.NAV != nil {
		if err := s.NAV.SetNAV(ctx, isin, nav); err != nil {
			log.Warn().Err(err).Str("isin", isin).Msg("failed to cache NAV")
		}
	}
	log.Info().Str("isin", isin).Str("nav", nav.StringFixed(2)).
		Int("collaterals", res.CollateralsUpdated).Int("applications", res.ApplicationsUpdated).
		Msg("NAV refreshed")
	return res, nil
}

func saveValue(tx *gorm.DB, c *domain.Collateral) error {
	if err := tx.Model(&domain.Collateral{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"current_nav":   c.CurrentNAV,
		"current_value": c.CurrentValue,
	}).Error; err != nil {
		return fmt.Errorf("Failed to update collateral: %v", err)
	}
	return nil
}

// reprice recomputes the stored collateral total and LTV of an open
// application and records a NAV_REFRESHED event. It reports false for
// decided applications, which are left unchanged.
func reprice(tx *gorm.DB, appID uuid.UUID, data map[string]interface{}) (bool, error) {
	var app domain.LoanApplication
	err := tx.Preload("Collaterals", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ? AND status IN ?", appID, openStatuses).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	exp, err := eligibility.Exposure(app.RequestedAmount, domain.Lines(app.Collaterals))
	if err != nil {
		return false, err
	}
	if err := tx.Model(&domain.LoanApplication{}).Where("id = ?", app.ID).Updates(map[string]interface{}{
		"total_collateral_value": exp.TotalCollateralValue,
		"current_ltv":            exp.CurrentLTVPercent,
	}).Error; err != nil {
		return false, fmt.Errorf("Failed to update loan application: %v", err)
	}
	data["total_collateral_value"] = exp.TotalCollateralValue
	data["current_ltv"] = exp.CurrentLTVPercent
	ev, err := domain.NewApplicationEvent(app.ID, domain.EventNAVRefreshed, data)
	if err != nil {
		return false, err
	}
	return true, tx.Create(ev).Error
}

// MarkLien records the registrar's lien reference.
func (s *Service) MarkLien(ctx context.Context, id uuid.UUID, reference string) (*domain.Collateral, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrLienReferenceMissing
	}
	var out *domain.Collateral
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := load(tx, id)
		if err != nil {
			return err
		}
		next, err := c.LienStatus.Transition(domain.LienMarked)
		if err != nil {
			return err
		}
		now := s.now()
		c.LienStatus = next
		c.LienReference = &reference
		c.LienMarkedAt = &now
		if err := tx.Save(c).Error; err != nil {
			return fmt.Errorf("Failed to mark lien: %v", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseLien lifts a marked lien. Units backing an active loan stay pledged.
func (s *Service) ReleaseLien(ctx context.Context, id uuid.UUID) (*domain.Collateral, error) {
	var out *domain.Collateral
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := load(tx, id)
		if err != nil {
			return err
		}
		if c.LoanID != nil {
			var loan domain.Loan
			if err := tx.Select("status").Where("id = ?", *c.LoanID).First(&loan).Error; err != nil {
				return err
			}
			if loan.Status == domain.LoanActive {
				return ErrLoanActive
			}
		}
		next, err := c.LienStatus.Transition(domain.LienReleased)
		if err != nil {
			return err
		}
		now := s.now()
		c.LienStatus = next
		c.LienReleasedAt = &now
		if err := tx.Save(c).Error; err != nil {
			return fmt.Errorf("Failed to release lien: %v", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a line from an application that is still being assembled.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := load(tx, id)
		if err != nil {
			return err
		}
		if c.LoanApplicationID == nil || c.LienStatus != domain.LienPending {
			return ErrCollateralLocked
		}
		var app domain.LoanApplication
		if err := tx.Where("id = ?", *c.LoanApplicationID).First(&app).Error; err != nil {
			return err
		}
		if app.Status != domain.ApplicationDraft && app.Status != domain.ApplicationPending {
			return ErrCollateralLocked
		}
		var remaining int64
		if err := tx.Model(&domain.Collateral{}).Where("loan_application_id = ?", app.ID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining <= 1 {
			return ErrLastCollateral
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("Failed to delete collateral: %v", err)
		}
		var rest []domain.Collateral
		if err := tx.Where("loan_application_id = ?", app.ID).Order("position ASC").Find(&rest).Error; err != nil {
			return err
		}
		exp, err := eligibility.Exposure(app.RequestedAmount, domain.Lines(rest))
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.LoanApplication{}).Where("id = ?", app.ID).Updates(map[string]interface{}{
			"total_collateral_value": exp.TotalCollateralValue,
			"current_ltv":            exp.CurrentLTVPercent,
		}).Error; err != nil {
			return err
		}
		ev, err := domain.NewApplicationEvent(app.ID, domain.EventCollateralRemoved, map[string]interface{}{
			"collateral_id":          c.ID,
			"isin":                   c.ISIN,
			"total_collateral_value": exp.TotalCollateralValue,
			"current_ltv":            exp.CurrentLTVPercent,
		})
		if err != nil {
			return err
		}
		return tx.Create(ev).Error
	})
}
