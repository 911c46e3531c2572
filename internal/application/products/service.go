package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lamf-backend/internal/application/eligibility"
	"lamf-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("Loan product not found")
	ErrProductInUse    = errors.New("Loan product is referenced by applications; deactivate it instead")
	ErrInvalidProduct  = errors.New("Invalid loan product")
)

type Service struct {
	DB *gorm.DB
}

// ProductInput is the full set of editable fields. It doubles as the seed
// file record.
type ProductInput struct {
	Name                    string          `json:"name" yaml:"name"`
	Description             *string         `json:"description" yaml:"description"`
	MinAmount               decimal.Decimal `json:"min_amount" yaml:"min_amount"`
	MaxAmount               decimal.Decimal `json:"max_amount" yaml:"max_amount"`
	InterestRate            decimal.Decimal `json:"interest_rate" yaml:"interest_rate"`
	LTVRatio                decimal.Decimal `json:"ltv_ratio" yaml:"ltv_ratio"`
	MinTenureMonths         int             `json:"min_tenure_months" yaml:"min_tenure_months"`
	MaxTenureMonths         int             `json:"max_tenure_months" yaml:"max_tenure_months"`
	ProcessingFeePercentage decimal.Decimal `json:"processing_fee_percentage" yaml:"processing_fee_percentage"`
	IsActive                *bool           `json:"is_active" yaml:"is_active"`
}

// UpdateProductInput carries only the fields present in a PATCH body.
type UpdateProductInput struct {
	Name                    *string          `json:"name"`
	Description             *string          `json:"description"`
	MinAmount               *decimal.Decimal `json:"min_amount"`
	MaxAmount               *decimal.Decimal `json:"max_amount"`
	InterestRate            *decimal.Decimal `json:"interest_rate"`
	LTVRatio                *decimal.Decimal `json:"ltv_ratio"`
	MinTenureMonths         *int             `json:"min_tenure_months"`
	MaxTenureMonths         *int             `json:"max_tenure_months"`
	ProcessingFeePercentage *decimal.Decimal `json:"processing_fee_percentage"`
	IsActive                *bool            `json:"is_active"`
}

func (in ProductInput) toDomain() *domain.LoanProduct {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &domain.LoanProduct{
		Name:                    strings.TrimSpace(in.Name),
		Description:             in.Description,
		MinAmount:               in.MinAmount,
		MaxAmount:               in.MaxAmount,
		InterestRate:            in.InterestRate,
		LTVRatio:                in.LTVRatio,
		MinTenureMonths:         in.MinTenureMonths,
		MaxTenureMonths:         in.MaxTenureMonths,
		ProcessingFeePercentage: in.ProcessingFeePercentage,
		IsActive:                active,
	}
}

// Validate applies the calculator's configuration rules plus the catalog's own.
func Validate(p *domain.LoanProduct) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !p.InterestRate.IsPositive() {
		return fmt.Errorf("%w: interest rate must be greater than 0", ErrInvalidProduct)
	}
	if p.ProcessingFeePercentage.IsNegative() || p.ProcessingFeePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: processing fee must be between 0 and 100", ErrInvalidProduct)
	}
	if err := eligibility.ValidateProduct(p.Terms()); err != nil {
		var ee *eligibility.Error
		if errors.As(err, &ee) {
			return fmt.Errorf("%w: %s", ErrInvalidProduct, ee.Reason)
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.LoanProduct, error) {
	var products []domain.LoanProduct
	q := s.DB.WithContext(ctx).Order("created_at ASC").Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch loan products: %v", err)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	var p domain.LoanProduct
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.LoanProduct, error) {
	p := in.toDomain()
	if err := Validate(p); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("Failed to create loan product: %v", err)
	}
	return p, nil
}

// Update edits the catalog entry. Stored applications keep their own copy of
// the terms and are not affected.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*domain.LoanProduct, error) {
	var out *domain.LoanProduct
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.LoanProduct
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = in.Description
		}
		if in.MinAmount != nil {
			p.MinAmount = *in.MinAmount
		}
		if in.MaxAmount != nil {
			p.MaxAmount = *in.MaxAmount
		}
		if in.InterestRate != nil {
			p.InterestRate = *in.InterestRate
		}
		if in.LTVRatio != nil {
			p.LTVRatio = *in.LTVRatio
		}
		if in.MinTenureMonths != nil {
			p.MinTenureMonths = *in.MinTenureMonths
		}
		if in.MaxTenureMonths != nil {
			p.MaxTenureMonths = *in.MaxTenureMonths
		}
		if in.ProcessingFeePercentage != nil {
			p.ProcessingFeePercentage = *in.ProcessingFeePercentage
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if err := Validate(&p); err != nil {
			return err
		}
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("Failed to update loan product: %v", err)
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a product no application has used.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.LoanProduct
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		var refs int64
		if err := tx.Model(&domain.LoanApplication{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrProductInUse
		}
		return tx.Delete(&p).Error
	})
}
