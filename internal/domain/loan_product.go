package domain

import (
	"time"

	"lamf-backend/internal/application/eligibility"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanProduct is a catalog entry customers can apply against.
type LoanProduct struct {
	ID                      uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                    string          `gorm:"column:name;not null" json:"name"`
	Description             *string         `gorm:"column:description" json:"description"`
	MinAmount               decimal.Decimal `gorm:"column:min_amount;type:decimal(15,2);not null" json:"min_amount"`
	MaxAmount               decimal.Decimal `gorm:"column:max_amount;type:decimal(15,2);not null" json:"max_amount"`
	InterestRate            decimal.Decimal `gorm:"column:interest_rate;type:decimal(5,2);not null" json:"interest_rate"`
	LTVRatio                decimal.Decimal `gorm:"column:ltv_ratio;type:decimal(5,2);not null" json:"ltv_ratio"`
	MinTenureMonths         int             `gorm:"column:min_tenure_months;not null" json:"min_tenure_months"`
	MaxTenureMonths         int             `gorm:"column:max_tenure_months;not null" json:"max_tenure_months"`
	ProcessingFeePercentage decimal.Decimal `gorm:"column:processing_fee_percentage;type:decimal(5,2);not null" json:"processing_fee_percentage"`
	IsActive                bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt               time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (LoanProduct) TableName() string {
	return "loan_products"
}

func (p *LoanProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Terms is the calculator view of the product.
func (p *LoanProduct) Terms() eligibility.Product {
	return eligibility.Product{
		MinAmount:            p.MinAmount,
		MaxAmount:            p.MaxAmount,
		InterestRatePercent:  p.InterestRate,
		MaxLTVPercent:        p.LTVRatio,
		MinTenureMonths:      p.MinTenureMonths,
		MaxTenureMonths:      p.MaxTenureMonths,
		ProcessingFeePercent: p.ProcessingFeePercentage,
		IsActive:             p.IsActive,
	}
}
