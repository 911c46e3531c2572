package domain

import (
	"encoding/json"
	"time"

	"lamf-backend/internal/application/eligibility"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LoanApplication is one request for a loan, with the outcome of the
// eligibility check that admitted it. ProductTerms freezes the product as it
// was when the application was evaluated.
type LoanApplication struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ApplicationNumber    string            `gorm:"column:application_number;not null;uniqueIndex" json:"application_number"`
	CustomerID           uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	ProductID            uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	RequestedAmount      decimal.Decimal   `gorm:"column:requested_amount;type:decimal(15,2);not null" json:"requested_amount"`
	TenureMonths         int               `gorm:"column:tenure_months;not null" json:"tenure_months"`
	Status               ApplicationStatus `gorm:"column:status;type:varchar(20);not null;default:'draft'" json:"status"`
	RejectionReason      *string           `gorm:"column:rejection_reason" json:"rejection_reason"`
	ProductTerms         datatypes.JSON    `gorm:"column:product_terms;type:jsonb;not null" json:"product_terms"`
	TotalCollateralValue decimal.Decimal   `gorm:"column:total_collateral_value;type:decimal(15,2);not null" json:"total_collateral_value"`
	MaxEligibleAmount    decimal.Decimal   `gorm:"column:max_eligible_amount;type:decimal(15,2);not null" json:"max_eligible_amount"`
	CurrentLTV           decimal.Decimal   `gorm:"column:current_ltv;type:decimal(18,1);not null" json:"current_ltv"`
	ProcessingFee        decimal.Decimal   `gorm:"column:processing_fee;type:decimal(15,2);not null" json:"processing_fee"`
	AppliedAt            *time.Time        `gorm:"column:applied_at" json:"applied_at"`
	ApprovedAt           *time.Time        `gorm:"column:approved_at" json:"approved_at"`
	RejectedAt           *time.Time        `gorm:"column:rejected_at" json:"rejected_at"`
	CreatedAt            time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"column:updated_at" json:"updated_at"`

	Customer    *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Product     *LoanProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Collaterals []Collateral `gorm:"foreignKey:LoanApplicationID" json:"collaterals,omitempty"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

func (a *LoanApplication) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SetTerms stores the product snapshot.
func (a *LoanApplication) SetTerms(p eligibility.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	a.ProductTerms = datatypes.JSON(b)
	return nil
}

// Terms reads the product snapshot back.
func (a *LoanApplication) Terms() (eligibility.Product, error) {
	var p eligibility.Product
	err := json.Unmarshal(a.ProductTerms, &p)
	return p, err
}
