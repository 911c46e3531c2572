package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Loan is a disbursed application.
type Loan struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoanNumber           string          `gorm:"column:loan_number;not null;uniqueIndex" json:"loan_number"`
	ApplicationID        uuid.UUID       `gorm:"column:application_id;type:uuid;not null;uniqueIndex" json:"application_id"`
	CustomerID           uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	ProductID            uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	SanctionedAmount     decimal.Decimal `gorm:"column:sanctioned_amount;type:decimal(15,2);not null" json:"sanctioned_amount"`
	OutstandingPrincipal decimal.Decimal `gorm:"column:outstanding_principal;type:decimal(15,2);not null" json:"outstanding_principal"`
	OutstandingInterest  decimal.Decimal `gorm:"column:outstanding_interest;type:decimal(15,2);not null;default:0" json:"outstanding_interest"`
	InterestRate         decimal.Decimal `gorm:"column:interest_rate;type:decimal(5,2);not null" json:"interest_rate"`
	MaxLTV               decimal.Decimal `gorm:"column:max_ltv;type:decimal(5,2);not null" json:"max_ltv"`
	TenureMonths         int             `gorm:"column:tenure_months;not null" json:"tenure_months"`
	EMIAmount            decimal.Decimal `gorm:"column:emi_amount;type:decimal(15,2);not null" json:"emi_amount"`
	DisbursedAt          *time.Time      `gorm:"column:disbursed_at" json:"disbursed_at"`
	MaturityDate         *time.Time      `gorm:"column:maturity_date" json:"maturity_date"`
	LastPaymentAt        *time.Time      `gorm:"column:last_payment_at" json:"last_payment_at"`
	InterestAccruedTo    *time.Time      `gorm:"column:interest_accrued_to" json:"interest_accrued_to"`
	Status               LoanStatus      `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt            time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at" json:"updated_at"`

	Customer     *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Product      *LoanProduct  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Collaterals  []Collateral  `gorm:"foreignKey:LoanID" json:"collaterals,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:LoanID" json:"transactions,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
