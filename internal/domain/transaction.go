package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is one ledger row against a loan.
type Transaction struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TransactionNumber string          `gorm:"column:transaction_number;not null;uniqueIndex" json:"transaction_number"`
	LoanID            uuid.UUID       `gorm:"column:loan_id;type:uuid;not null;index" json:"loan_id"`
	Type              TransactionType `gorm:"column:type;type:varchar(30);not null" json:"type"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	Description       *string         `gorm:"column:description" json:"description"`
	TransactionDate   time.Time       `gorm:"column:transaction_date;not null" json:"transaction_date"`
	PaymentMethod     *string         `gorm:"column:payment_method" json:"payment_method"`
	ReferenceNumber   *string         `gorm:"column:reference_number" json:"reference_number"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
