package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a borrower. Aadhaar is never stored in clear.
type Customer struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PAN               string    `gorm:"column:pan;type:varchar(10);not null;uniqueIndex" json:"pan"`
	AadhaarHash       *string   `gorm:"column:aadhaar_hash" json:"-"`
	AadhaarLast4      *string   `gorm:"column:aadhaar_last4;type:varchar(4)" json:"aadhaar_last4"`
	FullName          string    `gorm:"column:full_name;not null" json:"full_name"`
	Email             string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone             string    `gorm:"column:phone;not null" json:"phone"`
	Address           *string   `gorm:"column:address" json:"address"`
	BankAccountNumber *string   `gorm:"column:bank_account_number" json:"bank_account_number"`
	BankIFSC          *string   `gorm:"column:bank_ifsc" json:"bank_ifsc"`
	BankName          *string   `gorm:"column:bank_name" json:"bank_name"`
	KYCVerified       bool      `gorm:"column:kyc_verified;not null;default:false" json:"kyc_verified"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
