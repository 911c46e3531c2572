package domain

import (
	"time"

	"lamf-backend/internal/application/eligibility"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Collateral is one pledged mutual-fund holding. It is owned by exactly one
// of an application or, after disbursement, a loan.
type Collateral struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoanApplicationID *uuid.UUID      `gorm:"column:loan_application_id;type:uuid;index" json:"loan_application_id"`
	LoanID            *uuid.UUID      `gorm:"column:loan_id;type:uuid;index" json:"loan_id"`
	Position          int             `gorm:"column:position;not null;default:0" json:"position"`
	FundName          string          `gorm:"column:fund_name;not null" json:"fund_name"`
	ISIN              string          `gorm:"column:isin;type:varchar(12);not null;index" json:"isin"`
	AMCName           string          `gorm:"column:amc_name;not null" json:"amc_name"`
	FolioNumber       string          `gorm:"column:folio_number;not null" json:"folio_number"`
	UnitsPledged      decimal.Decimal `gorm:"column:units_pledged;type:decimal(15,4);not null" json:"units_pledged"`
	CurrentNAV        decimal.Decimal `gorm:"column:current_nav;type:decimal(10,2);not null" json:"current_nav"`
	CurrentValue      decimal.Decimal `gorm:"column:current_value;type:decimal(15,2);not null" json:"current_value"`
	LienStatus        LienStatus      `gorm:"column:lien_status;type:varchar(20);not null;default:'pending'" json:"lien_status"`
	LienMarkedAt      *time.Time      `gorm:"column:lien_marked_at" json:"lien_marked_at"`
	LienReleasedAt    *time.Time      `gorm:"column:lien_released_at" json:"lien_released_at"`
	LienReference     *string         `gorm:"column:lien_reference" json:"lien_reference"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Collateral) TableName() string {
	return "collaterals"
}

func (c *Collateral) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Line is the calculator view of the holding.
func (c *Collateral) Line() eligibility.Line {
	return eligibility.Line{ISIN: c.ISIN, UnitsPledged: c.UnitsPledged, CurrentPrice: c.CurrentNAV}
}

// Stored scales of units_pledged and current_nav.
const (
	UnitsScale = 4
	NAVScale   = 2
)

// FitsScale reports whether d has no more than places fractional digits.
// Trailing zeros do not count.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// Reprice sets a new NAV and recomputes the stored line value.
func (c *Collateral) Reprice(nav decimal.Decimal) {
	c.CurrentNAV = nav
	c.CurrentValue = c.UnitsPledged.Mul(nav).Round(2)
}

// Lines converts holdings in order.
func Lines(cs []Collateral) []eligibility.Line {
	out := make([]eligibility.Line, len(cs))
	for i := range cs {
		out[i] = cs[i].Line()
	}
	return out
}
