package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventCreated       = "CREATED"
	EventStatusChanged = "STATUS_CHANGED"
	EventReevaluated   = "REEVALUATED"
	EventNAVRefreshed  = "NAV_REFRESHED"
	EventDisbursed     = "DISBURSED"

	EventCollateralRemoved = "COLLATERAL_REMOVED"
)

// ApplicationEvent is the audit trail of an application.
type ApplicationEvent struct {
	EventID       uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ApplicationID uuid.UUID      `gorm:"column:application_id;type:uuid;not null;index" json:"application_id"`
	EventType     string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData     datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ApplicationEvent) TableName() string {
	return "application_events"
}

func (e *ApplicationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

// NewApplicationEvent encodes data as the event payload.
func NewApplicationEvent(appID uuid.UUID, eventType string, data map[string]interface{}) (*ApplicationEvent, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &ApplicationEvent{ApplicationID: appID, EventType: eventType, EventData: datatypes.JSON(b)}, nil
}
