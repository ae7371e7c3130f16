package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditRewardUpdate     AuditAction = "reward_update"
	AuditRewardBulkUpdate AuditAction = "reward_bulk_update"
	AuditCampaignCreate   AuditAction = "campaign_create"
	AuditCampaignDelete   AuditAction = "campaign_delete"
	AuditLogin            AuditAction = "login"
	AuditExport           AuditAction = "export"
)

type AuditResult string

const (
	AuditSuccess AuditResult = "success"
	AuditFailed  AuditResult = "failed"
	AuditSkipped AuditResult = "skipped"
)

// AuditLog records one operator action against campaigns, scans or rewards.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Who
	OperatorID uint   `gorm:"not null;index" json:"operator_id"`
	IPAddress  string `gorm:"size:45" json:"ip_address,omitempty"`

	// What
	Action     AuditAction      `gorm:"size:50;not null;index" json:"action"`
	CampaignID *uint            `gorm:"index" json:"campaign_id,omitempty"`
	ScanID     *uint            `gorm:"index" json:"scan_id,omitempty"`
	FromStatus RewardStatus     `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus   RewardStatus     `gorm:"size:20" json:"to_status,omitempty"`
	Amount     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount,omitempty"`
	Detail     string           `gorm:"type:text" json:"detail,omitempty"`

	Result       AuditResult `gorm:"size:20;not null;index" json:"result"`
	ErrorMessage string      `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// All lists every model managed by AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&Operator{},
		&Client{},
		&Campaign{},
		&Scan{},
		&Manufacturer{},
		&Order{},
		&Supplier{},
		&Supply{},
		&AuditLog{},
	}
}
