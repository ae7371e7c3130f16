package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	CompanyName        string `gorm:"size:255;not null" json:"company_name"`
	Email              string `gorm:"size:254" json:"email"`
	Address            string `gorm:"type:text" json:"address"`
	IndustryType       string `gorm:"size:100" json:"industry_type"`
	ContactPersonName  string `gorm:"size:100" json:"contact_person_name"`
	ContactPhoneNumber string `gorm:"size:20" json:"contact_phone_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Campaign struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	UniqueID string  `gorm:"size:50;uniqueIndex;not null" json:"unique_id"` // value encoded in the QR payload
	Name     string  `gorm:"size:255;not null" json:"name"`
	VideoURL string  `gorm:"size:500" json:"video_url,omitempty"`
	ClientID uint    `gorm:"not null;index" json:"client_id"`
	Client   *Client `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`

	// Active window, inclusive on both ends
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`

	NumberOfBottles   int             `gorm:"default:0" json:"number_of_bottles"`
	BudgetOfRewards   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"budget_of_rewards"`
	CustomizedMessage string          `gorm:"type:text" json:"customized_message"`

	AreaServed    string `gorm:"type:text" json:"area_served"`
	FacebookLink  string `gorm:"size:500" json:"facebook_link,omitempty"`
	WebsiteLink   string `gorm:"size:500" json:"website_link,omitempty"`
	InstagramLink string `gorm:"size:500" json:"instagram_link,omitempty"`
	OtherLinks    string `gorm:"type:text" json:"other_links,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateOnly strips the clock from t, keeping its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsActive reports whether now falls on or between the start and end dates.
func (c *Campaign) IsActive(now time.Time) bool {
	today := DateOnly(now)
	return !today.Before(DateOnly(c.StartDate)) && !today.After(DateOnly(c.EndDate))
}

// DurationDays counts both the first and the last day.
func (c *Campaign) DurationDays() int {
	return int(DateOnly(c.EndDate).Sub(DateOnly(c.StartDate)).Hours()/24) + 1
}
