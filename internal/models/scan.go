package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

type RewardStatus string

const (
	RewardPending   RewardStatus = "pending"
	RewardGranted   RewardStatus = "granted"
	RewardInvalid   RewardStatus = "invalid"
	RewardDuplicate RewardStatus = "duplicate"
)

// RewardStatuses lists every status an operator may set, in display order.
var RewardStatuses = []RewardStatus{RewardPending, RewardGranted, RewardInvalid, RewardDuplicate}

func (s RewardStatus) Valid() bool {
	switch s {
	case RewardPending, RewardGranted, RewardInvalid, RewardDuplicate:
		return true
	}
	return false
}

// Display is the label shown to operators and written to exports.
func (s RewardStatus) Display() string {
	switch s {
	case RewardPending:
		return "Video Watched - Pending"
	case RewardGranted:
		return "Reward Granted"
	case RewardInvalid:
		return "Invalid Details"
	case RewardDuplicate:
		return "Duplicate Number"
	}
	return string(s)
}

// Scan is one visitor engagement, from the QR landing to an optional form submission.
//
// The partial unique index on (campaign_id, user_phone) is the storage-level
// guarantee that a phone number is submitted at most once per campaign.
type Scan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;index:idx_scans_campaign_scanned,priority:1;index:idx_scans_campaign_reward,priority:1;uniqueIndex:uniq_scan_campaign_phone,priority:1,where:form_submitted = true AND user_phone <> ''" json:"campaign_id"`
	Campaign   *Campaign `gorm:"constraint:OnDelete:CASCADE" json:"campaign,omitempty"`

	// Device
	IPAddress         string     `gorm:"size:45" json:"ip_address"`
	UserAgent         string     `gorm:"type:text" json:"user_agent"`
	DeviceFingerprint string     `gorm:"size:64;index" json:"device_fingerprint"`
	DeviceType        DeviceType `gorm:"size:20;default:'mobile'" json:"device_type"`
	Browser           string     `gorm:"size:50" json:"browser"`
	OS                string     `gorm:"size:50" json:"os"`

	// Video engagement, in seconds
	VideoDuration   int             `gorm:"not null;default:0" json:"video_duration"`
	VideoWatched    int             `gorm:"not null;default:0" json:"video_watched"`
	VideoCompleted  bool            `gorm:"not null;default:false" json:"video_completed"`
	VideoPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"video_percentage"`

	// Submission
	UserName        string     `gorm:"size:100" json:"user_name"`
	UserPhone       string     `gorm:"size:20;uniqueIndex:uniq_scan_campaign_phone,priority:2" json:"user_phone"`
	FormSubmitted   bool       `gorm:"not null;default:false" json:"form_submitted"`
	FormSubmittedAt *time.Time `json:"form_submitted_at,omitempty"`

	SessionID string `gorm:"size:64;index" json:"session_id"`

	// Reward
	RewardStatus    RewardStatus     `gorm:"size:20;not null;default:'pending';index:idx_scans_campaign_reward,priority:2" json:"reward_status"`
	RewardAmount    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"reward_amount,omitempty"`
	RewardGrantedAt *time.Time       `json:"reward_granted_at,omitempty"`
	RewardNotes     string           `gorm:"type:text" json:"reward_notes"`

	ScannedAt    time.Time `gorm:"autoCreateTime;index:idx_scans_campaign_scanned,priority:2" json:"scanned_at"`
	LastActivity time.Time `gorm:"autoUpdateTime" json:"last_activity"`
}

var hundred = decimal.NewFromInt(100)

// WatchPercentage is min(100, watched/duration*100) rounded to two places, or 0
// while the duration is unknown.
func WatchPercentage(watched, duration int) decimal.Decimal {
	if duration <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(watched)).Mul(hundred).Div(decimal.NewFromInt(int64(duration)))
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2)
}

// RecomputePercentage refreshes VideoPercentage from the watch counters.
func (s *Scan) RecomputePercentage() {
	s.VideoPercentage = WatchPercentage(s.VideoWatched, s.VideoDuration)
}

// EngagementScore weights watch percentage at half and gives 25 points each
// for completing the video and submitting the form.
func (s *Scan) EngagementScore() float64 {
	score := decimal.Zero
	if s.VideoPercentage.IsPositive() {
		score = decimal.Min(s.VideoPercentage, hundred).Mul(decimal.NewFromFloat(0.5))
	}
	if s.VideoCompleted {
		score = score.Add(decimal.NewFromInt(25))
	}
	if s.FormSubmitted {
		score = score.Add(decimal.NewFromInt(25))
	}
	return score.Round(2).InexactFloat64()
}

// IsReturningUser is true for a visitor who watched part of the video but never submitted.
func (s *Scan) IsReturningUser() bool {
	return s.VideoWatched > 0 && !s.FormSubmitted
}

func formatSeconds(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func (s *Scan) WatchDurationFormatted() string {
	if s.VideoWatched == 0 {
		return "Not watched"
	}
	return formatSeconds(s.VideoWatched)
}

func (s *Scan) TotalDurationFormatted() string {
	if s.VideoDuration == 0 {
		return "Unknown"
	}
	return formatSeconds(s.VideoDuration)
}
