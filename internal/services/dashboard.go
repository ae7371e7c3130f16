package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/models"
)

type DashboardService struct {
	container *Container
}

func NewDashboardService(c *Container) *DashboardService {
	return &DashboardService{container: c}
}

type DashboardStats struct {
	// Campaign stats
	TotalClients    int64 `json:"total_clients"`
	TotalCampaigns  int64 `json:"total_campaigns"`
	ActiveCampaigns int64 `json:"active_campaigns"`

	// Engagement
	TotalScans       int64   `json:"total_scans"`
	TotalSubmissions int64   `json:"total_submissions"`
	ConversionRate   float64 `json:"conversion_rate"`
	ScansToday       int64   `json:"scans_today"`
	SubmissionsToday int64   `json:"submissions_today"`

	// Rewards
	GrantedRewards int64           `json:"granted_rewards"`
	PendingRewards int64           `json:"pending_rewards"`
	GrantedAmount  decimal.Decimal `json:"granted_amount"`

	// Supply chain
	Manufacturers int64 `json:"manufacturers"`
	OpenOrders    int64 `json:"open_orders"`
	Suppliers     int64 `json:"suppliers"`
	OpenSupplies  int64 `json:"open_supplies"`

	WeeklyScans []int64 `json:"weekly_scans"` // Last 7 days, oldest first
}

func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	db := s.container.DB.WithContext(ctx)
	stats := &DashboardStats{}
	now := time.Now()

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.TotalClients, &models.Client{}, "", nil},
		{&stats.TotalCampaigns, &models.Campaign{}, "", nil},
		{&stats.TotalScans, &models.Scan{}, "", nil},
		{&stats.TotalSubmissions, &models.Scan{}, "form_submitted = ?", []interface{}{true}},
		{&stats.GrantedRewards, &models.Scan{}, "form_submitted = ? AND reward_status = ?", []interface{}{true, models.RewardGranted}},
		{&stats.PendingRewards, &models.Scan{}, "form_submitted = ? AND reward_status = ?", []interface{}{true, models.RewardPending}},
		{&stats.Manufacturers, &models.Manufacturer{}, "is_active = ?", []interface{}{true}},
		{&stats.OpenOrders, &models.Order{}, "status IN ?", []interface{}{[]models.OrderStatus{models.OrderPending, models.OrderProcessing}}},
		{&stats.Suppliers, &models.Supplier{}, "is_active = ?", []interface{}{true}},
		{&stats.OpenSupplies, &models.Supply{}, "status IN ?", []interface{}{[]models.SupplyStatus{models.SupplyPending, models.SupplyProcessing, models.SupplyDispatched}}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	stats.ConversionRate = percent(stats.TotalSubmissions, stats.TotalScans)

	active, err := s.container.Campaign.Active(ctx, now)
	if err != nil {
		return nil, err
	}
	stats.ActiveCampaigns = int64(len(active))

	var amounts []decimal.NullDecimal
	err = db.Model(&models.Scan{}).
		Where("form_submitted = ? AND reward_status = ?", true, models.RewardGranted).
		Pluck("reward_amount", &amounts).Error
	if err != nil {
		return nil, err
	}
	stats.GrantedAmount = summarizeBudget(decimal.Zero, amounts).GrantedAmount

	// Weekly activity
	stats.WeeklyScans = make([]int64, 7)
	today := models.DateOnly(now)
	for i := 6; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		var scans, submissions int64
		q := db.Model(&models.Scan{}).Where("scanned_at >= ? AND scanned_at < ?", dayStart, dayEnd)
		if err := q.Session(&gorm.Session{}).Count(&scans).Error; err != nil {
			return nil, err
		}
		stats.WeeklyScans[6-i] = scans

		if i == 0 {
			if err := q.Where("form_submitted = ?", true).Count(&submissions).Error; err != nil {
				return nil, err
			}
			stats.ScansToday, stats.SubmissionsToday = scans, submissions
		}
	}

	return stats, nil
}

// RecentCampaign is a campaign with its scan and submission counts.
type RecentCampaign struct {
	models.Campaign
	ScanCount       int64 `json:"scan_count"`
	SubmissionCount int64 `json:"submission_count"`
}

func (s *DashboardService) GetRecentCampaigns(ctx context.Context, limit int) ([]RecentCampaign, error) {
	if limit == 0 {
		limit = 5
	}
	db := s.container.DB.WithContext(ctx)

	var campaigns []models.Campaign
	if err := db.Preload("Client").Order("created_at DESC").Limit(limit).Find(&campaigns).Error; err != nil {
		return nil, err
	}

	result := make([]RecentCampaign, 0, len(campaigns))
	for _, c := range campaigns {
		rc := RecentCampaign{Campaign: c}
		if err := db.Model(&models.Scan{}).Where("campaign_id = ?", c.ID).Count(&rc.ScanCount).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.Scan{}).Where("campaign_id = ? AND form_submitted = ?", c.ID, true).Count(&rc.SubmissionCount).Error; err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	return result, nil
}
