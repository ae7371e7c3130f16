package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/models"
)

type PerformanceLevel string

const (
	PerformanceExcellent        PerformanceLevel = "excellent"
	PerformanceGood             PerformanceLevel = "good"
	PerformanceAverage          PerformanceLevel = "average"
	PerformanceNeedsImprovement PerformanceLevel = "needs_improvement"
)

// ClassifyPerformance grades a campaign by form conversion and video completion rates.
func ClassifyPerformance(conversion, completion float64) PerformanceLevel {
	switch {
	case conversion >= 30 && completion >= 80:
		return PerformanceExcellent
	case conversion >= 20 && completion >= 60:
		return PerformanceGood
	case conversion >= 10 && completion >= 40:
		return PerformanceAverage
	}
	return PerformanceNeedsImprovement
}

type ReportService struct {
	container *Container
}

func NewReportService(c *Container) *ReportService {
	return &ReportService{container: c}
}

type ReportMetrics struct {
	TotalScans          int64   `json:"total_scans"`
	UniqueDevices       int64   `json:"unique_devices"`
	FormSubmissions     int64   `json:"form_submissions"`
	VideoCompletions    int64   `json:"video_completions"`
	FormConversionRate  float64 `json:"form_conversion_rate"`
	VideoCompletionRate float64 `json:"video_completion_rate"`
	AvgWatchTime        float64 `json:"avg_watch_time"`
	AvgVideoPercentage  float64 `json:"avg_video_percentage"`
	BouncePercentage    float64 `json:"bounce_percentage"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type DayTrend struct {
	Date        string `json:"date"`
	Scans       int64  `json:"scans"`
	Submissions int64  `json:"submissions"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type ScoredScan struct {
	models.Scan
	EngagementScore float64 `json:"engagement_score"`
	WatchTime       string  `json:"watch_time"`
	VideoLength     string  `json:"video_length"`
}

// CampaignReport is the full analytics view of one campaign.
type CampaignReport struct {
	Campaign          *models.Campaign `json:"campaign"`
	Metrics           ReportMetrics    `json:"metrics"`
	DeviceStats       []LabelCount     `json:"device_stats"`
	BrowserStats      []LabelCount     `json:"browser_stats"`
	OSStats           []LabelCount     `json:"os_stats"`
	HourlyScans       [24]int64        `json:"hourly_scans"`
	PeakHours         []HourCount      `json:"peak_hours"`
	DailyTrend        []DayTrend       `json:"daily_trend"`
	WatchDistribution []LabelCount     `json:"watch_distribution"`
	EngagementFunnel  []LabelCount     `json:"engagement_funnel"`
	PerformanceLevel  PerformanceLevel `json:"performance_level"`
	RecentSubmissions []ScoredScan     `json:"recent_submissions"`
	RecentScans       []ScoredScan     `json:"recent_scans"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

var (
	pct25 = decimal.NewFromInt(25)
	pct50 = decimal.NewFromInt(50)
	pct75 = decimal.NewFromInt(75)
)

// watchBucket places a percentage into the report's watch distribution.
func watchBucket(p decimal.Decimal) int {
	switch {
	case p.LessThanOrEqual(pct25):
		return 0
	case p.LessThanOrEqual(pct50):
		return 1
	case p.LessThanOrEqual(pct75):
		return 2
	case p.LessThan(hundred):
		return 3
	}
	return 4
}

var watchBucketLabels = []string{"0-25%", "26-50%", "51-75%", "76-99%", "100%"}

func countBy(scans []models.Scan, key func(*models.Scan) string, top int) []LabelCount {
	counts := map[string]int64{}
	for i := range scans {
		counts[key(&scans[i])]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

func scored(scans []models.Scan) []ScoredScan {
	out := make([]ScoredScan, 0, len(scans))
	for i := range scans {
		out = append(out, ScoredScan{
			Scan:            scans[i],
			EngagementScore: scans[i].EngagementScore(),
			WatchTime:       scans[i].WatchDurationFormatted(),
			VideoLength:     scans[i].TotalDurationFormatted(),
		})
	}
	return out
}

// buildReport aggregates scans, which must be ordered newest first.
func buildReport(campaign *models.Campaign, scans []models.Scan, now time.Time) *CampaignReport {
	r := &CampaignReport{Campaign: campaign, GeneratedAt: now}
	m := &r.Metrics
	m.TotalScans = int64(len(scans))

	devices := map[string]bool{}
	var watchedSum, watchedN, pctN, bounces, started, halfway int64
	pctSum := decimal.Zero
	buckets := make([]int64, len(watchBucketLabels))
	var submitted []models.Scan

	for i := range scans {
		s := &scans[i]
		devices[s.DeviceFingerprint] = true
		if s.FormSubmitted {
			m.FormSubmissions++
			submitted = append(submitted, *s)
		}
		if s.VideoCompleted {
			m.VideoCompletions++
		}
		if s.VideoWatched > 0 {
			watchedSum += int64(s.VideoWatched)
			watchedN++
			started++
		} else {
			bounces++
		}
		if !s.VideoPercentage.IsZero() {
			pctSum = pctSum.Add(s.VideoPercentage)
			pctN++
		}
		if s.VideoPercentage.GreaterThanOrEqual(pct50) {
			halfway++
		}
		buckets[watchBucket(s.VideoPercentage)]++
		r.HourlyScans[s.ScannedAt.Hour()]++
	}

	m.UniqueDevices = int64(len(devices))
	m.FormConversionRate = percent(m.FormSubmissions, m.TotalScans)
	m.VideoCompletionRate = percent(m.VideoCompletions, m.TotalScans)
	m.BouncePercentage = percent(bounces, m.TotalScans)
	if watchedN > 0 {
		m.AvgWatchTime = decimal.NewFromInt(watchedSum).Div(decimal.NewFromInt(watchedN)).Round(1).InexactFloat64()
	}
	if pctN > 0 {
		m.AvgVideoPercentage = pctSum.Div(decimal.NewFromInt(pctN)).Round(2).InexactFloat64()
	}

	r.DeviceStats = countBy(scans, func(s *models.Scan) string { return string(s.DeviceType) }, 0)
	r.BrowserStats = countBy(scans, func(s *models.Scan) string { return s.Browser }, 5)
	r.OSStats = countBy(scans, func(s *models.Scan) string { return s.OS }, 5)

	for i, label := range watchBucketLabels {
		r.WatchDistribution = append(r.WatchDistribution, LabelCount{Label: label, Count: buckets[i]})
	}
	r.EngagementFunnel = []LabelCount{
		{Label: "Total Scans", Count: m.TotalScans},
		{Label: "Video Started", Count: started},
		{Label: "Video 50%+", Count: halfway},
		{Label: "Video Completed", Count: m.VideoCompletions},
		{Label: "Form Submitted", Count: m.FormSubmissions},
	}

	hours := make([]HourCount, 24)
	for h := range hours {
		hours[h] = HourCount{Hour: h, Count: r.HourlyScans[h]}
	}
	sort.SliceStable(hours, func(i, j int) bool { return hours[i].Count > hours[j].Count })
	r.PeakHours = hours[:3]

	r.DailyTrend = dailyTrend(scans, now, 30)
	r.PerformanceLevel = ClassifyPerformance(m.FormConversionRate, m.VideoCompletionRate)

	sort.SliceStable(submitted, func(i, j int) bool {
		return submittedAt(&submitted[i]).After(submittedAt(&submitted[j]))
	})
	if len(submitted) > 20 {
		submitted = submitted[:20]
	}
	r.RecentSubmissions = scored(submitted)

	recent := scans
	if len(recent) > 10 {
		recent = recent[:10]
	}
	r.RecentScans = scored(recent)
	return r
}

func submittedAt(s *models.Scan) time.Time {
	if s.FormSubmittedAt == nil {
		return time.Time{}
	}
	return *s.FormSubmittedAt
}

// dailyTrend counts scans and submissions for each of the last days days, oldest first.
func dailyTrend(scans []models.Scan, now time.Time, days int) []DayTrend {
	first := models.DateOnly(now).AddDate(0, 0, -(days - 1))
	trend := make([]DayTrend, days)
	for i := range trend {
		trend[i].Date = first.AddDate(0, 0, i).Format(dateLayout)
	}
	for i := range scans {
		day := int(models.DateOnly(scans[i].ScannedAt).Sub(first).Hours() / 24)
		if day < 0 || day >= days {
			continue
		}
		trend[day].Scans++
		if scans[i].FormSubmitted {
			trend[day].Submissions++
		}
	}
	return trend
}

// Detail builds the report for the campaign with the given QR identifier.
func (s *ReportService) Detail(ctx context.Context, uid string) (*CampaignReport, error) {
	campaign, err := s.container.Campaign.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	var scans []models.Scan
	err = s.container.DB.WithContext(ctx).
		Where("campaign_id = ?", campaign.ID).
		Order("scanned_at DESC").
		Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}
	return buildReport(campaign, scans, time.Now()), nil
}

// ReportSummary is one row of the reports overview.
type ReportSummary struct {
	Campaign            models.Campaign `json:"campaign"`
	TotalScans          int64           `json:"total_scans"`
	FormSubmissions     int64           `json:"form_submissions"`
	VideoCompletions    int64           `json:"video_completions"`
	FormConversionRate  float64         `json:"form_conversion_rate"`
	VideoCompletionRate float64         `json:"video_completion_rate"`
	AvgWatchTime        float64         `json:"avg_watch_time"`
	UniqueDevices       int64           `json:"unique_devices"`
}

// List summarizes every campaign matching search (name, client, area served).
func (s *ReportService) List(ctx context.Context, search string, page, limit int) ([]ReportSummary, int64, error) {
	query := s.container.DB.WithContext(ctx).Model(&models.Campaign{}).
		Joins("JOIN clients ON clients.id = campaigns.client_id")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(campaigns.name) LIKE ? OR LOWER(clients.company_name) LIKE ? OR LOWER(campaigns.area_served) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit, 10)
	var campaigns []models.Campaign
	err := query.Preload("Client").Order("campaigns.created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]ReportSummary, 0, len(campaigns))
	for _, c := range campaigns {
		var row struct {
			TotalScans       int64
			FormSubmissions  int64
			VideoCompletions int64
			WatchedSum       int64
			UniqueDevices    int64
		}
		err := s.container.DB.WithContext(ctx).Model(&models.Scan{}).
			Select(`COUNT(*) AS total_scans,
				COALESCE(SUM(CASE WHEN form_submitted THEN 1 ELSE 0 END), 0) AS form_submissions,
				COALESCE(SUM(CASE WHEN video_completed THEN 1 ELSE 0 END), 0) AS video_completions,
				COALESCE(SUM(video_watched), 0) AS watched_sum,
				COUNT(DISTINCT device_fingerprint) AS unique_devices`).
			Where("campaign_id = ?", c.ID).
			Scan(&row).Error
		if err != nil {
			return nil, 0, err
		}

		summary := ReportSummary{
			Campaign:            c,
			TotalScans:          row.TotalScans,
			FormSubmissions:     row.FormSubmissions,
			VideoCompletions:    row.VideoCompletions,
			FormConversionRate:  percent(row.FormSubmissions, row.TotalScans),
			VideoCompletionRate: percent(row.VideoCompletions, row.TotalScans),
			UniqueDevices:       row.UniqueDevices,
		}
		if row.TotalScans > 0 {
			summary.AvgWatchTime = decimal.NewFromInt(row.WatchedSum).Div(decimal.NewFromInt(row.TotalScans)).Round(1).InexactFloat64()
		}
		out = append(out, summary)
	}
	return out, total, nil
}
