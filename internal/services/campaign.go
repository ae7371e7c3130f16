package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/audit"
	"github.com/socialzwater/backend/internal/models"
)

const dateLayout = "2006-01-02"

type CampaignService struct {
	container *Container
}

func NewCampaignService(c *Container) *CampaignService {
	return &CampaignService{container: c}
}

type CampaignRequest struct {
	Name              string          `json:"name" binding:"required"`
	ClientID          uint            `json:"client_id" binding:"required"`
	VideoURL          string          `json:"video_url"`
	StartDate         string          `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate           string          `json:"end_date" binding:"required"`
	NumberOfBottles   int             `json:"number_of_bottles"`
	BudgetOfRewards   decimal.Decimal `json:"budget_of_rewards"`
	CustomizedMessage string          `json:"customized_message"`
	AreaServed        string          `json:"area_served"`
	FacebookLink      string          `json:"facebook_link"`
	WebsiteLink       string          `json:"website_link"`
	InstagramLink     string          `json:"instagram_link"`
	OtherLinks        string          `json:"other_links"`
}

type CampaignFilter struct {
	Search   string
	ClientID uint
	Page     int
	Limit    int
}

// CampaignView adds derived fields to a stored campaign.
type CampaignView struct {
	models.Campaign
	IsActive     bool   `json:"is_active"`
	DurationDays int    `json:"duration_days"`
	LandingURL   string `json:"landing_url"`
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("start_date", "Use the YYYY-MM-DD format")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("end_date", "Use the YYYY-MM-DD format")
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return s, e, nil
}

func initials(name string) string {
	letters := make([]rune, 0, 3)
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		letters = append(letters, unicode.ToUpper(r))
		if len(letters) == 3 {
			break
		}
	}
	return string(letters)
}

// GenerateUniqueID builds a QR identifier like "BSW_SH_04821" from the
// client and campaign names.
func GenerateUniqueID(clientName, campaignName string) string {
	return fmt.Sprintf("%s_%s_%05d", initials(clientName), initials(campaignName), rand.Intn(100000))
}

func (s *CampaignService) uniqueID(ctx context.Context, clientName, campaignName string) (string, error) {
	for {
		uid := GenerateUniqueID(clientName, campaignName)
		var n int64
		if err := s.container.DB.WithContext(ctx).Model(&models.Campaign{}).Where("unique_id = ?", uid).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return uid, nil
		}
	}
}

// LandingURL is the address encoded in a campaign's QR code.
func (s *CampaignService) LandingURL(c *models.Campaign) string {
	return strings.TrimRight(s.container.Config.SiteDomain, "/") + "/sw/adv/" + c.UniqueID + "/"
}

func (s *CampaignService) view(c models.Campaign, now time.Time) CampaignView {
	return CampaignView{
		Campaign:     c,
		IsActive:     c.IsActive(now),
		DurationDays: c.DurationDays(),
		LandingURL:   s.LandingURL(&c),
	}
}

func (s *CampaignService) List(ctx context.Context, filter CampaignFilter) ([]models.Campaign, int64, error) {
	query := s.container.DB.WithContext(ctx).Model(&models.Campaign{}).
		Joins("JOIN clients ON clients.id = campaigns.client_id")

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(campaigns.name) LIKE ? OR LOWER(clients.company_name) LIKE ? OR LOWER(campaigns.customized_message) LIKE ?", like, like, like)
	}
	if filter.ClientID != 0 {
		query = query.Where("campaigns.client_id = ?", filter.ClientID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 20)
	var campaigns []models.Campaign
	err := query.Preload("Client").
		Order("campaigns.created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// ListViews is List with the derived fields filled in.
func (s *CampaignService) ListViews(ctx context.Context, filter CampaignFilter) ([]CampaignView, int64, error) {
	campaigns, total, err := s.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	views := make([]CampaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, s.view(c, now))
	}
	return views, total, nil
}

func (s *CampaignService) Get(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.container.DB.WithContext(ctx).Preload("Client").First(&campaign, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *CampaignService) GetView(ctx context.Context, id uint) (*CampaignView, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(*c, time.Now())
	return &v, nil
}

func (s *CampaignService) GetByUID(ctx context.Context, uid string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.container.DB.WithContext(ctx).Preload("Client").Where("unique_id = ?", uid).First(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *CampaignService) Create(ctx context.Context, actor Actor, req *CampaignRequest) (*models.Campaign, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.BudgetOfRewards.IsNegative() {
		return nil, invalid("budget_of_rewards", "Budget cannot be negative")
	}

	client, err := s.container.Client.Get(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	uid, err := s.uniqueID(ctx, client.CompanyName, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate campaign id: %w", err)
	}

	campaign := &models.Campaign{
		UniqueID: uid,
		ClientID: client.ID,
	}
	applyCampaignRequest(campaign, req, start, end)

	if err := s.container.DB.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	campaign.Client = client

	s.container.Audit.Log(ctx, &audit.LogEntry{
		OperatorID: actor.OperatorID,
		IPAddress:  actor.IPAddress,
		Action:     models.AuditCampaignCreate,
		CampaignID: &campaign.ID,
		Detail:     uid,
		Result:     models.AuditSuccess,
	})
	return campaign, nil
}

func applyCampaignRequest(c *models.Campaign, req *CampaignRequest, start, end time.Time) {
	c.Name = req.Name
	c.VideoURL = req.VideoURL
	c.StartDate = start
	c.EndDate = end
	c.NumberOfBottles = req.NumberOfBottles
	c.BudgetOfRewards = req.BudgetOfRewards
	c.CustomizedMessage = req.CustomizedMessage
	c.AreaServed = req.AreaServed
	c.FacebookLink = req.FacebookLink
	c.WebsiteLink = req.WebsiteLink
	c.InstagramLink = req.InstagramLink
	c.OtherLinks = req.OtherLinks
}

// Update replaces the editable fields. The QR identifier never changes.
func (s *CampaignService) Update(ctx context.Context, id uint, req *CampaignRequest) (*models.Campaign, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.BudgetOfRewards.IsNegative() {
		return nil, invalid("budget_of_rewards", "Budget cannot be negative")
	}

	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ClientID != campaign.ClientID {
		client, err := s.container.Client.Get(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		campaign.ClientID = client.ID
		campaign.Client = client
	}
	applyCampaignRequest(campaign, req, start, end)

	if err := s.container.DB.WithContext(ctx).Omit("Client").Save(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

// Delete removes a campaign together with its scans.
func (s *CampaignService) Delete(ctx context.Context, actor Actor, id uint) error {
	var deleted int64
	err := s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", id).Delete(&models.Scan{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Campaign{}, id)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}

	s.container.Audit.Log(ctx, &audit.LogEntry{
		OperatorID: actor.OperatorID,
		IPAddress:  actor.IPAddress,
		Action:     models.AuditCampaignDelete,
		CampaignID: &id,
		Result:     models.AuditSuccess,
	})
	return nil
}

// Active returns the campaigns whose date window covers now.
func (s *CampaignService) Active(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	var all []models.Campaign
	if err := s.container.DB.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if c.IsActive(now) {
			active = append(active, c)
		}
	}
	return active, nil
}
