package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/models"
)

type ClientService struct {
	container *Container
}

func NewClientService(c *Container) *ClientService {
	return &ClientService{container: c}
}

type ClientRequest struct {
	CompanyName        string `json:"company_name" binding:"required"`
	Email              string `json:"email" binding:"omitempty,email"`
	Address            string `json:"address"`
	IndustryType       string `json:"industry_type"`
	ContactPersonName  string `json:"contact_person_name"`
	ContactPhoneNumber string `json:"contact_phone_number"`
}

// ClientSummary is a client with its campaign count.
type ClientSummary struct {
	models.Client
	CampaignCount int64 `json:"campaign_count"`
}

func (s *ClientService) List(ctx context.Context, search string, page, limit int) ([]ClientSummary, int64, error) {
	query := s.container.DB.WithContext(ctx).Model(&models.Client{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(company_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(contact_person_name) LIKE ? OR LOWER(industry_type) LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit, 12)
	var clients []models.Client
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ClientSummary, 0, len(clients))
	for _, c := range clients {
		summary := ClientSummary{Client: c}
		err := s.container.DB.WithContext(ctx).Model(&models.Campaign{}).Where("client_id = ?", c.ID).Count(&summary.CampaignCount).Error
		if err != nil {
			return nil, 0, err
		}
		out = append(out, summary)
	}
	return out, total, nil
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := s.container.DB.WithContext(ctx).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func applyClientRequest(c *models.Client, req *ClientRequest) {
	c.CompanyName = strings.TrimSpace(req.CompanyName)
	c.Email = req.Email
	c.Address = req.Address
	c.IndustryType = req.IndustryType
	c.ContactPersonName = req.ContactPersonName
	c.ContactPhoneNumber = req.ContactPhoneNumber
}

func (s *ClientService) Create(ctx context.Context, req *ClientRequest) (*models.Client, error) {
	client := &models.Client{}
	applyClientRequest(client, req)
	if client.CompanyName == "" {
		return nil, invalid("company_name", "Company name is required")
	}
	if err := s.container.DB.WithContext(ctx).Create(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Update(ctx context.Context, id uint, req *ClientRequest) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyClientRequest(client, req)
	if client.CompanyName == "" {
		return nil, invalid("company_name", "Company name is required")
	}
	if err := s.container.DB.WithContext(ctx).Save(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client, its campaigns and their scans.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	var deleted int64
	err := s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaigns := tx.Model(&models.Campaign{}).Select("id").Where("client_id = ?", id)
		if err := tx.Where("campaign_id IN (?)", campaigns).Delete(&models.Scan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Campaign{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Client{}, id)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}
