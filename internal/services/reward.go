package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/audit"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/websocket"
)

const defaultInvalidNote = "Invalid details"

// RewardService moves submitted scans through the reward states and reports
// budget usage. Budgets are informational: granting past the budget is allowed.
type RewardService struct {
	container *Container
}

func NewRewardService(c *Container) *RewardService {
	return &RewardService{container: c}
}

// Actor identifies the operator behind a reward change.
type Actor struct {
	OperatorID uint
	IPAddress  string
}

type RewardUpdateRequest struct {
	Status models.RewardStatus `json:"reward_status" binding:"required"`
	Amount *decimal.Decimal    `json:"reward_amount"`
	Notes  string              `json:"notes"`
}

type BulkRewardRequest struct {
	ScanIDs []uint              `json:"scan_ids" binding:"required"`
	Status  models.RewardStatus `json:"bulk_status" binding:"required"`
	Amount  *decimal.Decimal    `json:"bulk_amount"`
	Notes   string              `json:"notes"`
}

type BulkRewardResult struct {
	Updated int    `json:"updated"`
	Skipped []uint `json:"skipped"`
}

func validateTransition(status models.RewardStatus, amount *decimal.Decimal) error {
	if !status.Valid() {
		return ErrInvalidRewardStatus
	}
	if status == models.RewardGranted {
		if amount == nil {
			return invalid("reward_amount", "Reward amount is required when granting")
		}
		if amount.IsNegative() {
			return invalid("reward_amount", "Reward amount cannot be negative")
		}
	}
	return nil
}

// transitionUpdates builds the column changes for moving to status.
// reward_granted_at is set exactly when the status is granted.
func transitionUpdates(status models.RewardStatus, amount *decimal.Decimal, notes string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"reward_status": status}
	switch status {
	case models.RewardGranted:
		updates["reward_amount"] = *amount
		updates["reward_granted_at"] = now
	default:
		updates["reward_amount"] = nil
		updates["reward_granted_at"] = nil
	}
	if status == models.RewardInvalid {
		if strings.TrimSpace(notes) == "" {
			notes = defaultInvalidNote
		}
		updates["reward_notes"] = notes
	} else if notes != "" {
		updates["reward_notes"] = notes
	}
	return updates
}

// apply changes one submitted scan of a campaign and returns its previous status.
func (s *RewardService) apply(ctx context.Context, campaignID, scanID uint, status models.RewardStatus, amount *decimal.Decimal, notes string) (*models.Scan, models.RewardStatus, error) {
	var scan models.Scan
	var from models.RewardStatus
	now := time.Now()

	err := s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND campaign_id = ?", scanID, campaignID).First(&scan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScanNotFound
		}
		if err != nil {
			return err
		}
		if !scan.FormSubmitted {
			return ErrNotSubmitted
		}
		from = scan.RewardStatus

		if err := tx.Model(&scan).Updates(transitionUpdates(status, amount, notes, now)).Error; err != nil {
			return err
		}
		return tx.First(&scan, scan.ID).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &scan, from, nil
}

// UpdateStatus applies one operator transition. Any state may move to any
// other, including back to pending.
func (s *RewardService) UpdateStatus(ctx context.Context, actor Actor, campaignID, scanID uint, req *RewardUpdateRequest) (*models.Scan, error) {
	if err := validateTransition(req.Status, req.Amount); err != nil {
		return nil, err
	}

	scan, from, err := s.apply(ctx, campaignID, scanID, req.Status, req.Amount, req.Notes)

	entry := &audit.LogEntry{
		OperatorID: actor.OperatorID,
		IPAddress:  actor.IPAddress,
		Action:     models.AuditRewardUpdate,
		CampaignID: &campaignID,
		ScanID:     &scanID,
		FromStatus: from,
		ToStatus:   req.Status,
		Amount:     req.Amount,
		Result:     models.AuditSuccess,
		Err:        err,
	}
	if err != nil {
		entry.Result = models.AuditFailed
	}
	s.container.Audit.Log(ctx, entry)

	if err != nil {
		if errors.Is(err, ErrScanNotFound) || errors.Is(err, ErrNotSubmitted) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update reward: %w", err)
	}

	metrics.RecordRewardTransition(string(req.Status), 1)
	s.publish(ctx, campaignID, []uint{scan.ID}, req.Status)
	return scan, nil
}

// BulkUpdate applies the same transition to several scans. Scans that cannot
// be updated are skipped without stopping the batch.
func (s *RewardService) BulkUpdate(ctx context.Context, actor Actor, campaignID uint, req *BulkRewardRequest) (*BulkRewardResult, error) {
	if err := validateTransition(req.Status, req.Amount); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	result := &BulkRewardResult{Skipped: []uint{}}
	var updated []uint

	for _, scanID := range req.ScanIDs {
		id := scanID
		_, from, err := s.apply(ctx, campaignID, id, req.Status, req.Amount, req.Notes)

		entry := &audit.LogEntry{
			OperatorID: actor.OperatorID,
			IPAddress:  actor.IPAddress,
			Action:     models.AuditRewardBulkUpdate,
			CampaignID: &campaignID,
			ScanID:     &id,
			FromStatus: from,
			ToStatus:   req.Status,
			Amount:     req.Amount,
			Result:     models.AuditSuccess,
		}
		if err != nil {
			log.Warn().Err(err).Uint("scan_id", id).Msg("Skipping scan in bulk reward update")
			entry.Result = models.AuditSkipped
			entry.Err = err
			result.Skipped = append(result.Skipped, id)
		} else {
			updated = append(updated, id)
		}
		s.container.Audit.Log(ctx, entry)
	}

	result.Updated = len(updated)
	if result.Updated > 0 {
		metrics.RecordRewardTransition(string(req.Status), result.Updated)
		s.publish(ctx, campaignID, updated, req.Status)
	}
	return result, nil
}

func (s *RewardService) publish(ctx context.Context, campaignID uint, scanIDs []uint, status models.RewardStatus) {
	var campaign models.Campaign
	if err := s.container.DB.WithContext(ctx).Select("id", "unique_id").First(&campaign, campaignID).Error; err != nil {
		return
	}
	s.container.WSHub.Publish(campaign.UniqueID, websocket.EventRewardUpdated, map[string]interface{}{
		"campaign_id": campaignID,
		"scan_ids":    scanIDs,
		"status":      status,
	})
}

// BudgetSummary is derived from granted rewards at read time.
type BudgetSummary struct {
	TotalBudget      decimal.Decimal `json:"total_budget"`
	GrantedAmount    decimal.Decimal `json:"granted_amount"`
	RemainingBudget  decimal.Decimal `json:"remaining_budget"`
	BudgetPercentage float64         `json:"budget_percentage"`
	GrantedCount     int             `json:"granted_count"`
	AvgReward        decimal.Decimal `json:"avg_reward"`
	OverBudget       bool            `json:"over_budget"`
}

// Budget sums granted rewards of a campaign against its budget.
func (s *RewardService) Budget(ctx context.Context, campaign *models.Campaign) (*BudgetSummary, error) {
	var amounts []decimal.NullDecimal
	err := s.container.DB.WithContext(ctx).Model(&models.Scan{}).
		Where("campaign_id = ? AND form_submitted = ? AND reward_status = ?", campaign.ID, true, models.RewardGranted).
		Pluck("reward_amount", &amounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum granted rewards: %w", err)
	}
	return summarizeBudget(campaign.BudgetOfRewards, amounts), nil
}

func summarizeBudget(budget decimal.Decimal, amounts []decimal.NullDecimal) *BudgetSummary {
	granted := decimal.Zero
	for _, a := range amounts {
		if a.Valid {
			granted = granted.Add(a.Decimal)
		}
	}

	summary := &BudgetSummary{
		TotalBudget:     budget,
		GrantedAmount:   granted,
		RemainingBudget: budget.Sub(granted),
		GrantedCount:    len(amounts),
		AvgReward:       decimal.Zero,
		OverBudget:      granted.GreaterThan(budget),
	}
	if budget.IsPositive() {
		pct := decimal.Min(granted.Mul(hundred).Div(budget), hundred)
		summary.BudgetPercentage = pct.Round(1).InexactFloat64()
	}
	if len(amounts) > 0 {
		summary.AvgReward = granted.Div(decimal.NewFromInt(int64(len(amounts)))).Round(2)
	}
	return summary
}

type SubmissionFilter struct {
	Status models.RewardStatus
	Search string
	Page   int
	Limit  int
}

// RewardStats counts submissions per reward status.
type RewardStats struct {
	TotalScans       int64 `json:"total_scans"`
	TotalSubmissions int64 `json:"total_submissions"`
	Pending          int64 `json:"pending"`
	Granted          int64 `json:"granted"`
	Invalid          int64 `json:"invalid"`
	Duplicate        int64 `json:"duplicate"`
}

type RewardDetail struct {
	Campaign    *models.Campaign `json:"campaign"`
	Stats       RewardStats      `json:"stats"`
	Budget      *BudgetSummary   `json:"budget"`
	Submissions []models.Scan    `json:"submissions"`
	Total       int64            `json:"total"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
}

func (s *RewardService) stats(ctx context.Context, campaignID uint) (RewardStats, error) {
	var stats RewardStats
	db := s.container.DB.WithContext(ctx)

	if err := db.Model(&models.Scan{}).Where("campaign_id = ?", campaignID).Count(&stats.TotalScans).Error; err != nil {
		return stats, err
	}

	var rows []struct {
		RewardStatus models.RewardStatus
		N            int64
	}
	err := db.Model(&models.Scan{}).
		Select("reward_status, COUNT(*) AS n").
		Where("campaign_id = ? AND form_submitted = ?", campaignID, true).
		Group("reward_status").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.TotalSubmissions += r.N
		switch r.RewardStatus {
		case models.RewardPending:
			stats.Pending = r.N
		case models.RewardGranted:
			stats.Granted = r.N
		case models.RewardInvalid:
			stats.Invalid = r.N
		case models.RewardDuplicate:
			stats.Duplicate = r.N
		}
	}
	return stats, nil
}

// Detail lists the submissions of a campaign, newest first, with reward stats.
func (s *RewardService) Detail(ctx context.Context, campaignID uint, filter SubmissionFilter) (*RewardDetail, error) {
	campaign, err := s.container.Campaign.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rewards: %w", err)
	}
	budget, err := s.Budget(ctx, campaign)
	if err != nil {
		return nil, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 25)
	query := s.container.DB.WithContext(ctx).Model(&models.Scan{}).
		Where("campaign_id = ? AND form_submitted = ?", campaign.ID, true)
	if filter.Status != "" {
		query = query.Where("reward_status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(user_name) LIKE ? OR user_phone LIKE ?", like, like)
	}

	detail := &RewardDetail{Campaign: campaign, Stats: stats, Budget: budget, Page: page, Limit: limit}
	if err := query.Session(&gorm.Session{}).Count(&detail.Total).Error; err != nil {
		return nil, err
	}
	err = query.Order("form_submitted_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&detail.Submissions).Error
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// CampaignRewards is one row of the rewards overview.
type CampaignRewards struct {
	Campaign models.Campaign `json:"campaign"`
	RewardStats
}

// Overview lists every campaign with its reward counts, newest first.
func (s *RewardService) Overview(ctx context.Context, search string) ([]CampaignRewards, error) {
	campaigns, _, err := s.container.Campaign.List(ctx, CampaignFilter{Search: search, Limit: maxPageSize})
	if err != nil {
		return nil, err
	}

	out := make([]CampaignRewards, 0, len(campaigns))
	for _, c := range campaigns {
		stats, err := s.stats(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count rewards: %w", err)
		}
		out = append(out, CampaignRewards{Campaign: c, RewardStats: stats})
	}
	return out, nil
}
