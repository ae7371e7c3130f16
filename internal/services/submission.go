package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialzwater/backend/internal/database"
	"github.com/socialzwater/backend/internal/locks"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/websocket"
)

const (
	submissionLockTTL  = 10 * time.Second
	submissionLockWait = 5 * time.Second
)

// SubmissionService accepts the name and phone form behind the video.
type SubmissionService struct {
	container *Container
}

func NewSubmissionService(c *Container) *SubmissionService {
	return &SubmissionService{container: c}
}

type SubmitRequest struct {
	CampaignUID  string
	VisitorToken string
	Name         string
	Phone        string
}

// validateSubmission trims the fields and checks the phone before the name.
func validateSubmission(name, phone string) (string, string, error) {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)

	if len(phone) != 10 || strings.Trim(phone, "0123456789") != "" {
		return "", "", invalid("phone", "Please enter a valid 10-digit phone number")
	}
	if len([]rune(name)) < 3 {
		return "", "", invalid("name", "Please enter your full name (minimum 3 characters)")
	}
	return name, phone, nil
}

// Submit records the form against the visitor's bound scan. A phone number
// can be submitted once per campaign.
func (s *SubmissionService) Submit(ctx context.Context, req *SubmitRequest) (*models.Scan, error) {
	scan, err := s.submit(ctx, req)
	switch {
	case err == nil:
		metrics.RecordSubmission("success")
	case errors.Is(err, ErrDuplicateSubmission), errors.Is(err, ErrAlreadySubmitted):
		metrics.RecordSubmission("duplicate")
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrCampaignInactive):
		metrics.RecordSubmission("expired")
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RecordSubmission("invalid")
		} else {
			metrics.RecordSubmission("error")
		}
	}
	return scan, err
}

func (s *SubmissionService) submit(ctx context.Context, req *SubmitRequest) (*models.Scan, error) {
	campaign, err := s.container.Scan.ActiveCampaign(ctx, req.CampaignUID)
	if err != nil {
		return nil, err
	}

	scanID, err := s.container.Bindings.Current(ctx, req.VisitorToken, campaign.UniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to read visitor binding: %w", err)
	}
	if scanID == 0 {
		return nil, ErrSessionExpired
	}
	scan, err := s.container.Scan.GetScan(ctx, campaign.ID, scanID)
	if errors.Is(err, ErrScanNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}

	name, phone, err := validateSubmission(req.Name, req.Phone)
	if err != nil {
		return nil, err
	}
	if scan.FormSubmitted {
		return nil, ErrAlreadySubmitted
	}

	err = s.withSubmissionLock(ctx, campaign.ID, phone, func() error {
		return s.save(ctx, scan, name, phone)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if err := s.container.Bindings.MarkSubmitted(ctx, req.VisitorToken, scan.ID); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to mark submission on visitor")
	}
	log.Info().Uint("scan_id", scan.ID).Str("campaign", campaign.UniqueID).Msg("Form submitted")

	s.container.WSHub.Publish(campaign.UniqueID, websocket.EventScanSubmitted, map[string]interface{}{
		"scan_id":     scan.ID,
		"campaign_id": campaign.ID,
		"user_name":   scan.UserName,
		"percentage":  scan.VideoPercentage.InexactFloat64(),
	})

	return scan, nil
}

// withSubmissionLock serializes submissions of one phone number in one
// campaign. When redis is unreachable it proceeds unlocked and relies on the
// transaction and the unique index.
func (s *SubmissionService) withSubmissionLock(ctx context.Context, campaignID uint, phone string, fn func() error) error {
	key := locks.SubmissionKey(campaignID, phone)
	err := locks.WithLockRetry(ctx, s.container.Locks, locks.ResourceSubmission, key, submissionLockTTL, submissionLockWait, fn)
	if errors.Is(err, locks.ErrLockUnavailable) {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("key", key).Msg("Submission lock unavailable, continuing unlocked")
		return fn()
	}
	if errors.Is(err, locks.ErrLockNotAcquired) {
		return fmt.Errorf("submission for %s still in progress: %w", key, err)
	}
	return err
}

func (s *SubmissionService) save(ctx context.Context, scan *models.Scan, name, phone string) error {
	now := time.Now()
	err := s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Scan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, scan.ID).Error; err != nil {
			return err
		}
		if current.FormSubmitted {
			return ErrAlreadySubmitted
		}

		var taken int64
		err := tx.Model(&models.Scan{}).
			Where("campaign_id = ? AND user_phone = ? AND form_submitted = ? AND id <> ?", scan.CampaignID, phone, true, scan.ID).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return ErrDuplicateSubmission
		}

		updates := map[string]interface{}{
			"user_name":         name,
			"user_phone":        phone,
			"form_submitted":    true,
			"form_submitted_at": now,
		}
		if current.RewardStatus == "" {
			updates["reward_status"] = models.RewardPending
		}
		if err := tx.Model(&current).Updates(updates).Error; err != nil {
			return err
		}

		current.UserName, current.UserPhone = name, phone
		current.FormSubmitted, current.FormSubmittedAt = true, &now
		if current.RewardStatus == "" {
			current.RewardStatus = models.RewardPending
		}
		*scan = current
		return nil
	})
	if database.IsUniqueViolation(err) {
		// Lost a race the count could not see
		return ErrDuplicateSubmission
	}
	if err != nil && !errors.Is(err, ErrDuplicateSubmission) && !errors.Is(err, ErrAlreadySubmitted) {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return err
}
