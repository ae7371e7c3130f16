package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/binding"
	"github.com/socialzwater/backend/internal/fingerprint"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/websocket"
)

// Watching at least this share of the video skips straight to the form.
var skipToFormPercentage = decimal.NewFromInt(95)

// ScanService decides which scan backs a landing page hit.
type ScanService struct {
	container *Container
}

func NewScanService(c *Container) *ScanService {
	return &ScanService{container: c}
}

type ResolveRequest struct {
	CampaignUID  string
	VisitorToken string // empty for a browser we have not seen
	ForceNew     bool
	Device       fingerprint.Info
}

// Resolution is the view state for a landing page hit.
type Resolution struct {
	Campaign *models.Campaign
	// Scan is nil when the visitor has already submitted.
	Scan             *models.Scan
	VisitorToken     string
	Created          bool
	AlreadySubmitted bool
	ShowForm         bool
	ResumePosition   int
}

// ScanID is 0 for a terminal submitted view, which disables progress tracking.
func (r *Resolution) ScanID() uint {
	if r.Scan == nil {
		return 0
	}
	return r.Scan.ID
}

// ActiveCampaign loads a campaign by its QR identifier and checks its date window.
func (s *ScanService) ActiveCampaign(ctx context.Context, uid string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.container.DB.WithContext(ctx).Where("unique_id = ?", uid).First(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if !campaign.IsActive(time.Now()) {
		return nil, ErrCampaignInactive
	}
	return &campaign, nil
}

// Resolve creates, resumes or closes out the scan for a landing page hit.
//
// The visitor binding decides between resume and new scan. Device
// fingerprints are recorded but never used to match visitors, since
// several people can share a device or network.
func (s *ScanService) Resolve(ctx context.Context, req *ResolveRequest) (*Resolution, error) {
	campaign, err := s.ActiveCampaign(ctx, req.CampaignUID)
	if err != nil {
		metrics.RecordScanResolution("inactive")
		return nil, err
	}

	res := &Resolution{Campaign: campaign, VisitorToken: req.VisitorToken}
	if res.VisitorToken == "" {
		res.VisitorToken = binding.NewToken()
	}

	log := logger.FromContext(ctx)
	boundID, err := s.container.Bindings.Current(ctx, res.VisitorToken, campaign.UniqueID)
	if err != nil {
		// Without the binding we cannot resume; a fresh scan is still correct
		log.Warn().Err(err).Str("campaign", campaign.UniqueID).Msg("Visitor binding unavailable")
		boundID = 0
	}

	if boundID != 0 && !req.ForceNew {
		scan, done, err := s.resume(ctx, res.VisitorToken, campaign, boundID)
		if err != nil {
			return nil, err
		}
		if done {
			res.AlreadySubmitted = true
			metrics.RecordScanResolution("already_submitted")
			return res, nil
		}
		if scan != nil {
			res.Scan = scan
			res.ShowForm = scan.VideoCompleted || scan.VideoPercentage.GreaterThanOrEqual(skipToFormPercentage)
			if !res.ShowForm {
				res.ResumePosition = scan.VideoWatched
			}
			metrics.RecordScanResolution("resumed")
			return res, nil
		}
	}

	scan, err := s.create(ctx, campaign, req.Device)
	if err != nil {
		return nil, err
	}
	res.Scan = scan
	res.Created = true

	if err := s.container.Bindings.Bind(ctx, res.VisitorToken, campaign.UniqueID, scan.ID); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to bind visitor to scan")
	}
	if boundID != 0 {
		// A forced rescan starts over, so the old marker must not short-circuit it
		if err := s.container.Bindings.ClearSubmitted(ctx, res.VisitorToken, boundID); err != nil {
			log.Warn().Err(err).Uint("scan_id", boundID).Msg("Failed to clear submission marker")
		}
	}

	outcome := "created"
	if req.ForceNew {
		outcome = "forced"
	}
	metrics.RecordScanResolution(outcome)
	s.container.WSHub.Publish(campaign.UniqueID, websocket.EventScanCreated, map[string]interface{}{
		"scan_id":     scan.ID,
		"campaign_id": campaign.ID,
		"device_type": scan.DeviceType,
		"browser":     scan.Browser,
		"os":          scan.OS,
	})

	return res, nil
}

// resume returns the bound scan, or done when the visitor already submitted
// it. A nil scan without done means the binding is stale.
func (s *ScanService) resume(ctx context.Context, token string, campaign *models.Campaign, scanID uint) (*models.Scan, bool, error) {
	// The marker is only a shortcut; the stored form_submitted flag is checked below
	marked, err := s.container.Bindings.IsSubmitted(ctx, token, scanID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Uint("scan_id", scanID).Msg("Submission marker unavailable")
	}
	if marked {
		return nil, true, nil
	}

	var scan models.Scan
	err = s.container.DB.WithContext(ctx).
		Where("id = ? AND campaign_id = ?", scanID, campaign.ID).
		First(&scan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load scan: %w", err)
	}
	if scan.FormSubmitted {
		return nil, true, nil
	}
	return &scan, false, nil
}

func (s *ScanService) create(ctx context.Context, campaign *models.Campaign, device fingerprint.Info) (*models.Scan, error) {
	scan := &models.Scan{
		CampaignID:        campaign.ID,
		IPAddress:         device.IPAddress,
		UserAgent:         device.UserAgent,
		DeviceFingerprint: device.Hash,
		DeviceType:        device.DeviceType,
		Browser:           device.Browser,
		OS:                device.OS,
		SessionID:         newSessionID(device),
		RewardStatus:      models.RewardPending,
	}
	if scan.DeviceType == "" {
		scan.DeviceType = models.DeviceUnknown
	}

	if err := s.container.DB.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}
	return scan, nil
}

// newSessionID is unique per scan even for identical devices hitting at the same instant.
func newSessionID(device fingerprint.Info) string {
	sum := sha256.Sum256([]byte(device.IPAddress + "_" +
		strconv.FormatInt(time.Now().UnixNano(), 10) + "_" +
		device.UserAgent + "_" + device.OS + "_" +
		uuid.New().String()))
	return hex.EncodeToString(sum[:])
}

// GetScan loads one scan of a campaign.
func (s *ScanService) GetScan(ctx context.Context, campaignID, scanID uint) (*models.Scan, error) {
	var scan models.Scan
	err := s.container.DB.WithContext(ctx).
		Where("id = ? AND campaign_id = ?", scanID, campaignID).
		First(&scan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scan, nil
}
