package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/models"
)

// TrackingService merges the progress callbacks sent while a video plays.
type TrackingService struct {
	container *Container
}

func NewTrackingService(c *Container) *TrackingService {
	return &TrackingService{container: c}
}

// ProgressReport is one callback from the player, in seconds.
type ProgressReport struct {
	ScanID    uint `json:"scan_id"`
	Duration  int  `json:"video_duration"`
	Watched   int  `json:"watched_seconds"`
	Completed bool `json:"completed"`
}

// Progress is the stored state echoed back to the player.
type Progress struct {
	Skipped    bool    `json:"-"`
	Duration   int     `json:"duration"`
	Watched    int     `json:"watched"`
	Percentage float64 `json:"percentage"`
	Completed  bool    `json:"completed"`
}

// applyProgress merges a report into scan. Watched time never goes down and
// the duration is fixed by the first positive report.
func applyProgress(scan *models.Scan, report *ProgressReport) {
	if report.Duration > 0 && scan.VideoDuration == 0 {
		scan.VideoDuration = report.Duration
	}
	stored := scan.VideoWatched
	if report.Watched > scan.VideoWatched {
		scan.VideoWatched = report.Watched
	}
	if report.Completed {
		scan.VideoCompleted = true
		// A finished video counts as exactly its duration, never more
		if scan.VideoDuration > 0 {
			scan.VideoWatched = max(stored, scan.VideoDuration)
		}
	}
	scan.RecomputePercentage()
}

// Track applies a progress report. Scan id 0 means tracking is disabled for
// the page and is skipped.
func (s *TrackingService) Track(ctx context.Context, report *ProgressReport) (*Progress, error) {
	if report.ScanID == 0 {
		metrics.RecordProgress("skipped")
		return &Progress{Skipped: true}, nil
	}

	var scan models.Scan
	err := s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so overlapping callbacks merge instead of overwriting each other
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&scan, report.ScanID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScanNotFound
		}
		if err != nil {
			return err
		}

		applyProgress(&scan, report)

		return tx.Model(&scan).Updates(map[string]interface{}{
			"video_duration":   scan.VideoDuration,
			"video_watched":    scan.VideoWatched,
			"video_completed":  scan.VideoCompleted,
			"video_percentage": scan.VideoPercentage,
		}).Error
	})
	if errors.Is(err, ErrScanNotFound) {
		metrics.RecordProgress("not_found")
		return nil, err
	}
	if err != nil {
		metrics.RecordProgress("error")
		return nil, fmt.Errorf("failed to track progress: %w", err)
	}

	metrics.RecordProgress("success")
	return &Progress{
		Duration:   scan.VideoDuration,
		Watched:    scan.VideoWatched,
		Percentage: scan.VideoPercentage.InexactFloat64(),
		Completed:  scan.VideoCompleted,
	}, nil
}
