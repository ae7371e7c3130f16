package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
)

func TestTrackCompletion(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00001")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	got, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 60, Watched: 60, Completed: true})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got.Watched != 60 || got.Percentage != 100 || !got.Completed || got.Duration != 60 {
		t.Fatalf("unexpected progress: %+v", got)
	}

	var stored models.Scan
	if err := c.DB.First(&stored, scan.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.VideoWatched != 60 || !stored.VideoCompleted || stored.VideoPercentage.StringFixed(2) != "100.00" {
		t.Fatalf("unexpected stored scan: %+v", stored)
	}
}

func TestTrackIsMonotonicUnderReordering(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00002")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	var last *Progress
	for _, w := range []int{10, 45, 30, 5, 44} {
		p, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 90, Watched: w})
		if err != nil {
			t.Fatalf("track %d: %v", w, err)
		}
		last = p
	}
	if last.Watched != 45 {
		t.Fatalf("watched regressed to %d", last.Watched)
	}
	if last.Percentage != 50 {
		t.Fatalf("expected 50%%, got %v", last.Percentage)
	}
}

func TestTrackDurationIsSetOnce(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00003")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	if _, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 0, Watched: 3}); err != nil {
		t.Fatalf("track: %v", err)
	}
	p, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 30, Watched: 10})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if p.Duration != 30 {
		t.Fatalf("first positive duration must stick, got %d", p.Duration)
	}
	p, err = c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 7, Watched: 12})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if p.Duration != 30 || p.Percentage != 40 {
		t.Fatalf("later duration must be ignored, got %+v", p)
	}
}

func TestTrackPercentageCapsAtHundred(t *testing.T) {
	c, _ := newTestContainer(t)
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00004")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	p, err := c.Tracking.Track(context.Background(), &ProgressReport{ScanID: scan.ID, Duration: 20, Watched: 31})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if p.Percentage != 100 {
		t.Fatalf("expected 100, got %v", p.Percentage)
	}
}

func TestTrackSkipsSentinel(t *testing.T) {
	c, _ := newTestContainer(t)

	p, err := c.Tracking.Track(context.Background(), &ProgressReport{ScanID: 0, Duration: 10, Watched: 10})
	if err != nil || !p.Skipped {
		t.Fatalf("expected skip, got %+v, %v", p, err)
	}
}

func TestTrackUnknownScan(t *testing.T) {
	c, _ := newTestContainer(t)

	_, err := c.Tracking.Track(context.Background(), &ProgressReport{ScanID: 999, Duration: 10, Watched: 1})
	if !errors.Is(err, ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
}

func TestTrackCompletionCapsWatchedAtDuration(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00007")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	got, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 60, Watched: 65, Completed: true})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got.Watched != 60 || got.Percentage != 100 || !got.Completed {
		t.Fatalf("completed video must count as its duration, got %+v", got)
	}

	var stored models.Scan
	if err := c.DB.First(&stored, scan.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.VideoWatched != 60 {
		t.Fatalf("expected stored watched 60, got %d", stored.VideoWatched)
	}
}

func TestTrackConcurrentReportsKeepMaximum(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "TRK_CMP_00008")
	scan := testutil.SeedScan(t, c.DB, campaign.ID)

	watched := []int{12, 87, 3, 55, 90, 41, 66, 9, 78, 24}
	var wg sync.WaitGroup
	for _, w := range watched {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if _, err := c.Tracking.Track(ctx, &ProgressReport{ScanID: scan.ID, Duration: 120, Watched: w}); err != nil {
				t.Errorf("track %d: %v", w, err)
			}
		}(w)
	}
	wg.Wait()

	var stored models.Scan
	if err := c.DB.First(&stored, scan.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.VideoWatched != 90 || stored.VideoDuration != 120 {
		t.Fatalf("expected watched 90 of 120, got %d of %d", stored.VideoWatched, stored.VideoDuration)
	}
	if stored.VideoPercentage.StringFixed(2) != "75.00" {
		t.Fatalf("expected 75%%, got %s", stored.VideoPercentage.StringFixed(2))
	}
}
