package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/socialzwater/backend/internal/config"
	"github.com/socialzwater/backend/internal/fingerprint"
	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
	"github.com/socialzwater/backend/internal/websocket"
)

const androidUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret",
		AccessTokenTTL:     time.Hour,
		SiteDomain:         "https://qr.example.com",
		BindingTTL:         time.Hour,
		AuditRetentionDays: 90,
	}
}

// newTestContainer wires every service against sqlite and miniredis. The hub
// is never run; publishing to it drops events once its buffer fills.
func newTestContainer(t *testing.T) (*Container, *miniredis.Miniredis) {
	t.Helper()

	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	c := NewContainer(testConfig(), db, rdb, websocket.NewHub())
	t.Cleanup(c.Close)
	return c, mr
}

func testDevice() fingerprint.Info {
	return fingerprint.Info{
		DeviceType: models.DeviceMobile,
		Browser:    "Chrome",
		OS:         "Android",
		Hash:       "abc123",
		IPAddress:  "198.51.100.4",
		UserAgent:  androidUA,
	}
}

// landing resolves a landing hit and fails the test on error.
func landing(t *testing.T, c *Container, uid, token string, forceNew bool) *Resolution {
	t.Helper()

	res, err := c.Scan.Resolve(context.Background(), &ResolveRequest{
		CampaignUID:  uid,
		VisitorToken: token,
		ForceNew:     forceNew,
		Device:       testDevice(),
	})
	if err != nil {
		t.Fatalf("resolve %s: %v", uid, err)
	}
	return res
}

func countScans(t *testing.T, c *Container, campaignID uint) int64 {
	t.Helper()

	var n int64
	if err := c.DB.Model(&models.Scan{}).Where("campaign_id = ?", campaignID).Count(&n).Error; err != nil {
		t.Fatalf("count scans: %v", err)
	}
	return n
}
