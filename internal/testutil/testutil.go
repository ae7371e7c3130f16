// Package testutil builds throwaway sqlite and redis backends for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/socialzwater/backend/internal/models"
)

// NewDB returns an in-memory sqlite database with every model migrated.
// A single connection keeps the in-memory database alive and serializes
// transactions the way row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and returns a client for it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// Today is the calendar date tests use as "now".
func Today() time.Time {
	return models.DateOnly(time.Now())
}

// SeedClient inserts a client with placeholder contact details.
func SeedClient(t *testing.T, db *gorm.DB, company string) *models.Client {
	t.Helper()

	c := &models.Client{
		CompanyName:        company,
		Email:              "ops@example.com",
		IndustryType:       "Beverages",
		ContactPersonName:  "Asha",
		ContactPhoneNumber: "9800000000",
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

// SeedCampaign inserts a campaign running from start to end (inclusive).
func SeedCampaign(t *testing.T, db *gorm.DB, uid string, start, end time.Time, budget int64) *models.Campaign {
	t.Helper()

	client := SeedClient(t, db, "Blue Spring Water")
	c := &models.Campaign{
		UniqueID:          uid,
		Name:              "Summer Hydration",
		ClientID:          client.ID,
		StartDate:         start,
		EndDate:           end,
		NumberOfBottles:   1000,
		BudgetOfRewards:   decimal.NewFromInt(budget),
		CustomizedMessage: "Stay hydrated",
		AreaServed:        "Pune",
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return c
}

// SeedActiveCampaign inserts a campaign whose window covers today.
func SeedActiveCampaign(t *testing.T, db *gorm.DB, uid string) *models.Campaign {
	t.Helper()
	today := Today()
	return SeedCampaign(t, db, uid, today.AddDate(0, 0, -7), today.AddDate(0, 0, 7), 1000)
}

// SeedScan inserts a bare scan for campaignID.
func SeedScan(t *testing.T, db *gorm.DB, campaignID uint) *models.Scan {
	t.Helper()

	s := &models.Scan{
		CampaignID:        campaignID,
		IPAddress:         "203.0.113.7",
		DeviceFingerprint: "fp",
		DeviceType:        models.DeviceMobile,
		Browser:           "Chrome",
		OS:                "Android",
		SessionID:         "seed",
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	return s
}

// SeedSubmission inserts a scan that has already gone through the form.
func SeedSubmission(t *testing.T, db *gorm.DB, campaignID uint, name, phone string) *models.Scan {
	t.Helper()

	now := time.Now()
	s := SeedScan(t, db, campaignID)
	err := db.Model(s).Updates(map[string]interface{}{
		"user_name":         name,
		"user_phone":        phone,
		"form_submitted":    true,
		"form_submitted_at": now,
		"reward_status":     models.RewardPending,
	}).Error
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	s.UserName, s.UserPhone, s.FormSubmitted, s.FormSubmittedAt = name, phone, true, &now
	return s
}
