package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
)

var uidPattern = regexp.MustCompile(`^[A-Z]{1,3}_[A-Z]{1,3}_\d{5}$`)

func TestGenerateUniqueID(t *testing.T) {
	uid := GenerateUniqueID("Blue spring water company", "summer hydration")
	if !uidPattern.MatchString(uid) || uid[:7] != "BSW_SH_" {
		t.Fatalf("unexpected uid %q", uid)
	}
	if got := initials("acme"); got != "A" {
		t.Fatalf("initials(acme) = %q", got)
	}
	if got := initials("élan ünited ökay partners"); got != "ÉÜÖ" {
		t.Fatalf("initials should count letters, not bytes: got %q", got)
	}
}

func campaignRequest(clientID uint, start, end string) *CampaignRequest {
	return &CampaignRequest{
		Name:            "Monsoon Push",
		ClientID:        clientID,
		StartDate:       start,
		EndDate:         end,
		NumberOfBottles: 5000,
		BudgetOfRewards: decimal.NewFromInt(2500),
		AreaServed:      "Mumbai",
	}
}

func TestCampaignCreateAndView(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, c.DB, "Aqua Fresh")

	today := testutil.Today()
	campaign, err := c.Campaign.Create(ctx, operator, campaignRequest(client.ID,
		today.Format(dateLayout), today.AddDate(0, 0, 9).Format(dateLayout)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !uidPattern.MatchString(campaign.UniqueID) || campaign.UniqueID[:6] != "AF_MP_" {
		t.Fatalf("unexpected uid %q", campaign.UniqueID)
	}

	view, err := c.Campaign.GetView(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.IsActive || view.DurationDays != 10 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.LandingURL != "https://qr.example.com/sw/adv/"+campaign.UniqueID+"/" {
		t.Fatalf("landing url = %s", view.LandingURL)
	}

	byUID, err := c.Campaign.GetByUID(ctx, campaign.UniqueID)
	if err != nil || byUID.ID != campaign.ID {
		t.Fatalf("get by uid: %v", err)
	}
}

func TestCampaignCreateRejectsBadDates(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, c.DB, "Aqua Fresh")

	_, err := c.Campaign.Create(ctx, operator, campaignRequest(client.ID, "2024-05-10", "2024-05-01"))
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	var verr *ValidationError
	_, err = c.Campaign.Create(ctx, operator, campaignRequest(client.ID, "10/05/2024", "2024-05-01"))
	if !errors.As(err, &verr) || verr.Field != "start_date" {
		t.Fatalf("expected start_date validation, got %v", err)
	}
	_, err = c.Campaign.Create(ctx, operator, campaignRequest(999, "2024-05-01", "2024-05-01"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected unknown client to fail, got %v", err)
	}
}

func TestCampaignUpdateKeepsUID(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "KEEP_UID_00001")

	req := campaignRequest(campaign.ClientID, "2024-01-01", "2024-12-31")
	req.Name = "Renamed"
	updated, err := c.Campaign.Update(ctx, campaign.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UniqueID != "KEEP_UID_00001" || updated.Name != "Renamed" {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestCampaignDeleteCascadesScans(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "DEL_CMP_00001")
	testutil.SeedScan(t, c.DB, campaign.ID)
	testutil.SeedSubmission(t, c.DB, campaign.ID, "Jane Doe", "9876543210")

	if err := c.Campaign.Delete(ctx, operator, campaign.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countScans(t, c, campaign.ID); n != 0 {
		t.Fatalf("expected scans removed, got %d", n)
	}
	if err := c.Campaign.Delete(ctx, operator, campaign.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCampaignListSearchAndActive(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	today := testutil.Today()
	testutil.SeedActiveCampaign(t, c.DB, "LST_CMP_00001")
	testutil.SeedCampaign(t, c.DB, "LST_CMP_00002", today.AddDate(0, -2, 0), today.AddDate(0, -1, 0), 10)

	list, total, err := c.Campaign.List(ctx, CampaignFilter{Search: "blue spring"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(list) != 2 || list[0].Client == nil {
		t.Fatalf("expected 2 campaigns with clients, got %d", total)
	}
	if _, total, _ = c.Campaign.List(ctx, CampaignFilter{Search: "nothing like this"}); total != 0 {
		t.Fatalf("expected no matches, got %d", total)
	}

	active, err := c.Campaign.Active(ctx, today)
	if err != nil || len(active) != 1 || active[0].UniqueID != "LST_CMP_00001" {
		t.Fatalf("unexpected active campaigns: %+v, %v", active, err)
	}
}

func TestClientLifecycle(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	client, err := c.Client.Create(ctx, &ClientRequest{CompanyName: "Hill Springs", Email: "hi@hill.example", IndustryType: "Hospitality"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Client.Create(ctx, &ClientRequest{CompanyName: "  "}); err == nil {
		t.Fatal("expected blank company name to fail")
	}

	campaign := &models.Campaign{UniqueID: "HS_X_00001", Name: "X", ClientID: client.ID, StartDate: testutil.Today(), EndDate: testutil.Today()}
	if err := c.DB.Create(campaign).Error; err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	testutil.SeedScan(t, c.DB, campaign.ID)

	list, total, err := c.Client.List(ctx, "hospitality", 1, 0)
	if err != nil || total != 1 || list[0].CampaignCount != 1 {
		t.Fatalf("unexpected list: %+v, %v", list, err)
	}

	if err := c.Client.Delete(ctx, client.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	c.DB.Model(&models.Campaign{}).Count(&n)
	if n != 0 || countScans(t, c, campaign.ID) != 0 {
		t.Fatal("client delete must cascade to campaigns and scans")
	}
	if _, err := c.Client.Get(ctx, client.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
