package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
)

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()

	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}

func TestExportRewards(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "EXP_CMP_00001")
	testutil.SeedScan(t, c.DB, campaign.ID)
	jane := testutil.SeedSubmission(t, c.DB, campaign.ID, "Jane Doe", "9876543210")
	c.DB.Model(jane).Update("video_percentage", 87.5)
	if _, err := c.Reward.UpdateStatus(ctx, operator, campaign.ID, jane.ID, &RewardUpdateRequest{Status: models.RewardGranted, Amount: amount(50)}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	var buf bytes.Buffer
	filename, err := c.Export.Rewards(ctx, operator, &buf, campaign.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(filename, "rewards_EXP_CMP_00001_") || !strings.HasSuffix(filename, ".csv") {
		t.Fatalf("filename = %s", filename)
	}
	out := buf.String()
	if !strings.HasPrefix(out, utf8BOM) {
		t.Fatal("rewards export must start with a byte order mark")
	}

	records := readCSV(t, strings.TrimPrefix(out, utf8BOM))
	if strings.Join(records[0], ",") != "Date Submitted,Name,Phone,Video Watched %,Reward Status,Reward Amount,Granted Date,Notes" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if len(records) != 2 {
		t.Fatalf("expected one submission row, got %d", len(records)-1)
	}
	row := records[1]
	if row[1] != "Jane Doe" || row[2] != "9876543210" || row[3] != "87.5%" || row[4] != "Reward Granted" || row[5] != "50.00" {
		t.Fatalf("unexpected row: %v", row)
	}
	if len(row[0]) != len("2006-01-02 15:04") || len(row[6]) != len("2006-01-02 15:04") {
		t.Fatalf("unexpected date formats: %q %q", row[0], row[6])
	}
}

func TestExportScans(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	a := testutil.SeedActiveCampaign(t, c.DB, "EXP_CMP_00002")
	b := testutil.SeedActiveCampaign(t, c.DB, "EXP_CMP_00003")
	testutil.SeedScan(t, c.DB, a.ID)
	testutil.SeedSubmission(t, c.DB, b.ID, "Jane Doe", "9876543210")

	var one bytes.Buffer
	filename, err := c.Export.Scans(ctx, operator, &one, a.UniqueID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(filename, "campaign_EXP_CMP_00002_") {
		t.Fatalf("filename = %s", filename)
	}
	records := readCSV(t, strings.TrimPrefix(one.String(), utf8BOM))
	if len(records[0]) != 11 || records[0][2] != "Scan Date & Time" || records[0][10] != "Form Submitted" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if len(records) != 2 || records[1][1] != "EXP_CMP_00002" || records[1][7] != "0%" || records[1][10] != "No" {
		t.Fatalf("unexpected rows: %v", records)
	}

	var all bytes.Buffer
	filename, err = c.Export.Scans(ctx, operator, &all, "")
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if !strings.HasPrefix(filename, "all_campaigns_") {
		t.Fatalf("filename = %s", filename)
	}
	if records := readCSV(t, strings.TrimPrefix(all.String(), utf8BOM)); len(records) != 3 {
		t.Fatalf("expected both campaigns, got %d rows", len(records)-1)
	}
}

func TestExportSupplyChainHasNoBOM(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	m := seedManufacturer(t, c)
	seedOrder(t, c, m.ID, "ORD-1")

	var buf bytes.Buffer
	if err := c.Export.Manufacturers(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.HasPrefix(buf.String(), utf8BOM) {
		t.Fatal("supply chain exports carry no byte order mark")
	}
	records := readCSV(t, buf.String())
	if records[0][7] != "Total Orders" || records[1][7] != "1" {
		t.Fatalf("unexpected manufacturer export: %v", records)
	}

	buf.Reset()
	if err := c.Export.Orders(ctx, &buf); err != nil {
		t.Fatalf("export orders: %v", err)
	}
	records = readCSV(t, buf.String())
	if records[1][0] != "ORD-1" || records[1][1] != m.Name || records[1][5] != "250.00" {
		t.Fatalf("unexpected order export: %v", records)
	}
}
