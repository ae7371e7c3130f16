package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
)

func seedManufacturer(t *testing.T, c *Container) *models.Manufacturer {
	t.Helper()

	m, err := c.Manufacturer.Create(context.Background(), &ManufacturerRequest{
		Name:          "Crystal Bottling",
		ContactPerson: "Ravi",
		ContactNumber: "9811111111",
		City:          "Nashik",
	})
	if err != nil {
		t.Fatalf("create manufacturer: %v", err)
	}
	return m
}

func seedOrder(t *testing.T, c *Container, manufacturerID uint, number string) *models.Order {
	t.Helper()

	o, err := c.Order.Create(context.Background(), &OrderRequest{
		ManufacturerID:   manufacturerID,
		OrderNumber:      number,
		ExpectedDelivery: testutil.Today().AddDate(0, 0, 7).Format(dateLayout),
		ProductName:      "1L bottles",
		Quantity:         100,
		UnitPrice:        decimal.RequireFromString("2.50"),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestManufacturerLifecycle(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	m := seedManufacturer(t, c)
	if !m.IsActive || m.Country != "India" {
		t.Fatalf("unexpected defaults: %+v", m)
	}
	seedOrder(t, c, m.ID, "ORD-100")

	list, err := c.Manufacturer.List(ctx, ManufacturerFilter{Search: "nashik"})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v, %v", list, err)
	}
	if list[0].TotalOrders != 1 || list[0].PendingOrders != 1 || !list[0].OrderValue.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected summary: %+v", list[0])
	}

	toggled, err := c.Manufacturer.ToggleActive(ctx, m.ID)
	if err != nil || toggled.IsActive {
		t.Fatalf("toggle: %+v, %v", toggled, err)
	}
	inactive := false
	if list, _ := c.Manufacturer.List(ctx, ManufacturerFilter{Active: &inactive}); len(list) != 1 {
		t.Fatalf("expected the inactive manufacturer, got %d", len(list))
	}

	if err := c.Manufacturer.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var orders int64
	c.DB.Model(&models.Order{}).Count(&orders)
	if orders != 0 {
		t.Fatalf("expected orders removed, got %d", orders)
	}
	if err := c.Manufacturer.Delete(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderCreateAndStatus(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	m := seedManufacturer(t, c)
	o := seedOrder(t, c, m.ID, "ORD-200")

	if !o.TotalAmount.Equal(decimal.NewFromInt(250)) || o.Priority != models.PriorityMedium || o.Status != models.OrderPending {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.OrderDate.Equal(testutil.Today()) {
		t.Fatalf("order date should default to today, got %v", o.OrderDate)
	}

	var verr *ValidationError
	_, err := c.Order.Create(ctx, &OrderRequest{ManufacturerID: m.ID, OrderNumber: "ORD-200", ExpectedDelivery: "2030-01-01", ProductName: "x", Quantity: 1})
	if !errors.As(err, &verr) || verr.Field != "order_number" {
		t.Fatalf("expected duplicate order number to fail, got %v", err)
	}
	if _, err := c.Order.UpdateStatus(ctx, o.ID, "lost"); !errors.As(err, &verr) {
		t.Fatalf("expected invalid status to fail, got %v", err)
	}

	delivered, err := c.Order.UpdateStatus(ctx, o.ID, models.OrderDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.ActualDelivery == nil || !delivered.ActualDelivery.Equal(testutil.Today()) {
		t.Fatalf("delivery date not stamped: %+v", delivered.ActualDelivery)
	}

	urgent, err := c.Order.UpdatePriority(ctx, o.ID, models.PriorityUrgent)
	if err != nil || urgent.Priority != models.PriorityUrgent {
		t.Fatalf("priority: %+v, %v", urgent, err)
	}

	views, stats, err := c.Order.List(ctx, OrderFilter{Search: "crystal"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || stats.Total != 1 || views[0].IsOverdue {
		t.Fatalf("unexpected list: %+v %+v", views, stats)
	}
}

func TestOrderOverdue(t *testing.T) {
	today := testutil.Today()
	o := models.Order{ExpectedDelivery: today.AddDate(0, 0, -1), Status: models.OrderProcessing}
	if !o.IsOverdue(today) || o.DaysUntilDelivery(today) != -1 {
		t.Fatal("expected an overdue processing order")
	}
	o.Status = models.OrderCancelled
	if o.IsOverdue(today) {
		t.Fatal("cancelled orders are never overdue")
	}
}

func TestSupplierAndSupply(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	m := seedManufacturer(t, c)
	order := seedOrder(t, c, m.ID, "ORD-300")

	if _, err := c.Supplier.Create(ctx, &SupplierRequest{Name: "x", SupplierType: "spaceport"}); err == nil {
		t.Fatal("expected unknown supplier type to fail")
	}
	sp, err := c.Supplier.Create(ctx, &SupplierRequest{
		Name:          "Grand Hotel",
		SupplierType:  models.SupplierHotel,
		ContactPerson: "Meera",
		ContactNumber: "9822222222",
		City:          "Goa",
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	if _, err := c.Supplier.UpdateRating(ctx, sp.ID, decimal.RequireFromString("5.5")); err == nil {
		t.Fatal("expected rating above 5 to fail")
	}
	rated, err := c.Supplier.UpdateRating(ctx, sp.ID, decimal.RequireFromString("4.25"))
	if err != nil || !rated.Rating.Equal(decimal.RequireFromString("4.25")) {
		t.Fatalf("rating: %+v, %v", rated, err)
	}

	supply, err := c.Supply.Create(ctx, &SupplyRequest{
		SupplierID:       sp.ID,
		SupplyNumber:     "SUP-1",
		ExpectedDelivery: testutil.Today().AddDate(0, 0, 3).Format(dateLayout),
		ProductName:      "1L bottles",
		QuantitySupplied: 40,
		UnitPrice:        decimal.NewFromInt(3),
		OrderIDs:         []uint{order.ID},
	})
	if err != nil {
		t.Fatalf("create supply: %v", err)
	}
	if !supply.TotalAmount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("total = %s", supply.TotalAmount)
	}
	if _, err := c.Supply.Create(ctx, &SupplyRequest{SupplierID: sp.ID, SupplyNumber: "SUP-2", ExpectedDelivery: "2030-01-01", ProductName: "x", QuantitySupplied: 1, OrderIDs: []uint{9999}}); err == nil {
		t.Fatal("expected unknown order to fail")
	}

	views, err := c.Supply.List(ctx, SupplyFilter{Search: "grand"})
	if err != nil || len(views) != 1 || len(views[0].Orders) != 1 || views[0].DeliveryDelayDays != nil {
		t.Fatalf("unexpected supplies: %+v, %v", views, err)
	}

	summaries, err := c.Supplier.List(ctx, SupplierFilter{Type: models.SupplierHotel})
	if err != nil || len(summaries) != 1 || summaries[0].TotalSupplies != 1 || summaries[0].ActiveSupplies != 1 {
		t.Fatalf("unexpected suppliers: %+v, %v", summaries, err)
	}

	delivered, err := c.Supply.UpdateStatus(ctx, supply.ID, models.SupplyDelivered)
	if err != nil || delivered.ActualDelivery == nil {
		t.Fatalf("deliver: %+v, %v", delivered, err)
	}
	if d := delivered.DeliveryDelayDays(); d == nil || *d != -3 {
		t.Fatalf("expected delivery 3 days early, got %v", d)
	}

	if err := c.Supplier.Delete(ctx, sp.ID); err != nil {
		t.Fatalf("delete supplier: %v", err)
	}
	var n int64
	c.DB.Model(&models.Supply{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected supplies removed, got %d", n)
	}
	if _, err := c.Order.Get(ctx, order.ID); err != nil {
		t.Fatalf("orders must survive supplier deletion: %v", err)
	}
}

func TestDashboardStats(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()
	campaign := testutil.SeedActiveCampaign(t, c.DB, "DSH_CMP_00001")
	testutil.SeedScan(t, c.DB, campaign.ID)
	jane := testutil.SeedSubmission(t, c.DB, campaign.ID, "Jane Doe", "9876543210")
	if _, err := c.Reward.UpdateStatus(ctx, operator, campaign.ID, jane.ID, &RewardUpdateRequest{Status: models.RewardGranted, Amount: amount(75)}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	m := seedManufacturer(t, c)
	seedOrder(t, c, m.ID, "ORD-400")

	stats, err := c.Dashboard.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCampaigns != 1 || stats.ActiveCampaigns != 1 || stats.TotalScans != 2 || stats.TotalSubmissions != 1 {
		t.Fatalf("unexpected engagement stats: %+v", stats)
	}
	if stats.GrantedRewards != 1 || !stats.GrantedAmount.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected reward stats: %+v", stats)
	}
	if stats.Manufacturers != 1 || stats.OpenOrders != 1 || len(stats.WeeklyScans) != 7 {
		t.Fatalf("unexpected supply stats: %+v", stats)
	}

	recent, err := c.Dashboard.GetRecentCampaigns(ctx, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("recent: %+v, %v", recent, err)
	}
}
