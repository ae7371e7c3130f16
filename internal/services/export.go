package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/socialzwater/backend/internal/audit"
	"github.com/socialzwater/backend/internal/models"
)

// Spreadsheet apps need the byte order mark to read the file as UTF-8.
const utf8BOM = "\ufeff"

var (
	rewardExportHeader = []string{
		"Date Submitted", "Name", "Phone", "Video Watched %", "Reward Status",
		"Reward Amount", "Granted Date", "Notes",
	}
	scanExportHeader = []string{
		"Campaign Name", "Campaign ID", "Scan Date & Time", "Device Type", "Browser",
		"Operating System", "IP Address", "Video Watch Percentage", "User Name",
		"User Phone", "Form Submitted",
	}
	manufacturerExportHeader = []string{
		"Name", "Contact Person", "Contact Number", "Email", "City", "State",
		"GST Number", "Total Orders", "Created Date",
	}
	orderExportHeader = []string{
		"Order Number", "Manufacturer", "Product", "Quantity", "Unit Price",
		"Total Amount", "Status", "Order Date", "Expected Delivery",
	}
	supplierExportHeader = []string{
		"Name", "Type", "Contact Person", "Contact Number", "Email", "City", "State",
		"Rating", "Total Supplies",
	}
	supplyExportHeader = []string{
		"Supply Number", "Supplier", "Product", "Quantity", "Unit Price", "Total Amount",
		"Status", "Supply Date", "Expected Delivery", "Quality Rating",
	}
)

// ExportService writes CSV extracts for operators.
type ExportService struct {
	container *Container
}

func NewExportService(c *Container) *ExportService {
	return &ExportService{container: c}
}

func formatMinute(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeCSV(w io.Writer, bom bool, header []string, rows [][]string) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func (s *ExportService) logExport(ctx context.Context, actor Actor, campaignID *uint, detail string) {
	s.container.Audit.Log(ctx, &audit.LogEntry{
		OperatorID: actor.OperatorID,
		IPAddress:  actor.IPAddress,
		Action:     models.AuditExport,
		CampaignID: campaignID,
		Detail:     detail,
		Result:     models.AuditSuccess,
	})
}

func rewardRow(s *models.Scan) []string {
	amount := ""
	if s.RewardAmount != nil {
		amount = s.RewardAmount.StringFixed(2)
	}
	return []string{
		formatMinute(s.FormSubmittedAt),
		s.UserName,
		s.UserPhone,
		s.VideoPercentage.StringFixed(1) + "%",
		s.RewardStatus.Display(),
		amount,
		formatMinute(s.RewardGrantedAt),
		s.RewardNotes,
	}
}

// Rewards writes the submissions of a campaign, newest first, and returns the file name.
func (s *ExportService) Rewards(ctx context.Context, actor Actor, w io.Writer, campaignID uint) (string, error) {
	campaign, err := s.container.Campaign.Get(ctx, campaignID)
	if err != nil {
		return "", err
	}

	var scans []models.Scan
	err = s.container.DB.WithContext(ctx).
		Where("campaign_id = ? AND form_submitted = ?", campaign.ID, true).
		Order("form_submitted_at DESC").
		Find(&scans).Error
	if err != nil {
		return "", fmt.Errorf("failed to load submissions: %w", err)
	}

	rows := make([][]string, 0, len(scans))
	for i := range scans {
		rows = append(rows, rewardRow(&scans[i]))
	}

	filename := fmt.Sprintf("rewards_%s_%s.csv", campaign.UniqueID, time.Now().Format("20060102"))
	if err := writeCSV(w, true, rewardExportHeader, rows); err != nil {
		return "", err
	}
	s.logExport(ctx, actor, &campaign.ID, filename)
	return filename, nil
}

func scanRow(s *models.Scan) []string {
	name, uid := "N/A", "N/A"
	if s.Campaign != nil {
		name, uid = s.Campaign.Name, s.Campaign.UniqueID
	}
	pct := "0%"
	if !s.VideoPercentage.IsZero() {
		pct = s.VideoPercentage.StringFixed(1) + "%"
	}
	submitted := "No"
	if s.FormSubmitted {
		submitted = "Yes"
	}
	return []string{
		name,
		uid,
		s.ScannedAt.Format("2006-01-02 15:04:05"),
		orDefault(string(s.DeviceType), "Unknown"),
		orDefault(s.Browser, "Unknown"),
		orDefault(s.OS, "Unknown"),
		s.IPAddress,
		pct,
		s.UserName,
		s.UserPhone,
		submitted,
	}
}

// Scans writes the scans of one campaign, or of every campaign when uid is empty.
func (s *ExportService) Scans(ctx context.Context, actor Actor, w io.Writer, uid string) (string, error) {
	query := s.container.DB.WithContext(ctx).Preload("Campaign").Order("scanned_at DESC")
	stamp := time.Now().Format("20060102_150405")
	filename := "all_campaigns_" + stamp + ".csv"

	var campaignID *uint
	if uid != "" {
		campaign, err := s.container.Campaign.GetByUID(ctx, uid)
		if err != nil {
			return "", err
		}
		query = query.Where("campaign_id = ?", campaign.ID)
		filename = fmt.Sprintf("campaign_%s_%s.csv", campaign.UniqueID, stamp)
		campaignID = &campaign.ID
	}

	var scans []models.Scan
	if err := query.Find(&scans).Error; err != nil {
		return "", fmt.Errorf("failed to load scans: %w", err)
	}

	rows := make([][]string, 0, len(scans))
	for i := range scans {
		rows = append(rows, scanRow(&scans[i]))
	}
	if err := writeCSV(w, true, scanExportHeader, rows); err != nil {
		return "", err
	}
	s.logExport(ctx, actor, campaignID, filename)
	return filename, nil
}

// Manufacturers writes every manufacturer with its order count.
func (s *ExportService) Manufacturers(ctx context.Context, w io.Writer) error {
	manufacturers, err := s.container.Manufacturer.List(ctx, ManufacturerFilter{Limit: maxPageSize})
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(manufacturers))
	for _, m := range manufacturers {
		rows = append(rows, []string{
			m.Name, m.ContactPerson, m.ContactNumber, m.Email, m.City, m.State,
			m.GSTNumber, strconv.FormatInt(m.TotalOrders, 10), m.CreatedAt.Format(dateLayout),
		})
	}
	return writeCSV(w, false, manufacturerExportHeader, rows)
}

func (s *ExportService) Orders(ctx context.Context, w io.Writer) error {
	var orders []models.Order
	if err := s.container.DB.WithContext(ctx).Preload("Manufacturer").Order("created_at DESC").Find(&orders).Error; err != nil {
		return err
	}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		manufacturer := ""
		if o.Manufacturer != nil {
			manufacturer = o.Manufacturer.Name
		}
		rows = append(rows, []string{
			o.OrderNumber, manufacturer, o.ProductName, strconv.Itoa(o.Quantity),
			o.UnitPrice.StringFixed(2), o.TotalAmount.StringFixed(2), string(o.Status),
			o.OrderDate.Format(dateLayout), o.ExpectedDelivery.Format(dateLayout),
		})
	}
	return writeCSV(w, false, orderExportHeader, rows)
}

func (s *ExportService) Suppliers(ctx context.Context, w io.Writer) error {
	suppliers, err := s.container.Supplier.List(ctx, SupplierFilter{Limit: maxPageSize})
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(suppliers))
	for _, sp := range suppliers {
		rows = append(rows, []string{
			sp.Name, sp.SupplierType.Display(), sp.ContactPerson, sp.ContactNumber,
			sp.Email, sp.City, sp.State, sp.Rating.StringFixed(2),
			strconv.FormatInt(sp.TotalSupplies, 10),
		})
	}
	return writeCSV(w, false, supplierExportHeader, rows)
}

func (s *ExportService) Supplies(ctx context.Context, w io.Writer) error {
	var supplies []models.Supply
	if err := s.container.DB.WithContext(ctx).Preload("Supplier").Order("created_at DESC").Find(&supplies).Error; err != nil {
		return err
	}
	rows := make([][]string, 0, len(supplies))
	for _, sp := range supplies {
		supplier := ""
		if sp.Supplier != nil {
			supplier = sp.Supplier.Name
		}
		rows = append(rows, []string{
			sp.SupplyNumber, supplier, sp.ProductName, strconv.Itoa(sp.QuantitySupplied),
			sp.UnitPrice.StringFixed(2), sp.TotalAmount.StringFixed(2), string(sp.Status),
			sp.SupplyDate.Format(dateLayout), sp.ExpectedDelivery.Format(dateLayout),
			sp.QualityRating.StringFixed(2),
		})
	}
	return writeCSV(w, false, supplyExportHeader, rows)
}
