package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/database"
	"github.com/socialzwater/backend/internal/models"
)

func likeTerm(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func parseOptionalDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, invalid(field, "Use the YYYY-MM-DD format")
	}
	return t, nil
}

// ---- Manufacturers ----

type ManufacturerService struct {
	container *Container
}

func NewManufacturerService(c *Container) *ManufacturerService {
	return &ManufacturerService{container: c}
}

type ManufacturerRequest struct {
	Name               string `json:"name" binding:"required"`
	ContactPerson      string `json:"contact_person" binding:"required"`
	ContactNumber      string `json:"contact_number" binding:"required"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	PostalCode         string `json:"postal_code"`
	Country            string `json:"country"`
	Email              string `json:"email" binding:"omitempty,email"`
	RegistrationNumber string `json:"registration_number"`
	GSTNumber          string `json:"gst_number"`
}

type ManufacturerFilter struct {
	Search string
	Active *bool
	Page   int
	Limit  int
}

// ManufacturerSummary is a manufacturer with its order figures.
type ManufacturerSummary struct {
	models.Manufacturer
	TotalOrders   int64           `json:"total_orders"`
	PendingOrders int64           `json:"pending_orders"`
	OrderValue    decimal.Decimal `json:"order_value"`
}

func (s *ManufacturerService) List(ctx context.Context, filter ManufacturerFilter) ([]ManufacturerSummary, error) {
	db := s.container.DB.WithContext(ctx)
	query := db.Model(&models.Manufacturer{})
	if filter.Search != "" {
		like := likeTerm(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(contact_person) LIKE ? OR LOWER(email) LIKE ? OR LOWER(city) LIKE ?", like, like, like, like)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 20)
	var manufacturers []models.Manufacturer
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&manufacturers).Error; err != nil {
		return nil, err
	}

	out := make([]ManufacturerSummary, 0, len(manufacturers))
	for _, m := range manufacturers {
		var orders []models.Order
		if err := db.Select("status", "total_amount").Where("manufacturer_id = ?", m.ID).Find(&orders).Error; err != nil {
			return nil, err
		}
		summary := ManufacturerSummary{Manufacturer: m, TotalOrders: int64(len(orders)), OrderValue: decimal.Zero}
		for _, o := range orders {
			if o.Status == models.OrderPending {
				summary.PendingOrders++
			}
			summary.OrderValue = summary.OrderValue.Add(o.TotalAmount)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *ManufacturerService) Get(ctx context.Context, id uint) (*models.Manufacturer, error) {
	var m models.Manufacturer
	if err := s.container.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func applyManufacturerRequest(m *models.Manufacturer, req *ManufacturerRequest) {
	m.Name = req.Name
	m.ContactPerson = req.ContactPerson
	m.ContactNumber = req.ContactNumber
	m.Address = req.Address
	m.City = req.City
	m.State = req.State
	m.PostalCode = req.PostalCode
	m.Country = orDefault(req.Country, "India")
	m.Email = req.Email
	m.RegistrationNumber = req.RegistrationNumber
	m.GSTNumber = req.GSTNumber
}

func (s *ManufacturerService) Create(ctx context.Context, req *ManufacturerRequest) (*models.Manufacturer, error) {
	m := &models.Manufacturer{IsActive: true}
	applyManufacturerRequest(m, req)
	if err := s.container.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ManufacturerService) Update(ctx context.Context, id uint, req *ManufacturerRequest) (*models.Manufacturer, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyManufacturerRequest(m, req)
	if err := s.container.DB.WithContext(ctx).Save(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ToggleActive flips the active flag and returns the new value.
func (s *ManufacturerService) ToggleActive(ctx context.Context, id uint) (*models.Manufacturer, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.IsActive = !m.IsActive
	if err := s.container.DB.WithContext(ctx).Model(m).Update("is_active", m.IsActive).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ManufacturerService) Delete(ctx context.Context, id uint) error {
	return deleteByID(s.container.DB.WithContext(ctx), &models.Manufacturer{}, id, func(tx *gorm.DB) error {
		orders := tx.Model(&models.Order{}).Select("id").Where("manufacturer_id = ?", id)
		if err := tx.Exec("DELETE FROM supply_orders WHERE order_id IN (?)", orders).Error; err != nil {
			return err
		}
		return tx.Where("manufacturer_id = ?", id).Delete(&models.Order{}).Error
	})
}

// deleteByID removes one row after its dependents, reporting ErrNotFound when nothing matched.
func deleteByID(db *gorm.DB, model interface{}, id uint, dependents func(tx *gorm.DB) error) error {
	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if dependents != nil {
			if err := dependents(tx); err != nil {
				return err
			}
		}
		result := tx.Delete(model, id)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Orders ----

type OrderService struct {
	container *Container
}

func NewOrderService(c *Container) *OrderService {
	return &OrderService{container: c}
}

type OrderRequest struct {
	ManufacturerID     uint                 `json:"manufacturer_id" binding:"required"`
	OrderNumber        string               `json:"order_number" binding:"required"`
	OrderDate          string               `json:"order_date"`
	ExpectedDelivery   string               `json:"expected_delivery" binding:"required"`
	ProductName        string               `json:"product_name" binding:"required"`
	ProductDescription string               `json:"product_description"`
	Quantity           int                  `json:"quantity" binding:"required,min=1"`
	UnitPrice          decimal.Decimal      `json:"unit_price"`
	Priority           models.OrderPriority `json:"priority"`
	Notes              string               `json:"notes"`
	TermsConditions    string               `json:"terms_conditions"`
}

type OrderFilter struct {
	Search         string
	Status         models.OrderStatus
	ManufacturerID uint
	Page           int
	Limit          int
}

// OrderView adds delivery tracking to a stored order.
type OrderView struct {
	models.Order
	IsOverdue         bool `json:"is_overdue"`
	DaysUntilDelivery int  `json:"days_until_delivery"`
}

type OrderStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
}

func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]OrderView, *OrderStats, error) {
	db := s.container.DB.WithContext(ctx)
	query := db.Model(&models.Order{}).Joins("JOIN manufacturers ON manufacturers.id = orders.manufacturer_id")
	if filter.Search != "" {
		like := likeTerm(filter.Search)
		query = query.Where("LOWER(orders.order_number) LIKE ? OR LOWER(orders.product_name) LIKE ? OR LOWER(manufacturers.name) LIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}
	if filter.ManufacturerID != 0 {
		query = query.Where("orders.manufacturer_id = ?", filter.ManufacturerID)
	}

	stats := &OrderStats{}
	var statuses []models.OrderStatus
	if err := query.Session(&gorm.Session{}).Pluck("orders.status", &statuses).Error; err != nil {
		return nil, nil, err
	}
	for _, st := range statuses {
		stats.Total++
		switch st {
		case models.OrderPending:
			stats.Pending++
		case models.OrderProcessing:
			stats.Processing++
		case models.OrderCompleted:
			stats.Completed++
		}
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 20)
	var orders []models.Order
	err := query.Preload("Manufacturer").Order("orders.order_date DESC, orders.id DESC").
		Limit(limit).Offset((page - 1) * limit).Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, OrderView{Order: o, IsOverdue: o.IsOverdue(now), DaysUntilDelivery: o.DaysUntilDelivery(now)})
	}
	return views, stats, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := s.container.DB.WithContext(ctx).Preload("Manufacturer").First(&o, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *OrderService) Create(ctx context.Context, req *OrderRequest) (*models.Order, error) {
	if _, err := s.container.Manufacturer.Get(ctx, req.ManufacturerID); err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, invalid("unit_price", "Unit price cannot be negative")
	}
	orderDate, err := parseOptionalDate("order_date", req.OrderDate, models.DateOnly(time.Now()))
	if err != nil {
		return nil, err
	}
	expected, err := parseOptionalDate("expected_delivery", req.ExpectedDelivery, time.Time{})
	if err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, invalid("priority", "Unknown priority")
	}

	o := &models.Order{
		ManufacturerID:     req.ManufacturerID,
		OrderNumber:        strings.TrimSpace(req.OrderNumber),
		OrderDate:          orderDate,
		ExpectedDelivery:   expected,
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		Quantity:           req.Quantity,
		UnitPrice:          req.UnitPrice,
		Status:             models.OrderPending,
		Priority:           priority,
		Notes:              req.Notes,
		TermsConditions:    req.TermsConditions,
	}
	o.ComputeTotal()

	if err := s.container.DB.WithContext(ctx).Create(o).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, invalid("order_number", "Order number already exists")
		}
		return nil, err
	}
	return o, nil
}

// UpdateStatus sets the status; delivering an order stamps today's date.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", "Unknown order status")
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"status": status}
	if status == models.OrderDelivered {
		today := models.DateOnly(time.Now())
		updates["actual_delivery"] = today
		o.ActualDelivery = &today
	}
	if err := s.container.DB.WithContext(ctx).Model(o).Updates(updates).Error; err != nil {
		return nil, err
	}
	o.Status = status
	return o, nil
}

func (s *OrderService) UpdatePriority(ctx context.Context, id uint, priority models.OrderPriority) (*models.Order, error) {
	if !priority.Valid() {
		return nil, invalid("priority", "Unknown priority")
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.container.DB.WithContext(ctx).Model(o).Update("priority", priority).Error; err != nil {
		return nil, err
	}
	o.Priority = priority
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id uint) error {
	return deleteByID(s.container.DB.WithContext(ctx), &models.Order{}, id, func(tx *gorm.DB) error {
		return tx.Exec("DELETE FROM supply_orders WHERE order_id = ?", id).Error
	})
}

// ---- Suppliers ----

type SupplierService struct {
	container *Container
}

func NewSupplierService(c *Container) *SupplierService {
	return &SupplierService{container: c}
}

type SupplierRequest struct {
	Name            string              `json:"name" binding:"required"`
	SupplierType    models.SupplierType `json:"supplier_type" binding:"required"`
	ContactPerson   string              `json:"contact_person" binding:"required"`
	ContactNumber   string              `json:"contact_number" binding:"required"`
	Email           string              `json:"email" binding:"omitempty,email"`
	Address         string              `json:"address"`
	City            string              `json:"city"`
	State           string              `json:"state"`
	PostalCode      string              `json:"postal_code"`
	Country         string              `json:"country"`
	BusinessLicense string              `json:"business_license"`
	GSTNumber       string              `json:"gst_number"`
}

type SupplierFilter struct {
	Search string
	Type   models.SupplierType
	Page   int
	Limit  int
}

type SupplierSummary struct {
	models.Supplier
	TotalSupplies  int64 `json:"total_supplies"`
	ActiveSupplies int64 `json:"active_supplies"`
}

var maxRating = decimal.NewFromInt(5)

func (s *SupplierService) List(ctx context.Context, filter SupplierFilter) ([]SupplierSummary, error) {
	db := s.container.DB.WithContext(ctx)
	query := db.Model(&models.Supplier{})
	if filter.Search != "" {
		like := likeTerm(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(contact_person) LIKE ? OR LOWER(city) LIKE ?", like, like, like)
	}
	if filter.Type != "" {
		query = query.Where("supplier_type = ?", filter.Type)
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 20)
	var suppliers []models.Supplier
	if err := query.Order("supplier_type, name").Limit(limit).Offset((page - 1) * limit).Find(&suppliers).Error; err != nil {
		return nil, err
	}

	out := make([]SupplierSummary, 0, len(suppliers))
	for _, sp := range suppliers {
		summary := SupplierSummary{Supplier: sp}
		if err := db.Model(&models.Supply{}).Where("supplier_id = ?", sp.ID).Count(&summary.TotalSupplies).Error; err != nil {
			return nil, err
		}
		err := db.Model(&models.Supply{}).
			Where("supplier_id = ? AND status IN ?", sp.ID, []models.SupplyStatus{models.SupplyPending, models.SupplyProcessing}).
			Count(&summary.ActiveSupplies).Error
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *SupplierService) Get(ctx context.Context, id uint) (*models.Supplier, error) {
	var sp models.Supplier
	if err := s.container.DB.WithContext(ctx).First(&sp, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sp, nil
}

func (s *SupplierService) Create(ctx context.Context, req *SupplierRequest) (*models.Supplier, error) {
	if !req.SupplierType.Valid() {
		return nil, invalid("supplier_type", "Unknown supplier type")
	}
	sp := &models.Supplier{
		Name:            req.Name,
		SupplierType:    req.SupplierType,
		ContactPerson:   req.ContactPerson,
		ContactNumber:   req.ContactNumber,
		Email:           req.Email,
		Address:         req.Address,
		City:            req.City,
		State:           req.State,
		PostalCode:      req.PostalCode,
		Country:         orDefault(req.Country, "India"),
		BusinessLicense: req.BusinessLicense,
		GSTNumber:       req.GSTNumber,
		Rating:          decimal.Zero,
		IsActive:        true,
	}
	if err := s.container.DB.WithContext(ctx).Create(sp).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

// UpdateRating sets a rating between 0 and 5.
func (s *SupplierService) UpdateRating(ctx context.Context, id uint, rating decimal.Decimal) (*models.Supplier, error) {
	if rating.IsNegative() || rating.GreaterThan(maxRating) {
		return nil, invalid("rating", "Rating must be between 0 and 5")
	}
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sp.Rating = rating.Round(2)
	if err := s.container.DB.WithContext(ctx).Model(sp).Update("rating", sp.Rating).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *SupplierService) ToggleActive(ctx context.Context, id uint) (*models.Supplier, error) {
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sp.IsActive = !sp.IsActive
	if err := s.container.DB.WithContext(ctx).Model(sp).Update("is_active", sp.IsActive).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *SupplierService) Delete(ctx context.Context, id uint) error {
	return deleteByID(s.container.DB.WithContext(ctx), &models.Supplier{}, id, func(tx *gorm.DB) error {
		supplies := tx.Model(&models.Supply{}).Select("id").Where("supplier_id = ?", id)
		if err := tx.Exec("DELETE FROM supply_orders WHERE supply_id IN (?)", supplies).Error; err != nil {
			return err
		}
		return tx.Where("supplier_id = ?", id).Delete(&models.Supply{}).Error
	})
}

// ---- Supplies ----

type SupplyService struct {
	container *Container
}

func NewSupplyService(c *Container) *SupplyService {
	return &SupplyService{container: c}
}

type SupplyRequest struct {
	SupplierID       uint            `json:"supplier_id" binding:"required"`
	SupplyNumber     string          `json:"supply_number" binding:"required"`
	SupplyDate       string          `json:"supply_date"`
	ExpectedDelivery string          `json:"expected_delivery" binding:"required"`
	ProductName      string          `json:"product_name" binding:"required"`
	QuantitySupplied int             `json:"quantity_supplied" binding:"required,min=1"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TrackingNumber   string          `json:"tracking_number"`
	DeliveryNotes    string          `json:"delivery_notes"`
	OrderIDs         []uint          `json:"order_ids"`
}

type SupplyFilter struct {
	Search     string
	Status     models.SupplyStatus
	SupplierID uint
	Page       int
	Limit      int
}

type SupplyView struct {
	models.Supply
	IsOverdue         bool `json:"is_overdue"`
	DeliveryDelayDays *int `json:"delivery_delay_days,omitempty"`
}

func (s *SupplyService) List(ctx context.Context, filter SupplyFilter) ([]SupplyView, error) {
	query := s.container.DB.WithContext(ctx).Model(&models.Supply{}).
		Joins("JOIN suppliers ON suppliers.id = supplies.supplier_id")
	if filter.Search != "" {
		like := likeTerm(filter.Search)
		query = query.Where("LOWER(supplies.supply_number) LIKE ? OR LOWER(supplies.product_name) LIKE ? OR LOWER(suppliers.name) LIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("supplies.status = ?", filter.Status)
	}
	if filter.SupplierID != 0 {
		query = query.Where("supplies.supplier_id = ?", filter.SupplierID)
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 20)
	var supplies []models.Supply
	err := query.Preload("Supplier").Preload("Orders").
		Order("supplies.supply_date DESC, supplies.id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&supplies).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]SupplyView, 0, len(supplies))
	for i := range supplies {
		views = append(views, SupplyView{
			Supply:            supplies[i],
			IsOverdue:         supplies[i].IsOverdue(now),
			DeliveryDelayDays: supplies[i].DeliveryDelayDays(),
		})
	}
	return views, nil
}

func (s *SupplyService) Get(ctx context.Context, id uint) (*models.Supply, error) {
	var sp models.Supply
	if err := s.container.DB.WithContext(ctx).Preload("Supplier").Preload("Orders").First(&sp, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sp, nil
}

func (s *SupplyService) Create(ctx context.Context, req *SupplyRequest) (*models.Supply, error) {
	if _, err := s.container.Supplier.Get(ctx, req.SupplierID); err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, invalid("unit_price", "Unit price cannot be negative")
	}
	supplyDate, err := parseOptionalDate("supply_date", req.SupplyDate, models.DateOnly(time.Now()))
	if err != nil {
		return nil, err
	}
	expected, err := parseOptionalDate("expected_delivery", req.ExpectedDelivery, time.Time{})
	if err != nil {
		return nil, err
	}

	sp := &models.Supply{
		SupplierID:       req.SupplierID,
		SupplyNumber:     strings.TrimSpace(req.SupplyNumber),
		SupplyDate:       supplyDate,
		ExpectedDelivery: expected,
		ProductName:      req.ProductName,
		QuantitySupplied: req.QuantitySupplied,
		UnitPrice:        req.UnitPrice,
		Status:           models.SupplyPending,
		TrackingNumber:   req.TrackingNumber,
		DeliveryNotes:    req.DeliveryNotes,
		QualityRating:    decimal.Zero,
	}
	sp.ComputeTotal()

	err = s.container.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(req.OrderIDs) > 0 {
			if err := tx.Where("id IN ?", req.OrderIDs).Find(&sp.Orders).Error; err != nil {
				return err
			}
			if len(sp.Orders) != len(req.OrderIDs) {
				return invalid("order_ids", "One or more orders do not exist")
			}
		}
		return tx.Create(sp).Error
	})
	if database.IsUniqueViolation(err) {
		return nil, invalid("supply_number", "Supply number already exists")
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// UpdateStatus sets the status; delivering a supply stamps today's date.
func (s *SupplyService) UpdateStatus(ctx context.Context, id uint, status models.SupplyStatus) (*models.Supply, error) {
	if !status.Valid() {
		return nil, invalid("status", "Unknown supply status")
	}
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"status": status}
	if status == models.SupplyDelivered {
		today := models.DateOnly(time.Now())
		updates["actual_delivery"] = today
		sp.ActualDelivery = &today
	}
	if err := s.container.DB.WithContext(ctx).Model(sp).Omit("Orders", "Supplier").Updates(updates).Error; err != nil {
		return nil, err
	}
	sp.Status = status
	return sp, nil
}

func (s *SupplyService) Delete(ctx context.Context, id uint) error {
	return deleteByID(s.container.DB.WithContext(ctx), &models.Supply{}, id, func(tx *gorm.DB) error {
		return tx.Exec("DELETE FROM supply_orders WHERE supply_id = ?", id).Error
	})
}
