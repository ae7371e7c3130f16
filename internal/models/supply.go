package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Manufacturer struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	Name               string `gorm:"size:255;not null" json:"name"`
	ContactPerson      string `gorm:"size:150;not null" json:"contact_person"`
	ContactNumber      string `gorm:"size:17;not null" json:"contact_number"`
	Address            string `gorm:"type:text" json:"address"`
	City               string `gorm:"size:100" json:"city"`
	State              string `gorm:"size:100" json:"state"`
	PostalCode         string `gorm:"size:20" json:"postal_code"`
	Country            string `gorm:"size:100;default:'India'" json:"country"`
	Email              string `gorm:"size:254" json:"email"`
	RegistrationNumber string `gorm:"size:100" json:"registration_number"`
	GSTNumber          string `gorm:"size:20" json:"gst_number"`
	IsActive           bool   `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderDelivered  OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled, OrderDelivered:
		return true
	}
	return false
}

type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityMedium OrderPriority = "medium"
	PriorityHigh   OrderPriority = "high"
	PriorityUrgent OrderPriority = "urgent"
)

func (p OrderPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Order struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ManufacturerID uint          `gorm:"not null;index" json:"manufacturer_id"`
	Manufacturer   *Manufacturer `gorm:"constraint:OnDelete:CASCADE" json:"manufacturer,omitempty"`

	OrderNumber      string     `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	OrderDate        time.Time  `gorm:"type:date;not null" json:"order_date"`
	ExpectedDelivery time.Time  `gorm:"type:date;not null" json:"expected_delivery"`
	ActualDelivery   *time.Time `gorm:"type:date" json:"actual_delivery,omitempty"`

	ProductName        string          `gorm:"size:255;not null" json:"product_name"`
	ProductDescription string          `gorm:"type:text" json:"product_description"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	Status   OrderStatus   `gorm:"size:20;default:'pending'" json:"status"`
	Priority OrderPriority `gorm:"size:10;default:'medium'" json:"priority"`

	Notes           string `gorm:"type:text" json:"notes"`
	TermsConditions string `gorm:"type:text" json:"terms_conditions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeTotal sets TotalAmount to quantity times unit price.
func (o *Order) ComputeTotal() {
	o.TotalAmount = o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

func (o *Order) IsOverdue(now time.Time) bool {
	switch o.Status {
	case OrderCompleted, OrderDelivered, OrderCancelled:
		return false
	}
	return DateOnly(o.ExpectedDelivery).Before(DateOnly(now))
}

func (o *Order) DaysUntilDelivery(now time.Time) int {
	return int(DateOnly(o.ExpectedDelivery).Sub(DateOnly(now)).Hours() / 24)
}

type SupplierType string

const (
	SupplierHotel       SupplierType = "hotel"
	SupplierEvent       SupplierType = "event"
	SupplierDistributor SupplierType = "distributor"
	SupplierRestaurant  SupplierType = "restaurant"
	SupplierCatering    SupplierType = "catering"
	SupplierRetailer    SupplierType = "retailer"
	SupplierOther       SupplierType = "other"
)

func (t SupplierType) Valid() bool {
	switch t {
	case SupplierHotel, SupplierEvent, SupplierDistributor, SupplierRestaurant,
		SupplierCatering, SupplierRetailer, SupplierOther:
		return true
	}
	return false
}

// Display is the label used in exports.
func (t SupplierType) Display() string {
	switch t {
	case SupplierHotel:
		return "Hotel"
	case SupplierEvent:
		return "Event Company"
	case SupplierDistributor:
		return "Distributor"
	case SupplierRestaurant:
		return "Restaurant"
	case SupplierCatering:
		return "Catering Service"
	case SupplierRetailer:
		return "Retailer"
	case SupplierOther:
		return "Other"
	}
	return string(t)
}

type Supplier struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	SupplierType    SupplierType    `gorm:"size:20;not null" json:"supplier_type"`
	ContactPerson   string          `gorm:"size:150;not null" json:"contact_person"`
	ContactNumber   string          `gorm:"size:17;not null" json:"contact_number"`
	Email           string          `gorm:"size:254" json:"email"`
	Address         string          `gorm:"type:text" json:"address"`
	City            string          `gorm:"size:100" json:"city"`
	State           string          `gorm:"size:100" json:"state"`
	PostalCode      string          `gorm:"size:20" json:"postal_code"`
	Country         string          `gorm:"size:100;default:'India'" json:"country"`
	BusinessLicense string          `gorm:"size:100" json:"business_license"`
	GSTNumber       string          `gorm:"size:20" json:"gst_number"`
	Rating          decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"rating"`
	IsActive        bool            `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SupplyStatus string

const (
	SupplyPending    SupplyStatus = "pending"
	SupplyProcessing SupplyStatus = "processing"
	SupplyDispatched SupplyStatus = "dispatched"
	SupplyDelivered  SupplyStatus = "delivered"
	SupplyCancelled  SupplyStatus = "cancelled"
)

func (s SupplyStatus) Valid() bool {
	switch s {
	case SupplyPending, SupplyProcessing, SupplyDispatched, SupplyDelivered, SupplyCancelled:
		return true
	}
	return false
}

type Supply struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SupplierID uint      `gorm:"not null;index" json:"supplier_id"`
	Supplier   *Supplier `gorm:"constraint:OnDelete:CASCADE" json:"supplier,omitempty"`
	Orders     []Order   `gorm:"many2many:supply_orders;" json:"orders,omitempty"`

	SupplyNumber     string     `gorm:"size:50;uniqueIndex;not null" json:"supply_number"`
	SupplyDate       time.Time  `gorm:"type:date;not null" json:"supply_date"`
	ExpectedDelivery time.Time  `gorm:"type:date;not null" json:"expected_delivery"`
	ActualDelivery   *time.Time `gorm:"type:date" json:"actual_delivery,omitempty"`

	ProductName      string          `gorm:"size:255;not null" json:"product_name"`
	QuantitySupplied int             `gorm:"not null" json:"quantity_supplied"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	Status         SupplyStatus    `gorm:"size:20;default:'pending'" json:"status"`
	TrackingNumber string          `gorm:"size:100" json:"tracking_number"`
	DeliveryNotes  string          `gorm:"type:text" json:"delivery_notes"`
	QualityRating  decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"quality_rating"`
	Feedback       string          `gorm:"type:text" json:"feedback"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Supply) ComputeTotal() {
	s.TotalAmount = s.UnitPrice.Mul(decimal.NewFromInt(int64(s.QuantitySupplied)))
}

func (s *Supply) IsOverdue(now time.Time) bool {
	if s.Status == SupplyDelivered || s.Status == SupplyCancelled {
		return false
	}
	return DateOnly(s.ExpectedDelivery).Before(DateOnly(now))
}

// DeliveryDelayDays is nil until the supply has actually been delivered.
func (s *Supply) DeliveryDelayDays() *int {
	if s.ActualDelivery == nil {
		return nil
	}
	days := int(DateOnly(*s.ActualDelivery).Sub(DateOnly(s.ExpectedDelivery)).Hours() / 24)
	return &days
}
