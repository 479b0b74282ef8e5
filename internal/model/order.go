package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enum constants
const (
	OrderPending      = "pending"
	OrderConfirmed    = "confirmed"
	OrderInProduction = "in_production"
	OrderReady        = "ready"
	OrderDelivered    = "delivered"
	OrderCompleted    = "completed"
	OrderCancelled    = "cancelled"
)

// OrderPriority enum constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// PriorityFromCode maps the 1-4 numeric selection used by the UI to a
// priority value. Returns "" for anything outside the range.
func PriorityFromCode(code int) string {
	switch code {
	case 1:
		return PriorityLow
	case 2:
		return PriorityMedium
	case 3:
		return PriorityHigh
	case 4:
		return PriorityUrgent
	default:
		return ""
	}
}

// TerminalStatus reports whether status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == OrderCompleted || status == OrderCancelled
}

// ServiceLine is one additional service billed on top of the concrete itself
// (pump rental, extra distance, downtime and the like).
type ServiceLine struct {
	ServiceID    string          `json:"service_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
}

// Order represents one customer request for a quantity of a concrete grade
// delivered to an address at a time. Name fields are snapshots taken at
// creation so the order stays readable if the directory entry changes.
type Order struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID        uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	CustomerName      string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	ConcreteGradeID   uuid.UUID `gorm:"type:uuid;not null" json:"concrete_grade_id"`
	ConcreteGradeName string    `gorm:"type:varchar(100);not null" json:"concrete_grade_name"`
	Quantity          float64   `gorm:"type:numeric(10,2);not null" json:"quantity"` // m3
	WarehouseID       uuid.UUID `gorm:"type:uuid;not null" json:"warehouse_id"`
	WarehouseName     string    `gorm:"type:varchar(255);not null" json:"warehouse_name"`
	DeliveryObject    string    `gorm:"type:varchar(255)" json:"delivery_object"`
	DeliveryAddress   string    `gorm:"type:text;not null" json:"delivery_address"`
	DeliveryDateTime  time.Time `gorm:"not null;index" json:"delivery_date_time"`

	// Commercial fields, redacted in responses for roles without money access.
	Price              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"price"` // per m3
	TotalPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_price"`
	AdditionalServices []ServiceLine   `gorm:"type:jsonb;serializer:json" json:"additional_services"`

	Status   string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority string `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	IsActive bool   `gorm:"not null;default:true;index" json:"is_active"`

	// Execution tracking, written only by reconciliation.
	AssignedDriverID      *uuid.UUID `gorm:"type:uuid" json:"assigned_driver_id"`
	AssignedDriverName    string     `gorm:"type:varchar(255)" json:"assigned_driver_name"`
	AssignedVehicleID     *uuid.UUID `gorm:"type:uuid" json:"assigned_vehicle_id"`
	AssignedVehicleNumber string     `gorm:"type:varchar(20)" json:"assigned_vehicle_number"`
	DepartureTime         *time.Time `json:"departure_time"`
	ArrivalTime           *time.Time `json:"arrival_time"`
	CompletionTime        *time.Time `json:"completion_time"`
	ExpenseInvoiceID      *uuid.UUID `gorm:"type:uuid" json:"expense_invoice_id"`

	CreatedBy     *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedByName string     `gorm:"type:varchar(255)" json:"created_by_name"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
