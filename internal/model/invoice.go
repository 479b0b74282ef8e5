package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Final decision a driver records on an invoice.
const (
	InvoiceDelivered = "delivered"
	InvoiceRejected  = "rejected"
)

// InvoiceItem is one line of an expense invoice. Price and Amount are
// optional and stripped from responses for roles without money access.
// Consumption carries the per-material mix snapshot copied from the
// concrete grade when the invoice was created.
type InvoiceItem struct {
	Name        string                `json:"name"`
	Unit        string                `json:"unit"`
	Quantity    float64               `json:"quantity"`
	Price       *decimal.Decimal      `json:"price,omitempty"`
	Amount      *decimal.Decimal      `json:"amount,omitempty"`
	Consumption []MaterialConsumption `json:"consumption,omitempty"`
}

// InvoiceDelivery describes the physical delivery leg of the invoice.
type InvoiceDelivery struct {
	Object         string     `json:"object"`
	Address        string     `json:"address"`
	DispatcherName string     `json:"dispatcher_name"`
	DriverID       *uuid.UUID `json:"driver_id"`
	DriverName     string     `json:"driver_name"`
	VehicleID      *uuid.UUID `json:"vehicle_id"`
	VehicleNumber  string     `json:"vehicle_number"`
	GrossWeight    *float64   `json:"gross_weight,omitempty"` // kg, weighbridge
	TareWeight     *float64   `json:"tare_weight,omitempty"`
	NetWeight      *float64   `json:"net_weight,omitempty"`
}

// InvoiceTiming holds the four delivery milestones. Dispatcher-set values
// are the plan, driver-confirmed values the fact.
type InvoiceTiming struct {
	DepartureFromPlant  *time.Time `json:"departure_from_plant"`
	ArrivalAtObject     *time.Time `json:"arrival_at_object"`
	DepartureFromObject *time.Time `json:"departure_from_object"`
	ArrivalAtPlant      *time.Time `json:"arrival_at_plant"`
}

// DriverActions is what the driver-facing view submits against an invoice:
// milestone confirmations with timestamps and the final accept/reject call.
type DriverActions struct {
	DepartureConfirmed           bool       `json:"departure_confirmed"`
	DepartureConfirmedAt         *time.Time `json:"departure_confirmed_at"`
	ArrivalConfirmed             bool       `json:"arrival_confirmed"`
	ArrivalConfirmedAt           *time.Time `json:"arrival_confirmed_at"`
	DepartureFromObjectConfirmed bool       `json:"departure_from_object_confirmed"`
	DepartureFromObjectAt        *time.Time `json:"departure_from_object_at"`
	ArrivalAtPlantConfirmed      bool       `json:"arrival_at_plant_confirmed"`
	ArrivalAtPlantAt             *time.Time `json:"arrival_at_plant_at"`
	InvoiceStatus                string     `json:"invoice_status"` // "", delivered, rejected
	RejectionReason              string     `json:"rejection_reason,omitempty"`
	DriverNotes                  string     `json:"driver_notes,omitempty"`
	CompletedAt                  *time.Time `json:"completed_at"`
}

// ExpenseInvoice represents the delivery document a dispatcher produces,
// tied 0-or-1 to an Order via OrderID.
type ExpenseInvoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	WarehouseID   *uuid.UUID      `gorm:"type:uuid" json:"warehouse_id"`
	WarehouseName string          `gorm:"type:varchar(255)" json:"warehouse_name"`
	Items         []InvoiceItem   `gorm:"type:jsonb;serializer:json" json:"items"`
	Delivery      InvoiceDelivery `gorm:"type:jsonb;serializer:json" json:"delivery"`
	Timing        InvoiceTiming   `gorm:"type:jsonb;serializer:json" json:"timing"`
	DriverActions *DriverActions  `gorm:"type:jsonb;serializer:json" json:"driver_actions,omitempty"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
