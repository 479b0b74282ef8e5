package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Counterparty is a customer or supplier organization.
type Counterparty struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	INN           string    `gorm:"type:varchar(12);index" json:"inn"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string    `gorm:"type:varchar(20)" json:"phone"`
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	Address       string    `gorm:"type:text" json:"address"`
	// Orders for this customer skip the pending review step (manager-created
	// orders excepted).
	AutoApprove bool      `gorm:"not null;default:false" json:"auto_approve"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MaterialConsumption is one component of a concrete grade's mix recipe.
type MaterialConsumption struct {
	MaterialID    string  `json:"material_id"`
	MaterialName  string  `json:"material_name"`
	Unit          string  `json:"unit"`
	PerCubicMeter float64 `json:"per_cubic_meter"`
}

// ConcreteGrade describes a producible concrete mix.
type ConcreteGrade struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string                `gorm:"type:varchar(100);not null" json:"name"` // e.g. БСТ В25 П3 F200 W6
	Class       string                `gorm:"type:varchar(20)" json:"class"`          // e.g. B25
	Composition []MaterialConsumption `gorm:"type:jsonb;serializer:json" json:"composition"`
	IsActive    bool                  `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// Warehouse is a production site / plant concrete ships from.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Material is a raw mix component (cement, sand, gravel, additives).
type Material struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Unit      string    `gorm:"type:varchar(20);not null" json:"unit"` // кг, м3, л
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Driver is a delivery driver. May optionally be linked to a login account.
type Driver struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FullName      string     `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone         string     `gorm:"type:varchar(20)" json:"phone"`
	LicenseNumber string     `gorm:"type:varchar(30)" json:"license_number"`
	UserID        *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Vehicle is a mixer truck or dump truck.
type Vehicle struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number     string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"` // state plate
	Model      string    `gorm:"type:varchar(100)" json:"model"`
	CapacityM3 float64   `gorm:"type:numeric(6,2)" json:"capacity_m3"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Price sets the per-m3 price of a concrete grade from an effective date.
type Price struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConcreteGradeID uuid.UUID       `gorm:"type:uuid;not null;index" json:"concrete_grade_id"`
	PricePerM3      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price_per_m3"`
	EffectiveFrom   time.Time       `gorm:"not null;index" json:"effective_from"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AdditionalService is a billable extra (pump, downtime, distance surcharge).
type AdditionalService struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit         string          `gorm:"type:varchar(20);not null" json:"unit"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price_per_unit"`
	IsActive     bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
