package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification type constants
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notification priority constants
const (
	NotifyPriorityNormal = "normal"
	NotifyPriorityHigh   = "high"
)

// Notification is a role-targeted message emitted as a side effect of
// workflow transitions. Fire-and-forget: persisted for the in-app feed and
// pushed to connected clients of the target role, no delivery guarantee.
type Notification struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title            string     `gorm:"type:varchar(255);not null" json:"title"`
	Message          string     `gorm:"type:text;not null" json:"message"`
	Type             string     `gorm:"type:varchar(10);not null;default:'info'" json:"type"`
	Role             string     `gorm:"type:varchar(50);not null;index" json:"role"`
	UserID           *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	RelatedOrderID   *uuid.UUID `gorm:"type:uuid" json:"related_order_id"`
	RelatedInvoiceID *uuid.UUID `gorm:"type:uuid" json:"related_invoice_id"`
	Priority         string     `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	Read             bool       `gorm:"not null;default:false;index" json:"read"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
