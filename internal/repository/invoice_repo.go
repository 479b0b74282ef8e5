package repository

import (
	"context"
	"time"

	"betonflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceListFilter narrows List results. Zero values mean "no filter".
type InvoiceListFilter struct {
	OrderID  *uuid.UUID
	DriverID *uuid.UUID
	Status   string // driver-reported invoice status: delivered, rejected
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.ExpenseInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ExpenseInvoice, error)
	Save(ctx context.Context, invoice *model.ExpenseInvoice) error
	List(ctx context.Context, filter InvoiceListFilter) ([]model.ExpenseInvoice, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.ExpenseInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ExpenseInvoice, error) {
	var invoice model.ExpenseInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Save(ctx context.Context, invoice *model.ExpenseInvoice) error {
	return GetDB(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.ExpenseInvoice, int64, error) {
	var invoices []model.ExpenseInvoice
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.OrderID != nil {
			q = q.Where("order_id = ?", *filter.OrderID)
		}
		if filter.DriverID != nil {
			// delivery is a jsonb column; driver assignment lives inside it
			q = q.Where("delivery ->> 'driver_id' = ?", filter.DriverID.String())
		}
		if filter.Status != "" {
			q = q.Where("driver_actions ->> 'invoice_status' = ?", filter.Status)
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at <= ?", *filter.To)
		}
		return q
	}

	if err := apply(db.Model(&model.ExpenseInvoice{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.ExpenseInvoice{}).
		Where("invoice_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
