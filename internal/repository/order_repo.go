package repository

import (
	"context"
	"time"

	"betonflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderListFilter narrows List results. Zero values mean "no filter".
type OrderListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	OnlyActive bool
	Page       int
	Limit      int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Save(ctx context.Context, order *model.Order) error
	List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Save(order).Error
}

func (r *orderRepository) List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.CustomerID != nil {
			q = q.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.From != nil {
			q = q.Where("delivery_date_time >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("delivery_date_time <= ?", *filter.To)
		}
		if filter.OnlyActive {
			q = q.Where("is_active = ?", true)
		}
		return q
	}

	if err := apply(db.Model(&model.Order{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
