package service

import (
	"context"
	"time"

	"betonflow/internal/model"
	"betonflow/internal/policy"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsResponse struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
	ActiveOrders    int64            `json:"active_orders"`
	DeliveredVolume float64          `json:"delivered_volume_m3"`
	// Revenue is present only for roles with money access.
	Revenue *string `json:"revenue,omitempty"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor Actor, from, to time.Time) (StatisticsResponse, error)
	// OrdersForReport returns every active order with delivery inside the
	// range, oldest first, for the XLSX register.
	OrdersForReport(ctx context.Context, from, to time.Time) ([]model.Order, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates order counters for the dashboard. Query errors
// leave the affected counter at zero rather than failing the whole call.
func (s *statisticsService) GetStatistics(ctx context.Context, actor Actor, from, to time.Time) (StatisticsResponse, error) {
	resp := StatisticsResponse{
		From:           from,
		To:             to,
		OrdersByStatus: make(map[string]int64),
	}

	var rows []struct {
		Status string
		Count  int64
	}
	s.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ? AND is_active = ?", from, to, true).
		Group("status").
		Scan(&rows)
	for _, row := range rows {
		resp.OrdersByStatus[row.Status] = row.Count
	}

	s.db.WithContext(ctx).Model(&model.Order{}).
		Where("is_active = ? AND status NOT IN ?", true, []string{model.OrderCompleted, model.OrderCancelled}).
		Count(&resp.ActiveOrders)

	var delivered struct {
		Volume float64
	}
	s.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(quantity), 0) as volume").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.OrderCompleted, from, to).
		Scan(&delivered)
	resp.DeliveredVolume = delivered.Volume

	if policy.CanViewMoney(actor.Role) {
		var revenue struct {
			Total float64
		}
		s.db.WithContext(ctx).Model(&model.Order{}).
			Select("COALESCE(SUM(total_price), 0) as total").
			Where("status = ? AND created_at >= ? AND created_at <= ?", model.OrderCompleted, from, to).
			Scan(&revenue)
		total := decimal.NewFromFloat(revenue.Total).StringFixed(2)
		resp.Revenue = &total
	}

	return resp, nil
}

func (s *statisticsService) OrdersForReport(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := s.db.WithContext(ctx).
		Where("delivery_date_time >= ? AND delivery_date_time <= ? AND is_active = ?", from, to, true).
		Order("delivery_date_time ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
