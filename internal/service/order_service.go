package service

import (
	"context"
	"fmt"
	"time"

	"betonflow/internal/model"
	"betonflow/internal/policy"
	"betonflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

// --- DTOs ---

type ServiceLineRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
}

type CreateOrderRequest struct {
	CustomerID       string               `json:"customer_id" binding:"required"`
	ConcreteGradeID  string               `json:"concrete_grade_id" binding:"required"`
	Quantity         float64              `json:"quantity" binding:"required,gt=0"`
	WarehouseID      string               `json:"warehouse_id" binding:"required"`
	DeliveryObject   string               `json:"delivery_object"`
	DeliveryAddress  string               `json:"delivery_address" binding:"required"`
	DeliveryDateTime time.Time            `json:"delivery_date_time" binding:"required"`
	Price            string               `json:"price"` // per m3; empty = current directory price
	Services         []ServiceLineRequest `json:"additional_services"`
}

type OrderResponse struct {
	ID                string  `json:"id"`
	CustomerID        string  `json:"customer_id"`
	CustomerName      string  `json:"customer_name"`
	ConcreteGradeID   string  `json:"concrete_grade_id"`
	ConcreteGradeName string  `json:"concrete_grade_name"`
	Quantity          float64 `json:"quantity"`
	WarehouseID       string  `json:"warehouse_id"`
	WarehouseName     string  `json:"warehouse_name"`
	DeliveryObject    string  `json:"delivery_object"`
	DeliveryAddress   string  `json:"delivery_address"`
	DeliveryDateTime  string  `json:"delivery_date_time"`

	// nil for roles without money access
	Price              *string             `json:"price,omitempty"`
	TotalPrice         *string             `json:"total_price,omitempty"`
	AdditionalServices []model.ServiceLine `json:"additional_services,omitempty"`

	Status   string `json:"status"`
	Priority string `json:"priority"`
	IsActive bool   `json:"is_active"`

	AssignedDriverID      *string `json:"assigned_driver_id,omitempty"`
	AssignedDriverName    string  `json:"assigned_driver_name,omitempty"`
	AssignedVehicleID     *string `json:"assigned_vehicle_id,omitempty"`
	AssignedVehicleNumber string  `json:"assigned_vehicle_number,omitempty"`
	DepartureTime         *string `json:"departure_time,omitempty"`
	ArrivalTime           *string `json:"arrival_time,omitempty"`
	CompletionTime        *string `json:"completion_time,omitempty"`
	ExpenseInvoiceID      *string `json:"expense_invoice_id,omitempty"`

	CreatedByName string `json:"created_by_name"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type OrderFilter struct {
	Status     string
	CustomerID string
	From       *time.Time
	To         *time.Time
	OnlyActive bool
	Page       int
	Limit      int
}

// DirectoryLookup is the slice of the directory service the order workflow
// needs for reference resolution and price defaulting.
type DirectoryLookup interface {
	GetCounterparty(ctx context.Context, id uuid.UUID) (*model.Counterparty, error)
	GetConcreteGrade(ctx context.Context, id uuid.UUID) (*model.ConcreteGrade, error)
	GetWarehouse(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)
	GetAdditionalService(ctx context.Context, id uuid.UUID) (*model.AdditionalService, error)
	CurrentPrice(ctx context.Context, gradeID uuid.UUID, at time.Time) (*model.Price, error)
}

// --- Interface ---

type OrderService interface {
	Create(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error)
	Approve(ctx context.Context, actor Actor, id string) (OrderResponse, error)
	SetPriority(ctx context.Context, actor Actor, id string, code int) (OrderResponse, error)
	Update(ctx context.Context, actor Actor, id string, req CreateOrderRequest) (OrderResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Get(ctx context.Context, actor Actor, id string) (OrderResponse, error)
	List(ctx context.Context, actor Actor, filter OrderFilter) ([]OrderResponse, int64, error)
}

type orderService struct {
	orders      repository.OrderRepository
	directories DirectoryLookup
}

func NewOrderService(orders repository.OrderRepository, directories DirectoryLookup) OrderService {
	return &orderService{orders: orders, directories: directories}
}

// --- Implementation ---

func (s *orderService) Create(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error) {
	if !policy.Allow(actor.Role, policy.OrderCreate, "") {
		return OrderResponse{}, ErrPermissionDenied
	}
	if req.Quantity <= 0 {
		return OrderResponse{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	order, err := s.buildOrder(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}

	customer, err := s.directories.GetCounterparty(ctx, order.CustomerID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("%w: customer", ErrNotFound)
	}

	// Auto-approve skips the review step, but never for manager-created
	// orders: the business wants manager sales reviewed regardless of the
	// customer's standing.
	order.Status = model.OrderPending
	if customer.AutoApprove && actor.Role != model.RoleManager {
		order.Status = model.OrderConfirmed
	}
	order.Priority = model.PriorityMedium
	order.IsActive = true
	order.CreatedBy = &actor.ID
	order.CreatedByName = actor.Name

	if err := s.orders.Create(ctx, order); err != nil {
		return OrderResponse{}, fmt.Errorf("failed to create order: %w", err)
	}

	return toOrderResponse(*order, actor.Role), nil
}

func (s *orderService) Approve(ctx context.Context, actor Actor, id string) (OrderResponse, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if err := authorize(actor.Role, policy.OrderApprove, order.Status); err != nil {
		return OrderResponse{}, err
	}

	order.Status = model.OrderConfirmed
	order.UpdatedAt = time.Now()
	if err := s.orders.Save(ctx, order); err != nil {
		return OrderResponse{}, fmt.Errorf("failed to approve order: %w", err)
	}
	return toOrderResponse(*order, actor.Role), nil
}

func (s *orderService) SetPriority(ctx context.Context, actor Actor, id string, code int) (OrderResponse, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if err := authorize(actor.Role, policy.OrderSetPriority, order.Status); err != nil {
		return OrderResponse{}, err
	}

	priority := model.PriorityFromCode(code)
	if priority == "" {
		return OrderResponse{}, fmt.Errorf("%w: priority code must be 1-4", ErrInvalidInput)
	}

	order.Priority = priority
	order.UpdatedAt = time.Now()
	if err := s.orders.Save(ctx, order); err != nil {
		return OrderResponse{}, fmt.Errorf("failed to set priority: %w", err)
	}
	return toOrderResponse(*order, actor.Role), nil
}

// Update replaces the descriptive and commercial fields wholesale while the
// order is still pending. Workflow and execution fields are untouched.
func (s *orderService) Update(ctx context.Context, actor Actor, id string, req CreateOrderRequest) (OrderResponse, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if err := authorize(actor.Role, policy.OrderUpdate, order.Status); err != nil {
		return OrderResponse{}, err
	}
	if req.Quantity <= 0 {
		return OrderResponse{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	replacement, err := s.buildOrder(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}

	order.CustomerID = replacement.CustomerID
	order.CustomerName = replacement.CustomerName
	order.ConcreteGradeID = replacement.ConcreteGradeID
	order.ConcreteGradeName = replacement.ConcreteGradeName
	order.Quantity = replacement.Quantity
	order.WarehouseID = replacement.WarehouseID
	order.WarehouseName = replacement.WarehouseName
	order.DeliveryObject = replacement.DeliveryObject
	order.DeliveryAddress = replacement.DeliveryAddress
	order.DeliveryDateTime = replacement.DeliveryDateTime
	order.Price = replacement.Price
	order.TotalPrice = replacement.TotalPrice
	order.AdditionalServices = replacement.AdditionalServices
	order.UpdatedAt = time.Now()

	if err := s.orders.Save(ctx, order); err != nil {
		return OrderResponse{}, fmt.Errorf("failed to update order: %w", err)
	}
	return toOrderResponse(*order, actor.Role), nil
}

// Delete is a soft delete: the order drops out of working lists but keeps
// its status for history.
func (s *orderService) Delete(ctx context.Context, actor Actor, id string) error {
	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor.Role, policy.OrderDelete, order.Status); err != nil {
		return err
	}

	order.IsActive = false
	order.UpdatedAt = time.Now()
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, id string) (OrderResponse, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(*order, actor.Role), nil
}

func (s *orderService) List(ctx context.Context, actor Actor, filter OrderFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.OrderListFilter{
		Status:     filter.Status,
		From:       filter.From,
		To:         filter.To,
		OnlyActive: filter.OnlyActive,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.CustomerID != "" {
		cid, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: customer_id", ErrInvalidInput)
		}
		repoFilter.CustomerID = &cid
	}

	orders, total, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	result := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o, actor.Role))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *orderService) load(ctx context.Context, id string) (*model.Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: order id", ErrInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	return order, nil
}

// buildOrder resolves directory references, snapshots names and computes
// totals. Status/priority/audit fields are left for the caller.
func (s *orderService) buildOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer_id", ErrInvalidInput)
	}
	gradeID, err := uuid.Parse(req.ConcreteGradeID)
	if err != nil {
		return nil, fmt.Errorf("%w: concrete_grade_id", ErrInvalidInput)
	}
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("%w: warehouse_id", ErrInvalidInput)
	}

	customer, err := s.directories.GetCounterparty(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer", ErrNotFound)
	}
	grade, err := s.directories.GetConcreteGrade(ctx, gradeID)
	if err != nil {
		return nil, fmt.Errorf("%w: concrete grade", ErrNotFound)
	}
	warehouse, err := s.directories.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("%w: warehouse", ErrNotFound)
	}

	var price decimal.Decimal
	if req.Price != "" {
		price, err = decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: price", ErrInvalidInput)
		}
	} else if current, err := s.directories.CurrentPrice(ctx, gradeID, req.DeliveryDateTime); err == nil {
		price = current.PricePerM3
	}

	quantity := decimal.NewFromFloat(req.Quantity)
	total := price.Mul(quantity)

	lines := make([]model.ServiceLine, 0, len(req.Services))
	for _, sl := range req.Services {
		serviceID, err := uuid.Parse(sl.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("%w: service_id", ErrInvalidInput)
		}
		svc, err := s.directories.GetAdditionalService(ctx, serviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: additional service", ErrNotFound)
		}
		qty, err := decimal.NewFromString(sl.Quantity)
		if err != nil || qty.IsNegative() {
			return nil, fmt.Errorf("%w: service quantity", ErrInvalidInput)
		}
		lineTotal := svc.PricePerUnit.Mul(qty)
		lines = append(lines, model.ServiceLine{
			ServiceID:    svc.ID.String(),
			Name:         svc.Name,
			Quantity:     qty,
			PricePerUnit: svc.PricePerUnit,
			Total:        lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return &model.Order{
		CustomerID:         customerID,
		CustomerName:       customer.Name,
		ConcreteGradeID:    gradeID,
		ConcreteGradeName:  grade.Name,
		Quantity:           req.Quantity,
		WarehouseID:        warehouseID,
		WarehouseName:      warehouse.Name,
		DeliveryObject:     req.DeliveryObject,
		DeliveryAddress:    req.DeliveryAddress,
		DeliveryDateTime:   req.DeliveryDateTime,
		Price:              price,
		TotalPrice:         total,
		AdditionalServices: lines,
	}, nil
}

// authorize maps a policy denial to the right error: wrong role is a
// permission failure, right role in the wrong order state is invalid input.
func authorize(role string, action policy.Action, status string) error {
	if !policy.RoleAllowed(role, action) {
		return ErrPermissionDenied
	}
	if !policy.Allow(role, action, status) {
		return fmt.Errorf("%w: not allowed while order is %s", ErrInvalidInput, status)
	}
	return nil
}

// --- Mapping ---

func toOrderResponse(o model.Order, role string) OrderResponse {
	resp := OrderResponse{
		ID:                    o.ID.String(),
		CustomerID:            o.CustomerID.String(),
		CustomerName:          o.CustomerName,
		ConcreteGradeID:       o.ConcreteGradeID.String(),
		ConcreteGradeName:     o.ConcreteGradeName,
		Quantity:              o.Quantity,
		WarehouseID:           o.WarehouseID.String(),
		WarehouseName:         o.WarehouseName,
		DeliveryObject:        o.DeliveryObject,
		DeliveryAddress:       o.DeliveryAddress,
		DeliveryDateTime:      o.DeliveryDateTime.Format(time.RFC3339),
		Status:                o.Status,
		Priority:              o.Priority,
		IsActive:              o.IsActive,
		AssignedDriverName:    o.AssignedDriverName,
		AssignedVehicleNumber: o.AssignedVehicleNumber,
		CreatedByName:         o.CreatedByName,
		CreatedAt:             o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             o.UpdatedAt.Format(time.RFC3339),
	}

	if policy.CanViewMoney(role) {
		price := o.Price.StringFixed(2)
		total := o.TotalPrice.StringFixed(2)
		resp.Price = &price
		resp.TotalPrice = &total
		resp.AdditionalServices = o.AdditionalServices
	}

	if o.AssignedDriverID != nil {
		s := o.AssignedDriverID.String()
		resp.AssignedDriverID = &s
	}
	if o.AssignedVehicleID != nil {
		s := o.AssignedVehicleID.String()
		resp.AssignedVehicleID = &s
	}
	if o.ExpenseInvoiceID != nil {
		s := o.ExpenseInvoiceID.String()
		resp.ExpenseInvoiceID = &s
	}
	if o.DepartureTime != nil {
		s := o.DepartureTime.Format(time.RFC3339)
		resp.DepartureTime = &s
	}
	if o.ArrivalTime != nil {
		s := o.ArrivalTime.Format(time.RFC3339)
		resp.ArrivalTime = &s
	}
	if o.CompletionTime != nil {
		s := o.CompletionTime.Format(time.RFC3339)
		resp.CompletionTime = &s
	}

	return resp
}
