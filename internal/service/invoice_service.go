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

// --- DTOs ---

type InvoiceItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Unit     string  `json:"unit" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Price    string  `json:"price"`
}

type InvoiceDeliveryRequest struct {
	Object      string   `json:"object"`
	Address     string   `json:"address"`
	DriverID    string   `json:"driver_id"`
	VehicleID   string   `json:"vehicle_id"`
	GrossWeight *float64 `json:"gross_weight"`
	TareWeight  *float64 `json:"tare_weight"`
}

type CreateInvoiceRequest struct {
	OrderID     string                 `json:"order_id"` // optional: pre-fill from order
	CustomerID  string                 `json:"customer_id"`
	WarehouseID string                 `json:"warehouse_id"`
	Items       []InvoiceItemRequest   `json:"items"`
	Delivery    InvoiceDeliveryRequest `json:"delivery"`
	Timing      model.InvoiceTiming    `json:"timing"`
}

type UpdateInvoiceRequest struct {
	Delivery *InvoiceDeliveryRequest `json:"delivery"`
	Timing   *model.InvoiceTiming    `json:"timing"`
}

type InvoiceFilter struct {
	DriverID string
	OrderID  string
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, actor Actor, req CreateInvoiceRequest) (*model.ExpenseInvoice, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateInvoiceRequest) (*model.ExpenseInvoice, error)
	Get(ctx context.Context, actor Actor, id string) (*model.ExpenseInvoice, error)
	List(ctx context.Context, actor Actor, filter InvoiceFilter) ([]model.ExpenseInvoice, int64, error)
	ListForDriver(ctx context.Context, actor Actor, page, limit int) ([]model.ExpenseInvoice, int64, error)
}

// InvoiceDirectoryLookup extends DirectoryLookup with the crew directories
// the invoice workflow snapshots names from.
type InvoiceDirectoryLookup interface {
	DirectoryLookup
	GetDriver(ctx context.Context, id uuid.UUID) (*model.Driver, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	GetDriverByUserID(ctx context.Context, userID uuid.UUID) (*model.Driver, error)
}

type invoiceService struct {
	invoices    repository.InvoiceRepository
	orders      repository.OrderRepository
	directories InvoiceDirectoryLookup
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	orders repository.OrderRepository,
	directories InvoiceDirectoryLookup,
) InvoiceService {
	return &invoiceService{invoices: invoices, orders: orders, directories: directories}
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, actor Actor, req CreateInvoiceRequest) (*model.ExpenseInvoice, error) {
	if !policy.Allow(actor.Role, policy.InvoiceCreate, "") {
		return nil, ErrPermissionDenied
	}

	invoice := model.ExpenseInvoice{
		Timing:    req.Timing,
		CreatedBy: &actor.ID,
	}
	invoice.Delivery.DispatcherName = actor.Name

	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, fmt.Errorf("%w: order_id", ErrInvalidInput)
		}
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		s.prefillFromOrder(ctx, &invoice, order)
	}

	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: customer_id", ErrInvalidInput)
		}
		customer, err := s.directories.GetCounterparty(ctx, cid)
		if err != nil {
			return nil, fmt.Errorf("%w: customer", ErrNotFound)
		}
		invoice.CustomerID = &customer.ID
		invoice.CustomerName = customer.Name
	}
	if req.WarehouseID != "" {
		wid, err := uuid.Parse(req.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("%w: warehouse_id", ErrInvalidInput)
		}
		warehouse, err := s.directories.GetWarehouse(ctx, wid)
		if err != nil {
			return nil, fmt.Errorf("%w: warehouse", ErrNotFound)
		}
		invoice.WarehouseID = &warehouse.ID
		invoice.WarehouseName = warehouse.Name
	}

	for _, item := range req.Items {
		line := model.InvoiceItem{Name: item.Name, Unit: item.Unit, Quantity: item.Quantity}
		if item.Price != "" {
			price, err := decimal.NewFromString(item.Price)
			if err != nil {
				return nil, fmt.Errorf("%w: item price", ErrInvalidInput)
			}
			amount := price.Mul(decimal.NewFromFloat(item.Quantity))
			line.Price = &price
			line.Amount = &amount
		}
		invoice.Items = append(invoice.Items, line)
	}

	if err := s.applyDelivery(ctx, &invoice, req.Delivery); err != nil {
		return nil, err
	}

	number, err := s.generateInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}
	invoice.InvoiceNumber = number

	if err := s.invoices.Create(ctx, &invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	return redactInvoice(&invoice, actor.Role), nil
}

func (s *invoiceService) Update(ctx context.Context, actor Actor, id string, req UpdateInvoiceRequest) (*model.ExpenseInvoice, error) {
	if !policy.Allow(actor.Role, policy.InvoiceUpdate, "") {
		return nil, ErrPermissionDenied
	}

	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.DriverActions != nil && invoice.DriverActions.CompletedAt != nil {
		return nil, fmt.Errorf("%w: invoice already completed by driver", ErrInvalidInput)
	}

	if req.Delivery != nil {
		if err := s.applyDelivery(ctx, invoice, *req.Delivery); err != nil {
			return nil, err
		}
	}
	if req.Timing != nil {
		invoice.Timing = *req.Timing
	}
	invoice.UpdatedAt = time.Now()

	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return redactInvoice(invoice, actor.Role), nil
}

func (s *invoiceService) Get(ctx context.Context, actor Actor, id string) (*model.ExpenseInvoice, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return redactInvoice(invoice, actor.Role), nil
}

func (s *invoiceService) List(ctx context.Context, actor Actor, filter InvoiceFilter) ([]model.ExpenseInvoice, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.InvoiceListFilter{
		Status: filter.Status,
		From:   filter.From,
		To:     filter.To,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.OrderID != "" {
		oid, err := uuid.Parse(filter.OrderID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: order_id", ErrInvalidInput)
		}
		repoFilter.OrderID = &oid
	}
	if filter.DriverID != "" {
		did, err := uuid.Parse(filter.DriverID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: driver_id", ErrInvalidInput)
		}
		repoFilter.DriverID = &did
	}

	invoices, total, err := s.invoices.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]model.ExpenseInvoice, 0, len(invoices))
	for i := range invoices {
		result = append(result, *redactInvoice(&invoices[i], actor.Role))
	}
	return result, total, nil
}

// ListForDriver is the driver view: only invoices assigned to the driver
// record linked to the calling account.
func (s *invoiceService) ListForDriver(ctx context.Context, actor Actor, page, limit int) ([]model.ExpenseInvoice, int64, error) {
	if actor.Role != model.RoleDriver {
		return nil, 0, ErrPermissionDenied
	}
	driver, err := s.directories.GetDriverByUserID(ctx, actor.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no driver record for user", ErrNotFound)
	}
	return s.List(ctx, actor, InvoiceFilter{DriverID: driver.ID.String(), Page: page, Limit: limit})
}

// --- Helpers ---

func (s *invoiceService) load(ctx context.Context, id string) (*model.ExpenseInvoice, error) {
	iid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice id", ErrInvalidInput)
	}
	invoice, err := s.invoices.FindByID(ctx, iid)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice", ErrNotFound)
	}
	return invoice, nil
}

// prefillFromOrder copies customer, warehouse, delivery target and the
// concrete line (with the grade's mix consumption snapshot) from the order.
func (s *invoiceService) prefillFromOrder(ctx context.Context, invoice *model.ExpenseInvoice, order *model.Order) {
	invoice.OrderID = &order.ID
	invoice.CustomerID = &order.CustomerID
	invoice.CustomerName = order.CustomerName
	invoice.WarehouseID = &order.WarehouseID
	invoice.WarehouseName = order.WarehouseName
	invoice.Delivery.Object = order.DeliveryObject
	invoice.Delivery.Address = order.DeliveryAddress

	line := model.InvoiceItem{
		Name:     order.ConcreteGradeName,
		Unit:     "м3",
		Quantity: order.Quantity,
	}
	if !order.Price.IsZero() {
		price := order.Price
		amount := price.Mul(decimal.NewFromFloat(order.Quantity))
		line.Price = &price
		line.Amount = &amount
	}
	if grade, err := s.directories.GetConcreteGrade(ctx, order.ConcreteGradeID); err == nil {
		line.Consumption = grade.Composition
	}
	invoice.Items = append(invoice.Items, line)
}

func (s *invoiceService) applyDelivery(ctx context.Context, invoice *model.ExpenseInvoice, req InvoiceDeliveryRequest) error {
	if req.Object != "" {
		invoice.Delivery.Object = req.Object
	}
	if req.Address != "" {
		invoice.Delivery.Address = req.Address
	}
	if req.DriverID != "" {
		did, err := uuid.Parse(req.DriverID)
		if err != nil {
			return fmt.Errorf("%w: driver_id", ErrInvalidInput)
		}
		driver, err := s.directories.GetDriver(ctx, did)
		if err != nil {
			return fmt.Errorf("%w: driver", ErrNotFound)
		}
		invoice.Delivery.DriverID = &driver.ID
		invoice.Delivery.DriverName = driver.FullName
	}
	if req.VehicleID != "" {
		vid, err := uuid.Parse(req.VehicleID)
		if err != nil {
			return fmt.Errorf("%w: vehicle_id", ErrInvalidInput)
		}
		vehicle, err := s.directories.GetVehicle(ctx, vid)
		if err != nil {
			return fmt.Errorf("%w: vehicle", ErrNotFound)
		}
		invoice.Delivery.VehicleID = &vehicle.ID
		invoice.Delivery.VehicleNumber = vehicle.Number
	}
	if req.GrossWeight != nil {
		invoice.Delivery.GrossWeight = req.GrossWeight
	}
	if req.TareWeight != nil {
		invoice.Delivery.TareWeight = req.TareWeight
	}
	if invoice.Delivery.GrossWeight != nil && invoice.Delivery.TareWeight != nil {
		net := *invoice.Delivery.GrossWeight - *invoice.Delivery.TareWeight
		invoice.Delivery.NetWeight = &net
	}
	return nil
}

// generateInvoiceNumber produces "РН-20060102-00001" with a per-day sequence.
func (s *invoiceService) generateInvoiceNumber(ctx context.Context) (string, error) {
	prefix := "РН-" + time.Now().Format("20060102") + "-"
	count, err := s.invoices.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// redactInvoice strips item prices and amounts for roles without money
// access. Returns a shallow copy with rewritten items.
func redactInvoice(invoice *model.ExpenseInvoice, role string) *model.ExpenseInvoice {
	if policy.CanViewMoney(role) {
		return invoice
	}
	clean := *invoice
	clean.Items = make([]model.InvoiceItem, len(invoice.Items))
	for i, item := range invoice.Items {
		item.Price = nil
		item.Amount = nil
		clean.Items[i] = item
	}
	return &clean
}
