package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"betonflow/internal/model"
	"betonflow/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository and lookup fakes shared by the service tests.

type fakeOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) Save(_ context.Context, order *model.Order) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) List(_ context.Context, filter repository.OrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.OnlyActive && !order.IsActive {
			continue
		}
		out = append(out, *order)
	}
	return out, int64(len(out)), nil
}

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.ExpenseInvoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.ExpenseInvoice)}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.ExpenseInvoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ExpenseInvoice, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s not found", id)
	}
	cp := *invoice
	return &cp, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *model.ExpenseInvoice) error {
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.ExpenseInvoice, int64, error) {
	var out []model.ExpenseInvoice
	for _, invoice := range r.invoices {
		if filter.OrderID != nil && (invoice.OrderID == nil || *invoice.OrderID != *filter.OrderID) {
			continue
		}
		if filter.DriverID != nil && (invoice.Delivery.DriverID == nil || *invoice.Delivery.DriverID != *filter.DriverID) {
			continue
		}
		if filter.Status != "" && (invoice.DriverActions == nil || invoice.DriverActions.InvoiceStatus != filter.Status) {
			continue
		}
		out = append(out, *invoice)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) CountByPrefix(_ context.Context, prefix string) (int64, error) {
	var count int64
	for _, invoice := range r.invoices {
		if strings.HasPrefix(invoice.InvoiceNumber, prefix) {
			count++
		}
	}
	return count, nil
}

// fakeDirectories backs DirectoryLookup, InvoiceDirectoryLookup and
// DriverResolver from plain maps.
type fakeDirectories struct {
	counterparties map[uuid.UUID]*model.Counterparty
	grades         map[uuid.UUID]*model.ConcreteGrade
	warehouses     map[uuid.UUID]*model.Warehouse
	services       map[uuid.UUID]*model.AdditionalService
	drivers        map[uuid.UUID]*model.Driver
	vehicles       map[uuid.UUID]*model.Vehicle
	prices         map[uuid.UUID]*model.Price // keyed by grade id
}

func newFakeDirectories() *fakeDirectories {
	return &fakeDirectories{
		counterparties: make(map[uuid.UUID]*model.Counterparty),
		grades:         make(map[uuid.UUID]*model.ConcreteGrade),
		warehouses:     make(map[uuid.UUID]*model.Warehouse),
		services:       make(map[uuid.UUID]*model.AdditionalService),
		drivers:        make(map[uuid.UUID]*model.Driver),
		vehicles:       make(map[uuid.UUID]*model.Vehicle),
		prices:         make(map[uuid.UUID]*model.Price),
	}
}

func (d *fakeDirectories) GetCounterparty(_ context.Context, id uuid.UUID) (*model.Counterparty, error) {
	if item, ok := d.counterparties[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("counterparty %s not found", id)
}

func (d *fakeDirectories) GetConcreteGrade(_ context.Context, id uuid.UUID) (*model.ConcreteGrade, error) {
	if item, ok := d.grades[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("grade %s not found", id)
}

func (d *fakeDirectories) GetWarehouse(_ context.Context, id uuid.UUID) (*model.Warehouse, error) {
	if item, ok := d.warehouses[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("warehouse %s not found", id)
}

func (d *fakeDirectories) GetAdditionalService(_ context.Context, id uuid.UUID) (*model.AdditionalService, error) {
	if item, ok := d.services[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("service %s not found", id)
}

func (d *fakeDirectories) GetDriver(_ context.Context, id uuid.UUID) (*model.Driver, error) {
	if item, ok := d.drivers[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("driver %s not found", id)
}

func (d *fakeDirectories) GetVehicle(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	if item, ok := d.vehicles[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("vehicle %s not found", id)
}

func (d *fakeDirectories) GetDriverByUserID(_ context.Context, userID uuid.UUID) (*model.Driver, error) {
	for _, driver := range d.drivers {
		if driver.UserID != nil && *driver.UserID == userID {
			return driver, nil
		}
	}
	return nil, fmt.Errorf("no driver for user %s", userID)
}

func (d *fakeDirectories) CurrentPrice(_ context.Context, gradeID uuid.UUID, _ time.Time) (*model.Price, error) {
	if price, ok := d.prices[gradeID]; ok {
		return price, nil
	}
	return nil, fmt.Errorf("no price for grade %s", gradeID)
}

// fakeNotifier records every Notify call.
type fakeNotifier struct {
	sent []model.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n model.Notification) {
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) List(context.Context, string, bool, int, int) ([]model.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotifier) MarkRead(context.Context, string) error { return nil }

func (f *fakeNotifier) MarkAllRead(context.Context, string) error { return nil }

func (f *fakeNotifier) countByTitle(title string) int {
	count := 0
	for _, n := range f.sent {
		if n.Title == title {
			count++
		}
	}
	return count
}

func (f *fakeNotifier) rolesFor(title string) []string {
	var out []string
	for _, n := range f.sent {
		if n.Title == title {
			out = append(out, n.Role)
		}
	}
	return out
}

// fakeTxManager runs the callback without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
