package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"betonflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	invoices *fakeInvoiceRepo
	orders   *fakeOrderRepo
	dirs     *fakeDirectories
	svc      InvoiceService

	order   *model.Order
	driver  *model.Driver
	vehicle *model.Vehicle
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	f := &invoiceFixture{
		invoices: newFakeInvoiceRepo(),
		orders:   newFakeOrderRepo(),
		dirs:     newFakeDirectories(),
	}

	grade := &model.ConcreteGrade{
		ID:   uuid.New(),
		Name: "БСТ В25 П3 F200 W6",
		Composition: []model.MaterialConsumption{
			{MaterialName: "Цемент", Unit: "кг", PerCubicMeter: 350},
		},
		IsActive: true,
	}
	f.dirs.grades[grade.ID] = grade

	f.driver = &model.Driver{ID: uuid.New(), FullName: "Иванов И.И.", IsActive: true}
	f.vehicle = &model.Vehicle{ID: uuid.New(), Number: "А123БВ77", IsActive: true}
	f.dirs.drivers[f.driver.ID] = f.driver
	f.dirs.vehicles[f.vehicle.ID] = f.vehicle

	f.order = &model.Order{
		ID:                uuid.New(),
		CustomerID:        uuid.New(),
		CustomerName:      "ООО СтройМонтаж",
		ConcreteGradeID:   grade.ID,
		ConcreteGradeName: grade.Name,
		Quantity:          8,
		WarehouseID:       uuid.New(),
		WarehouseName:     "Завод №1",
		DeliveryObject:    "ЖК Северный",
		DeliveryAddress:   "г. Москва, ул. Ленина 1",
		Price:             decimal.NewFromInt(5000),
		Status:            model.OrderConfirmed,
		IsActive:          true,
	}
	require.NoError(t, f.orders.Create(context.Background(), f.order))

	f.svc = NewInvoiceService(f.invoices, f.orders, f.dirs)
	return f
}

func TestCreateInvoiceFromOrder(t *testing.T) {
	f := newInvoiceFixture(t)

	invoice, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDirector), CreateInvoiceRequest{
		OrderID: f.order.ID.String(),
		Delivery: InvoiceDeliveryRequest{
			DriverID:  f.driver.ID.String(),
			VehicleID: f.vehicle.ID.String(),
		},
	})
	require.NoError(t, err)

	wantPrefix := "РН-" + time.Now().Format("20060102") + "-"
	assert.Equal(t, wantPrefix+"00001", invoice.InvoiceNumber)

	assert.Equal(t, f.order.ID, *invoice.OrderID)
	assert.Equal(t, f.order.CustomerName, invoice.CustomerName)
	assert.Equal(t, f.order.WarehouseName, invoice.WarehouseName)
	assert.Equal(t, f.order.DeliveryAddress, invoice.Delivery.Address)
	assert.Equal(t, f.driver.FullName, invoice.Delivery.DriverName)
	assert.Equal(t, f.vehicle.Number, invoice.Delivery.VehicleNumber)

	require.Len(t, invoice.Items, 1)
	item := invoice.Items[0]
	assert.Equal(t, f.order.ConcreteGradeName, item.Name)
	assert.Equal(t, "м3", item.Unit)
	assert.Equal(t, 8.0, item.Quantity)
	require.NotNil(t, item.Amount)
	assert.True(t, item.Amount.Equal(decimal.NewFromInt(40000)))
	require.Len(t, item.Consumption, 1)
	assert.Equal(t, "Цемент", item.Consumption[0].MaterialName)
}

func TestInvoiceNumbersAreSequentialPerDay(t *testing.T) {
	f := newInvoiceFixture(t)
	actor := actorWithRole(model.RoleDispatcher)

	for i := 1; i <= 3; i++ {
		invoice, err := f.svc.Create(context.Background(), actor, CreateInvoiceRequest{})
		require.NoError(t, err)
		want := fmt.Sprintf("РН-%s-%05d", time.Now().Format("20060102"), i)
		assert.Equal(t, want, invoice.InvoiceNumber)
	}
}

func TestCreateInvoiceDeniedForManager(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.svc.Create(context.Background(), actorWithRole(model.RoleManager), CreateInvoiceRequest{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestInvoiceNetWeightComputed(t *testing.T) {
	f := newInvoiceFixture(t)

	gross, tare := 24500.0, 12400.0
	invoice, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), CreateInvoiceRequest{
		Delivery: InvoiceDeliveryRequest{GrossWeight: &gross, TareWeight: &tare},
	})
	require.NoError(t, err)

	require.NotNil(t, invoice.Delivery.NetWeight)
	assert.Equal(t, 12100.0, *invoice.Delivery.NetWeight)
}

func TestInvoiceMoneyRedactedForDispatcher(t *testing.T) {
	f := newInvoiceFixture(t)

	invoice, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), CreateInvoiceRequest{
		OrderID: f.order.ID.String(),
	})
	require.NoError(t, err)

	require.Len(t, invoice.Items, 1)
	assert.Nil(t, invoice.Items[0].Price)
	assert.Nil(t, invoice.Items[0].Amount)

	// the stored record keeps the amounts, only the response is redacted
	stored, err := f.invoices.FindByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Items[0].Price)
}

func TestUpdateInvoiceBlockedAfterCompletion(t *testing.T) {
	f := newInvoiceFixture(t)
	actor := actorWithRole(model.RoleDispatcher)

	invoice, err := f.svc.Create(context.Background(), actor, CreateInvoiceRequest{})
	require.NoError(t, err)

	done := time.Now()
	invoice.DriverActions = &model.DriverActions{InvoiceStatus: model.InvoiceDelivered, CompletedAt: &done}
	require.NoError(t, f.invoices.Save(context.Background(), invoice))

	_, err = f.svc.Update(context.Background(), actor, invoice.ID.String(), UpdateInvoiceRequest{
		Delivery: &InvoiceDeliveryRequest{Object: "Другой объект"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListForDriverRequiresDriverRole(t *testing.T) {
	f := newInvoiceFixture(t)

	_, _, err := f.svc.ListForDriver(context.Background(), actorWithRole(model.RoleManager), 1, 20)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListForDriverReturnsOwnInvoices(t *testing.T) {
	f := newInvoiceFixture(t)

	userID := uuid.New()
	f.driver.UserID = &userID

	_, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), CreateInvoiceRequest{
		Delivery: InvoiceDeliveryRequest{DriverID: f.driver.ID.String()},
	})
	require.NoError(t, err)
	// an unassigned invoice the driver must not see
	_, err = f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), CreateInvoiceRequest{})
	require.NoError(t, err)

	invoices, total, err := f.svc.ListForDriver(context.Background(),
		Actor{ID: userID, Role: model.RoleDriver}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, invoices, 1)
	assert.Equal(t, f.driver.ID, *invoices[0].Delivery.DriverID)
}
