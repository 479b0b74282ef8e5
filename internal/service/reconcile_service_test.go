package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"betonflow/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	orders   *fakeOrderRepo
	invoices *fakeInvoiceRepo
	dirs     *fakeDirectories
	notifier *fakeNotifier
	svc      *reconcileService

	driver      *model.Driver
	driverActor Actor
	order       *model.Order
	invoice     *model.ExpenseInvoice
	now         time.Time
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()

	f := &reconcileFixture{
		orders:   newFakeOrderRepo(),
		invoices: newFakeInvoiceRepo(),
		dirs:     newFakeDirectories(),
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC),
	}

	userID := uuid.New()
	f.driver = &model.Driver{ID: uuid.New(), FullName: "Иванов И.И.", UserID: &userID, IsActive: true}
	f.dirs.drivers[f.driver.ID] = f.driver
	f.driverActor = Actor{ID: userID, Name: f.driver.FullName, Role: model.RoleDriver}

	f.order = &model.Order{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		CustomerName: "ООО СтройМонтаж",
		Status:       model.OrderConfirmed,
		Priority:     model.PriorityMedium,
		IsActive:     true,
	}
	require.NoError(t, f.orders.Create(context.Background(), f.order))

	f.invoice = &model.ExpenseInvoice{
		ID:            uuid.New(),
		InvoiceNumber: "РН-20260312-00001",
		OrderID:       &f.order.ID,
		Delivery: model.InvoiceDelivery{
			DriverID:   &f.driver.ID,
			DriverName: f.driver.FullName,
		},
	}
	require.NoError(t, f.invoices.Create(context.Background(), f.invoice))

	svc := NewReconcileService(f.invoices, f.orders, f.dirs, f.notifier, fakeTxManager{}, zerolog.Nop())
	f.svc = svc.(*reconcileService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *reconcileFixture) submit(t *testing.T, req DriverActionsRequest) *model.ExpenseInvoice {
	t.Helper()
	invoice, err := f.svc.SubmitDriverActions(context.Background(), f.driverActor, f.invoice.ID.String(), req)
	require.NoError(t, err)
	return invoice
}

func (f *reconcileFixture) orderState(t *testing.T) *model.Order {
	t.Helper()
	order, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	return order
}

func TestDepartureMovesOrderToReady(t *testing.T) {
	f := newReconcileFixture(t)

	invoice := f.submit(t, DriverActionsRequest{DepartureConfirmed: true})

	order := f.orderState(t)
	assert.Equal(t, model.OrderReady, order.Status)
	assert.Equal(t, f.driver.ID, *order.AssignedDriverID)
	assert.Equal(t, f.invoice.ID, *order.ExpenseInvoiceID)

	require.NotNil(t, invoice.DriverActions)
	require.NotNil(t, invoice.DriverActions.DepartureConfirmedAt)
	assert.Equal(t, f.now, *invoice.DriverActions.DepartureConfirmedAt)

	require.Len(t, f.notifier.sent, 2)
	assert.ElementsMatch(t,
		[]string{model.RoleDispatcher, model.RoleDirector},
		f.notifier.rolesFor("Машина выехала"))
}

func TestArrivalOutranksDeparture(t *testing.T) {
	f := newReconcileFixture(t)

	f.submit(t, DriverActionsRequest{DepartureConfirmed: true, ArrivalConfirmed: true})

	assert.Equal(t, model.OrderInProduction, f.orderState(t).Status)
	// both milestones turned on at once, two notifications each
	assert.Equal(t, 2, f.notifier.countByTitle("Машина выехала"))
	assert.Equal(t, 2, f.notifier.countByTitle("Машина прибыла на объект"))
}

func TestDeliveredCompletesOrder(t *testing.T) {
	f := newReconcileFixture(t)

	invoice := f.submit(t, DriverActionsRequest{
		DepartureConfirmed: true,
		ArrivalConfirmed:   true,
		InvoiceStatus:      model.InvoiceDelivered,
	})

	order := f.orderState(t)
	assert.Equal(t, model.OrderCompleted, order.Status)
	require.NotNil(t, order.CompletionTime)
	assert.Equal(t, f.now, *order.CompletionTime)
	require.NotNil(t, order.DepartureTime)
	require.NotNil(t, order.ArrivalTime)

	require.NotNil(t, invoice.DriverActions.CompletedAt)

	// terminal outcome: 3 generic status infos + 3 success messages,
	// milestone notifications suppressed
	require.Len(t, f.notifier.sent, 6)
	assert.Equal(t, 3, f.notifier.countByTitle("Статус заказа изменён"))
	assert.Equal(t, 3, f.notifier.countByTitle("Заказ выполнен"))
	assert.ElementsMatch(t,
		[]string{model.RoleDispatcher, model.RoleAccountant, model.RoleDirector},
		f.notifier.rolesFor("Заказ выполнен"))
	for _, n := range f.notifier.sent {
		if n.Title == "Заказ выполнен" {
			assert.Equal(t, model.NotifySuccess, n.Type)
			assert.Equal(t, model.NotifyPriorityHigh, n.Priority)
		}
	}
}

func TestRejectionCancelsOrderWithDefaultReason(t *testing.T) {
	f := newReconcileFixture(t)

	f.submit(t, DriverActionsRequest{InvoiceStatus: model.InvoiceRejected})

	assert.Equal(t, model.OrderCancelled, f.orderState(t).Status)
	require.Len(t, f.notifier.sent, 6)
	assert.Equal(t, 3, f.notifier.countByTitle("Доставка отклонена"))
	for _, n := range f.notifier.sent {
		if n.Title == "Доставка отклонена" {
			assert.Contains(t, n.Message, "Не указана")
			assert.Equal(t, model.NotifyWarning, n.Type)
			assert.Equal(t, model.NotifyPriorityHigh, n.Priority)
		}
	}
}

func TestRejectionKeepsExplicitReason(t *testing.T) {
	f := newReconcileFixture(t)

	f.submit(t, DriverActionsRequest{
		InvoiceStatus:   model.InvoiceRejected,
		RejectionReason: "Объект не готов к приёмке",
	})

	for _, n := range f.notifier.sent {
		if n.Title == "Доставка отклонена" {
			assert.Contains(t, n.Message, "Объект не готов к приёмке")
		}
	}
}

func TestResubmissionIsQuiet(t *testing.T) {
	f := newReconcileFixture(t)

	f.submit(t, DriverActionsRequest{DepartureConfirmed: true})
	f.notifier.sent = nil

	f.submit(t, DriverActionsRequest{DepartureConfirmed: true})

	assert.Equal(t, model.OrderReady, f.orderState(t).Status)
	assert.Empty(t, f.notifier.sent)
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	f := newReconcileFixture(t)

	f.submit(t, DriverActionsRequest{InvoiceStatus: model.InvoiceDelivered})
	f.notifier.sent = nil

	// a late rejection must not reopen or cancel a completed order
	f.submit(t, DriverActionsRequest{InvoiceStatus: model.InvoiceRejected})

	assert.Equal(t, model.OrderCompleted, f.orderState(t).Status)
	assert.Empty(t, f.notifier.sent)
}

func TestOrphanInvoiceKeepsActionsOnly(t *testing.T) {
	f := newReconcileFixture(t)
	f.invoice.OrderID = nil
	require.NoError(t, f.invoices.Save(context.Background(), f.invoice))

	invoice := f.submit(t, DriverActionsRequest{DepartureConfirmed: true, InvoiceStatus: model.InvoiceDelivered})

	require.NotNil(t, invoice.DriverActions)
	assert.Equal(t, model.InvoiceDelivered, invoice.DriverActions.InvoiceStatus)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, model.OrderConfirmed, f.orderState(t).Status)
}

func TestMissingOrderToleratedButActionsSaved(t *testing.T) {
	f := newReconcileFixture(t)
	vanished := uuid.New()
	f.invoice.OrderID = &vanished
	require.NoError(t, f.invoices.Save(context.Background(), f.invoice))

	invoice := f.submit(t, DriverActionsRequest{DepartureConfirmed: true})

	require.NotNil(t, invoice.DriverActions)
	assert.True(t, invoice.DriverActions.DepartureConfirmed)
	assert.Empty(t, f.notifier.sent)
}

func TestOnlyAssignedDriverMaySubmit(t *testing.T) {
	f := newReconcileFixture(t)

	otherUser := uuid.New()
	other := &model.Driver{ID: uuid.New(), FullName: "Петров П.П.", UserID: &otherUser, IsActive: true}
	f.dirs.drivers[other.ID] = other

	_, err := f.svc.SubmitDriverActions(context.Background(),
		Actor{ID: otherUser, Name: other.FullName, Role: model.RoleDriver},
		f.invoice.ID.String(),
		DriverActionsRequest{DepartureConfirmed: true})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDispatcherMayNotSubmitDriverActions(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.svc.SubmitDriverActions(context.Background(),
		actorWithRole(model.RoleDispatcher),
		f.invoice.ID.String(),
		DriverActionsRequest{DepartureConfirmed: true})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

// failingOrderRepo rejects every Save to exercise the transaction path.
type failingOrderRepo struct {
	*fakeOrderRepo
	saveErr error
}

func (r *failingOrderRepo) Save(context.Context, *model.Order) error {
	return r.saveErr
}

func TestOrderSaveFailureFailsSubmission(t *testing.T) {
	f := newReconcileFixture(t)
	boom := errors.New("order write rejected")
	f.svc.orders = &failingOrderRepo{fakeOrderRepo: f.orders, saveErr: boom}

	_, err := f.svc.SubmitDriverActions(context.Background(), f.driverActor, f.invoice.ID.String(),
		DriverActionsRequest{DepartureConfirmed: true, InvoiceStatus: model.InvoiceDelivered})

	// both writes share one transaction, so a failed order update must fail
	// the submission instead of committing the invoice alone
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, model.OrderConfirmed, f.orderState(t).Status)
}

func TestDeriveStatusPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		actions model.DriverActions
		want    string
	}{
		{"nothing confirmed", model.DriverActions{}, ""},
		{"departure only", model.DriverActions{DepartureConfirmed: true}, model.OrderReady},
		{"arrival beats departure", model.DriverActions{DepartureConfirmed: true, ArrivalConfirmed: true}, model.OrderInProduction},
		{"delivered beats everything", model.DriverActions{
			DepartureConfirmed: true, ArrivalConfirmed: true, InvoiceStatus: model.InvoiceDelivered,
		}, model.OrderCompleted},
		{"rejected beats milestones", model.DriverActions{
			ArrivalConfirmed: true, InvoiceStatus: model.InvoiceRejected,
		}, model.OrderCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveStatus(tc.actions))
		})
	}
}
