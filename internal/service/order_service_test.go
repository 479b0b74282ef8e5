package service

import (
	"context"
	"testing"
	"time"

	"betonflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	repo     *fakeOrderRepo
	dirs     *fakeDirectories
	svc      OrderService
	customer *model.Counterparty
	grade    *model.ConcreteGrade
	wh       *model.Warehouse
	extra    *model.AdditionalService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	dirs := newFakeDirectories()
	customer := &model.Counterparty{ID: uuid.New(), Name: "ООО СтройМонтаж", AutoApprove: false, IsActive: true}
	grade := &model.ConcreteGrade{ID: uuid.New(), Name: "БСТ В25 П3 F200 W6", Class: "B25", IsActive: true}
	wh := &model.Warehouse{ID: uuid.New(), Name: "Завод №1", IsActive: true}
	extra := &model.AdditionalService{
		ID:           uuid.New(),
		Name:         "Аренда насоса",
		Unit:         "час",
		PricePerUnit: decimal.NewFromInt(2000),
		IsActive:     true,
	}
	dirs.counterparties[customer.ID] = customer
	dirs.grades[grade.ID] = grade
	dirs.warehouses[wh.ID] = wh
	dirs.services[extra.ID] = extra
	dirs.prices[grade.ID] = &model.Price{
		ID:              uuid.New(),
		ConcreteGradeID: grade.ID,
		PricePerM3:      decimal.NewFromInt(4500),
		EffectiveFrom:   time.Now().Add(-24 * time.Hour),
		IsActive:        true,
	}

	repo := newFakeOrderRepo()
	return &orderFixture{
		repo:     repo,
		dirs:     dirs,
		svc:      NewOrderService(repo, dirs),
		customer: customer,
		grade:    grade,
		wh:       wh,
		extra:    extra,
	}
}

func (f *orderFixture) createRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:       f.customer.ID.String(),
		ConcreteGradeID:  f.grade.ID.String(),
		Quantity:         10,
		WarehouseID:      f.wh.ID.String(),
		DeliveryAddress:  "г. Москва, ул. Ленина 1",
		DeliveryDateTime: time.Now().Add(48 * time.Hour),
	}
}

func actorWithRole(role string) Actor {
	return Actor{ID: uuid.New(), Name: "Тест Тестов", Role: role}
}

func TestCreateOrderStartsPending(t *testing.T) {
	f := newOrderFixture(t)

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, resp.Status)
	assert.Equal(t, model.PriorityMedium, resp.Priority)
	assert.True(t, resp.IsActive)
	assert.Equal(t, f.customer.Name, resp.CustomerName)
}

func TestCreateOrderAutoApprove(t *testing.T) {
	f := newOrderFixture(t)
	f.customer.AutoApprove = true

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, resp.Status)
}

func TestCreateOrderAutoApproveSkippedForManager(t *testing.T) {
	f := newOrderFixture(t)
	f.customer.AutoApprove = true

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleManager), f.createRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, resp.Status)
}

func TestCreateOrderDeniedForDriver(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDriver), f.createRequest())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newOrderFixture(t)

	req := f.createRequest()
	req.Price = "5000"
	req.Services = []ServiceLineRequest{{ServiceID: f.extra.ID.String(), Quantity: "2"}}

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDirector), req)
	require.NoError(t, err)

	require.NotNil(t, resp.Price)
	require.NotNil(t, resp.TotalPrice)
	assert.Equal(t, "5000.00", *resp.Price)
	// 10 m3 * 5000 + 2 h * 2000
	assert.Equal(t, "54000.00", *resp.TotalPrice)
	require.Len(t, resp.AdditionalServices, 1)
	assert.Equal(t, f.extra.Name, resp.AdditionalServices[0].Name)
}

func TestCreateOrderDefaultsToDirectoryPrice(t *testing.T) {
	f := newOrderFixture(t)

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDirector), f.createRequest())
	require.NoError(t, err)

	require.NotNil(t, resp.Price)
	assert.Equal(t, "4500.00", *resp.Price)
	assert.Equal(t, "45000.00", *resp.TotalPrice)
}

func TestOrderMoneyRedactedForDispatcher(t *testing.T) {
	f := newOrderFixture(t)

	resp, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)

	assert.Nil(t, resp.Price)
	assert.Nil(t, resp.TotalPrice)
	assert.Empty(t, resp.AdditionalServices)
}

func TestApproveOrder(t *testing.T) {
	f := newOrderFixture(t)
	created, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)

	t.Run("director approves pending", func(t *testing.T) {
		resp, err := f.svc.Approve(context.Background(), actorWithRole(model.RoleDirector), created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderConfirmed, resp.Status)
	})

	t.Run("already confirmed is a state error", func(t *testing.T) {
		_, err := f.svc.Approve(context.Background(), actorWithRole(model.RoleDirector), created.ID)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("manager may never approve", func(t *testing.T) {
		other, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
		require.NoError(t, err)
		_, err = f.svc.Approve(context.Background(), actorWithRole(model.RoleManager), other.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestSetPriority(t *testing.T) {
	f := newOrderFixture(t)
	created, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)
	director := actorWithRole(model.RoleDirector)

	t.Run("valid codes map to priorities", func(t *testing.T) {
		for code, want := range map[int]string{
			1: model.PriorityLow,
			2: model.PriorityMedium,
			3: model.PriorityHigh,
			4: model.PriorityUrgent,
		} {
			resp, err := f.svc.SetPriority(context.Background(), director, created.ID, code)
			require.NoError(t, err)
			assert.Equal(t, want, resp.Priority)
		}
	})

	t.Run("out of range code", func(t *testing.T) {
		_, err := f.svc.SetPriority(context.Background(), director, created.ID, 7)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("dispatcher may not set priority", func(t *testing.T) {
		_, err := f.svc.SetPriority(context.Background(), actorWithRole(model.RoleDispatcher), created.ID, 3)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("blocked once confirmed", func(t *testing.T) {
		_, err := f.svc.Approve(context.Background(), director, created.ID)
		require.NoError(t, err)
		_, err = f.svc.SetPriority(context.Background(), director, created.ID, 4)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDeleteOrderIsSoft(t *testing.T) {
	f := newOrderFixture(t)
	created, err := f.svc.Create(context.Background(), actorWithRole(model.RoleDispatcher), f.createRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), actorWithRole(model.RoleAccountant), created.ID))

	oid, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	stored, err := f.repo.FindByID(context.Background(), oid)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, model.OrderPending, stored.Status)
}

func TestGetOrderNotFound(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Get(context.Background(), actorWithRole(model.RoleDirector), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(context.Background(), actorWithRole(model.RoleDirector), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
