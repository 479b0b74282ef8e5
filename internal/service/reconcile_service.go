package service

import (
	"context"
	"fmt"
	"time"

	"betonflow/internal/model"
	"betonflow/internal/policy"
	"betonflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// --- DTOs ---

type DriverActionsRequest struct {
	DepartureConfirmed           bool       `json:"departure_confirmed"`
	DepartureConfirmedAt         *time.Time `json:"departure_confirmed_at"`
	ArrivalConfirmed             bool       `json:"arrival_confirmed"`
	ArrivalConfirmedAt           *time.Time `json:"arrival_confirmed_at"`
	DepartureFromObjectConfirmed bool       `json:"departure_from_object_confirmed"`
	DepartureFromObjectAt        *time.Time `json:"departure_from_object_at"`
	ArrivalAtPlantConfirmed      bool       `json:"arrival_at_plant_confirmed"`
	ArrivalAtPlantAt             *time.Time `json:"arrival_at_plant_at"`
	InvoiceStatus                string     `json:"invoice_status" binding:"omitempty,oneof=delivered rejected"`
	RejectionReason              string     `json:"rejection_reason"`
	DriverNotes                  string     `json:"driver_notes"`
}

// DriverResolver finds the driver directory entry linked to a user account.
type DriverResolver interface {
	GetDriverByUserID(ctx context.Context, userID uuid.UUID) (*model.Driver, error)
}

// --- Interface ---

// ReconcileService applies a driver's reported delivery milestones to the
// invoice and rewrites the linked order's status accordingly. Both writes
// happen in one transaction; notifications are emitted only after commit.
type ReconcileService interface {
	SubmitDriverActions(ctx context.Context, actor Actor, invoiceID string, req DriverActionsRequest) (*model.ExpenseInvoice, error)
}

type reconcileService struct {
	invoices      repository.InvoiceRepository
	orders        repository.OrderRepository
	drivers       DriverResolver
	notifications NotificationService
	tx            repository.TransactionManager
	log           zerolog.Logger
	now           func() time.Time
}

func NewReconcileService(
	invoices repository.InvoiceRepository,
	orders repository.OrderRepository,
	drivers DriverResolver,
	notifications NotificationService,
	tx repository.TransactionManager,
	log zerolog.Logger,
) ReconcileService {
	return &reconcileService{
		invoices:      invoices,
		orders:        orders,
		drivers:       drivers,
		notifications: notifications,
		tx:            tx,
		log:           log,
		now:           time.Now,
	}
}

// --- Status derivation ---

// statusRule maps a driver-action condition to the resulting order status.
// Rules are evaluated top-down, first match wins; the order of this table
// is the precedence contract (a final delivered/rejected decision beats any
// intermediate milestone).
type statusRule struct {
	matches func(a model.DriverActions) bool
	status  string
}

var statusRules = []statusRule{
	{func(a model.DriverActions) bool { return a.InvoiceStatus == model.InvoiceDelivered }, model.OrderCompleted},
	{func(a model.DriverActions) bool { return a.InvoiceStatus == model.InvoiceRejected }, model.OrderCancelled},
	{func(a model.DriverActions) bool { return a.ArrivalConfirmed }, model.OrderInProduction},
	{func(a model.DriverActions) bool { return a.DepartureConfirmed }, model.OrderReady},
}

// deriveStatus returns the order status the actions imply, or "" when no
// rule matches (order left as-is).
func deriveStatus(a model.DriverActions) string {
	for _, rule := range statusRules {
		if rule.matches(a) {
			return rule.status
		}
	}
	return ""
}

// --- Implementation ---

func (s *reconcileService) SubmitDriverActions(ctx context.Context, actor Actor, invoiceID string, req DriverActionsRequest) (*model.ExpenseInvoice, error) {
	if !policy.Allow(actor.Role, policy.InvoiceSubmit, "") {
		return nil, ErrPermissionDenied
	}

	iid, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice id", ErrInvalidInput)
	}

	var (
		invoice *model.ExpenseInvoice
		pending []model.Notification
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.invoices.FindByID(txCtx, iid)
		if findErr != nil {
			return fmt.Errorf("%w: invoice", ErrNotFound)
		}

		if actor.Role == model.RoleDriver {
			if err := s.checkAssignedDriver(txCtx, actor, invoice); err != nil {
				return err
			}
		}

		var prev model.DriverActions
		if invoice.DriverActions != nil {
			prev = *invoice.DriverActions
		}

		actions := s.buildActions(prev, req)
		invoice.DriverActions = &actions
		invoice.UpdatedAt = s.now()
		if err := s.invoices.Save(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to save driver actions: %w", err)
		}

		// The order link is soft: an invoice without an order (or pointing at
		// a vanished one) keeps its driver actions, nothing else happens.
		if invoice.OrderID == nil {
			return nil
		}
		order, findOrderErr := s.orders.FindByID(txCtx, *invoice.OrderID)
		if findOrderErr != nil {
			s.log.Warn().Str("invoice", invoice.InvoiceNumber).
				Str("order_id", invoice.OrderID.String()).
				Msg("driver actions submitted for invoice with missing order")
			return nil
		}

		var applyErr error
		pending, applyErr = s.applyToOrder(txCtx, order, invoice, prev, actions)
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	for _, n := range pending {
		s.notifications.Notify(ctx, n)
	}

	return invoice, nil
}

// checkAssignedDriver rejects submissions from drivers other than the one
// assigned on the invoice.
func (s *reconcileService) checkAssignedDriver(ctx context.Context, actor Actor, invoice *model.ExpenseInvoice) error {
	driver, err := s.drivers.GetDriverByUserID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("%w: no driver record for user", ErrPermissionDenied)
	}
	if invoice.Delivery.DriverID == nil || *invoice.Delivery.DriverID != driver.ID {
		return fmt.Errorf("%w: invoice is assigned to another driver", ErrPermissionDenied)
	}
	return nil
}

// buildActions merges the submission over the previous actions, stamping
// confirmation times for flags that arrive without one.
func (s *reconcileService) buildActions(prev model.DriverActions, req DriverActionsRequest) model.DriverActions {
	now := s.now()
	actions := model.DriverActions{
		DepartureConfirmed:           req.DepartureConfirmed,
		DepartureConfirmedAt:         req.DepartureConfirmedAt,
		ArrivalConfirmed:             req.ArrivalConfirmed,
		ArrivalConfirmedAt:           req.ArrivalConfirmedAt,
		DepartureFromObjectConfirmed: req.DepartureFromObjectConfirmed,
		DepartureFromObjectAt:        req.DepartureFromObjectAt,
		ArrivalAtPlantConfirmed:      req.ArrivalAtPlantConfirmed,
		ArrivalAtPlantAt:             req.ArrivalAtPlantAt,
		InvoiceStatus:                req.InvoiceStatus,
		RejectionReason:              req.RejectionReason,
		DriverNotes:                  req.DriverNotes,
		CompletedAt:                  prev.CompletedAt,
	}

	stamp := func(confirmed bool, at **time.Time, prevAt *time.Time) {
		if !confirmed {
			return
		}
		if *at == nil {
			if prevAt != nil {
				*at = prevAt
			} else {
				t := now
				*at = &t
			}
		}
	}
	stamp(actions.DepartureConfirmed, &actions.DepartureConfirmedAt, prev.DepartureConfirmedAt)
	stamp(actions.ArrivalConfirmed, &actions.ArrivalConfirmedAt, prev.ArrivalConfirmedAt)
	stamp(actions.DepartureFromObjectConfirmed, &actions.DepartureFromObjectAt, prev.DepartureFromObjectAt)
	stamp(actions.ArrivalAtPlantConfirmed, &actions.ArrivalAtPlantAt, prev.ArrivalAtPlantAt)

	if actions.InvoiceStatus != "" && actions.CompletedAt == nil {
		t := now
		actions.CompletedAt = &t
	}
	return actions
}

// applyToOrder rewrites the order from the driver actions and returns the
// notifications to emit after commit. A failed order write fails the whole
// transaction so the invoice's driver actions roll back with it. The
// delivery assignment is stamped unconditionally: the order always reflects
// the last submitting invoice's crew (last invoice wins).
func (s *reconcileService) applyToOrder(ctx context.Context, order *model.Order, invoice *model.ExpenseInvoice, prev, actions model.DriverActions) ([]model.Notification, error) {
	order.AssignedDriverID = invoice.Delivery.DriverID
	order.AssignedDriverName = invoice.Delivery.DriverName
	order.AssignedVehicleID = invoice.Delivery.VehicleID
	order.AssignedVehicleNumber = invoice.Delivery.VehicleNumber
	order.ExpenseInvoiceID = &invoice.ID

	newStatus := deriveStatus(actions)
	statusChanged := newStatus != "" && newStatus != order.Status && !model.TerminalStatus(order.Status)
	if statusChanged {
		order.Status = newStatus
		if model.TerminalStatus(newStatus) {
			now := s.now()
			order.CompletionTime = &now
			order.DepartureTime = firstTime(actions.DepartureConfirmedAt, invoice.Timing.DepartureFromPlant)
			order.ArrivalTime = firstTime(actions.ArrivalConfirmedAt, invoice.Timing.ArrivalAtObject)
		}
	}

	order.UpdatedAt = s.now()
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order from driver actions: %w", err)
	}

	return s.buildNotifications(order, invoice, prev, actions, statusChanged), nil
}

// buildNotifications implements the fan-out contract: a terminal outcome
// emits 3 generic status-change infos plus 3 outcome-specific messages to
// {dispatcher, accountant, director}; a non-terminal submission emits 2
// infos to {dispatcher, director} per milestone flag that just turned on.
func (s *reconcileService) buildNotifications(order *model.Order, invoice *model.ExpenseInvoice, prev, actions model.DriverActions, statusChanged bool) []model.Notification {
	var out []model.Notification

	addressed := func(roles []string, n model.Notification) {
		n.RelatedOrderID = &order.ID
		n.RelatedInvoiceID = &invoice.ID
		for _, role := range roles {
			n.Role = role
			out = append(out, n)
		}
	}

	managementRoles := []string{model.RoleDispatcher, model.RoleAccountant, model.RoleDirector}
	trackingRoles := []string{model.RoleDispatcher, model.RoleDirector}

	if statusChanged && model.TerminalStatus(order.Status) {
		addressed(managementRoles, model.Notification{
			Title:   "Статус заказа изменён",
			Message: fmt.Sprintf("Заказ для %s: статус изменён на %s", order.CustomerName, order.Status),
			Type:    model.NotifyInfo,
		})

		switch order.Status {
		case model.OrderCompleted:
			addressed(managementRoles, model.Notification{
				Title:    "Заказ выполнен",
				Message:  fmt.Sprintf("Заказ для %s доставлен, накладная %s закрыта", order.CustomerName, invoice.InvoiceNumber),
				Type:     model.NotifySuccess,
				Priority: model.NotifyPriorityHigh,
			})
		case model.OrderCancelled:
			reason := actions.RejectionReason
			if reason == "" {
				reason = "Не указана"
			}
			addressed(managementRoles, model.Notification{
				Title:    "Доставка отклонена",
				Message:  fmt.Sprintf("Накладная %s отклонена водителем. Причина: %s", invoice.InvoiceNumber, reason),
				Type:     model.NotifyWarning,
				Priority: model.NotifyPriorityHigh,
			})
		}
		return out
	}

	if actions.DepartureConfirmed && !prev.DepartureConfirmed {
		addressed(trackingRoles, model.Notification{
			Title:   "Машина выехала",
			Message: fmt.Sprintf("Водитель %s подтвердил выезд по накладной %s", invoice.Delivery.DriverName, invoice.InvoiceNumber),
			Type:    model.NotifyInfo,
		})
	}
	if actions.ArrivalConfirmed && !prev.ArrivalConfirmed {
		addressed(trackingRoles, model.Notification{
			Title:   "Машина прибыла на объект",
			Message: fmt.Sprintf("Водитель %s подтвердил прибытие по накладной %s", invoice.Delivery.DriverName, invoice.InvoiceNumber),
			Type:    model.NotifyInfo,
		})
	}
	return out
}

func firstTime(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil {
			return t
		}
	}
	return nil
}
