package service

import (
	"context"
	"encoding/json"

	"betonflow/internal/model"
	"betonflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RolePusher pushes a payload to every connected client of a role.
// Satisfied by the websocket hub.
type RolePusher interface {
	SendToRole(role string, payload []byte)
}

type NotificationService interface {
	// Notify persists the notification and pushes it to connected clients of
	// the target role. Fire-and-forget: push errors are not reported and a
	// failed persist only logs.
	Notify(ctx context.Context, n model.Notification)
	List(ctx context.Context, role string, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, role string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	pusher RolePusher
	log    zerolog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, pusher RolePusher, log zerolog.Logger) NotificationService {
	return &notificationService{repo: repo, pusher: pusher, log: log}
}

func (s *notificationService) Notify(ctx context.Context, n model.Notification) {
	if n.Type == "" {
		n.Type = model.NotifyInfo
	}
	if n.Priority == "" {
		n.Priority = model.NotifyPriorityNormal
	}

	if err := s.repo.Create(ctx, &n); err != nil {
		s.log.Error().Err(err).Str("role", n.Role).Str("title", n.Title).
			Msg("failed to persist notification")
		return
	}

	if s.pusher != nil {
		if payload, err := json.Marshal(n); err == nil {
			s.pusher.SendToRole(n.Role, payload)
		}
	}
}

func (s *notificationService) List(ctx context.Context, role string, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListByRole(ctx, role, unreadOnly, page, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidInput
	}
	return s.repo.MarkRead(ctx, nid)
}

func (s *notificationService) MarkAllRead(ctx context.Context, role string) error {
	return s.repo.MarkAllRead(ctx, role)
}
