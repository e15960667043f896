package notification

import (
	"context"
	"log"

	"spacebooking/internal/domain"
	"spacebooking/internal/realtime"
)

// EventNotificationCreated is the websocket frame type carrying a new
// in-app notification.
const EventNotificationCreated = "notification.created"

type Repository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
}

// Pusher delivers a frame to a connected user. *realtime.Hub satisfies it.
type Pusher interface {
	SendToUser(userID int64, message any) bool
}

type Service struct {
	repo   Repository
	pusher Pusher
}

func NewService(repo Repository, pusher Pusher) *Service {
	return &Service{repo: repo, pusher: pusher}
}

// Notify stores n and pushes it to the recipient if they are online.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.pusher != nil && s.pusher.SendToUser(n.UserID, realtime.NewEvent(EventNotificationCreated, n)) {
		log.Printf("notification_pushed user_id=%d notification_id=%d type=%s", n.UserID, n.ID, n.Type)
	}
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	_, err := s.repo.MarkAllAsRead(ctx, userID)
	return err
}
