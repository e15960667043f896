package repository

import (
	"context"
	"encoding/json"
	"time"

	"spacebooking/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type notificationModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	TenantID  int64          `gorm:"column:tenant_id;not null"`
	UserID    int64          `gorm:"column:user_id;not null;index:idx_notifications_user_unread"`
	Type      string         `gorm:"column:type;size:50;not null"`
	Title     string         `gorm:"column:title;not null"`
	Message   *string        `gorm:"column:message"`
	IsRead    bool           `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_unread"`
	Data      datatypes.JSON `gorm:"column:data"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (notificationModel) TableName() string { return "notifications" }

func toDomainNotification(m notificationModel) domain.Notification {
	n := domain.Notification{
		ID:        m.ID,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		Type:      domain.NotificationType(m.Type),
		Title:     m.Title,
		Message:   deref(m.Message),
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &n.Data)
	}
	return n
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m := notificationModel{
		TenantID: n.TenantID,
		UserID:   n.UserID,
		Type:     string(n.Type),
		Title:    n.Title,
		Message:  optional(n.Message),
		IsRead:   n.IsRead,
	}
	if n.Data != nil {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			return err
		}
		m.Data = datatypes.JSON(raw)
	}

	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		return err
	}
	n.ID = m.ID
	n.CreatedAt = m.CreatedAt
	return nil
}

// ListByUser returns the newest notifications first plus the unread count.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	var rows []notificationModel
	q := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	var unread int64
	if err := conn(ctx, r.db).Model(&notificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, 0, err
	}

	out := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	return out, unread, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	res := conn(ctx, r.db).Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	res := conn(ctx, r.db).Model(&notificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
