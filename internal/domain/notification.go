package domain

import "time"

type NotificationType string

const (
	NotifScheduleApprovalRequested NotificationType = "schedule_approval_requested"
	NotifScheduleApproved          NotificationType = "schedule_approved"
	NotifScheduleRejected          NotificationType = "schedule_rejected"
	NotifScheduleCancelled         NotificationType = "schedule_cancelled"
)

type Notification struct {
	ID        int64            `json:"id"`
	TenantID  int64            `json:"tenant_id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty"`
	IsRead    bool             `json:"is_read"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
