package schedule

import (
	"context"
	"log"

	"spacebooking/internal/domain"
)

type EventType string

const (
	EventApprovalRequested EventType = "schedule.approval_requested"
	EventApproved          EventType = "schedule.approved"
	EventRejected          EventType = "schedule.rejected"
	EventCancelled         EventType = "schedule.cancelled"
)

// Event is a post-commit side effect produced by a lifecycle operation.
type Event struct {
	Type        EventType
	RecipientID int64
	Schedule    domain.Schedule
	Reason      string
}

// Dispatcher delivers events through a NotificationSender. Delivery is best
// effort: failures are logged and never returned.
type Dispatcher struct {
	users  UserRepository
	sender NotificationSender
}

func NewDispatcher(users UserRepository, sender NotificationSender) *Dispatcher {
	return &Dispatcher{users: users, sender: sender}
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	if d == nil || d.sender == nil {
		return
	}
	for i := range events {
		d.dispatch(ctx, &events[i])
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *Event) {
	recipient, err := d.users.GetByID(ctx, ev.RecipientID)
	if err != nil {
		logDispatchFailure(ev, "recipient_lookup", err)
		return
	}

	switch ev.Type {
	case EventApprovalRequested:
		if recipient.Email == "" {
			log.Printf("schedule_notify_skipped type=%s schedule_id=%d recipient_id=%d reason=no_email", ev.Type, ev.Schedule.ID, ev.RecipientID)
			return
		}
		err = d.sender.SendApprovalRequest(ctx, recipient, &ev.Schedule)
	case EventApproved:
		err = d.sender.SendApproved(ctx, recipient, &ev.Schedule)
	case EventRejected:
		err = d.sender.SendRejected(ctx, recipient, &ev.Schedule, ev.Reason)
	case EventCancelled:
		err = d.sender.SendCancelled(ctx, recipient, &ev.Schedule)
	default:
		return
	}
	if err != nil {
		logDispatchFailure(ev, "send", err)
	}
}

func logDispatchFailure(ev *Event, stage string, err error) {
	log.Printf(
		"schedule_notify_failed type=%s stage=%s schedule_id=%d recipient_id=%d error=%q",
		ev.Type, stage, ev.Schedule.ID, ev.RecipientID, err.Error(),
	)
}
