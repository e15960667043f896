package notification

import (
	"fmt"
	"time"

	"spacebooking/internal/domain"
)

// content is one rendered notification, shared by the in-app and email
// channels.
type content struct {
	Type    domain.NotificationType
	Title   string
	Message string
	Data    map[string]any
}

const (
	dayLayout  = "Mon 2006-01-02"
	timeLayout = "15:04"
)

func describeSlot(s *domain.Schedule, loc *time.Location) string {
	start := s.StartTime.In(loc)
	end := s.EndTime.In(loc)
	slot := fmt.Sprintf("%s %s-%s", start.Format(dayLayout), start.Format(timeLayout), end.Format(timeLayout))
	if s.Recurring() {
		slot += " (recurring: " + s.RRule + ")"
	}
	return slot
}

func scheduleData(s *domain.Schedule) map[string]any {
	return map[string]any{
		"schedule_id": s.ID,
		"space_id":    s.SpaceID,
		"status":      string(s.Status),
	}
}

func approvalRequestedContent(s *domain.Schedule, loc *time.Location) content {
	return content{
		Type:    domain.NotifScheduleApprovalRequested,
		Title:   "Approval requested",
		Message: fmt.Sprintf("%q on %s is waiting for your approval.", s.Title, describeSlot(s, loc)),
		Data:    scheduleData(s),
	}
}

func approvedContent(s *domain.Schedule, loc *time.Location) content {
	return content{
		Type:    domain.NotifScheduleApproved,
		Title:   "Schedule approved",
		Message: fmt.Sprintf("%q on %s has been approved.", s.Title, describeSlot(s, loc)),
		Data:    scheduleData(s),
	}
}

func rejectedContent(s *domain.Schedule, reason string, loc *time.Location) content {
	msg := fmt.Sprintf("%q on %s has been rejected.", s.Title, describeSlot(s, loc))
	if reason != "" {
		msg += " Reason: " + reason
	}
	data := scheduleData(s)
	data["reason"] = reason
	return content{
		Type:    domain.NotifScheduleRejected,
		Title:   "Schedule rejected",
		Message: msg,
		Data:    data,
	}
}

func cancelledContent(s *domain.Schedule, loc *time.Location) content {
	return content{
		Type:    domain.NotifScheduleCancelled,
		Title:   "Schedule cancelled",
		Message: fmt.Sprintf("%q on %s has been cancelled.", s.Title, describeSlot(s, loc)),
		Data:    scheduleData(s),
	}
}
