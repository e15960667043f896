package domain

import "time"

type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleConfirmed ScheduleStatus = "confirmed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// Active reports whether schedules in this status take part in conflict checks.
func (s ScheduleStatus) Active() bool {
	return s == SchedulePending || s == ScheduleConfirmed
}

func (s ScheduleStatus) Valid() bool {
	return s == SchedulePending || s == ScheduleConfirmed || s == ScheduleCancelled
}

// Schedule is a reservation of a space, optionally recurring.
type Schedule struct {
	ID             int64          `json:"id"`
	TenantID       int64          `json:"tenant_id"`
	SpaceID        int64          `json:"space_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	RRule          string         `json:"rrule,omitempty"`
	Timezone       string         `json:"timezone,omitempty"`
	Status         ScheduleStatus `json:"status"`
	RequestedByID  int64          `json:"requested_by_id"`
	CreatedByID    int64          `json:"created_by_id"`
	ApprovedByID   *int64         `json:"approved_by_id,omitempty"`
	RejectedReason string         `json:"rejected_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Occurrences []ScheduleOccurrence `json:"occurrences,omitempty"`
}

// Recurring reports whether the schedule carries a recurrence rule.
func (s *Schedule) Recurring() bool {
	return s.RRule != ""
}

// ScheduleOccurrence is one materialized interval of a schedule.
type ScheduleOccurrence struct {
	ID         int64          `json:"id"`
	ScheduleID int64          `json:"schedule_id"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Status     ScheduleStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
