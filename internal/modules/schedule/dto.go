package schedule

import "spacebooking/internal/domain"

// Actor is the authenticated caller, taken from the access token.
type Actor struct {
	UserID   int64
	TenantID int64
	Role     string
}

func (a Actor) isManager() bool {
	return a.Role == string(domain.RoleAdmin) || a.Role == string(domain.RoleManager)
}

type CreateScheduleRequest struct {
	SpaceID       int64                 `json:"space_id" validate:"required,gt=0"`
	Title         string                `json:"title" validate:"required,max=200"`
	Description   string                `json:"description" validate:"max=2000"`
	Date          string                `json:"date" validate:"required"`
	StartTime     string                `json:"start_time" validate:"required"`
	EndTime       string                `json:"end_time" validate:"required"`
	RRule         string                `json:"rrule" validate:"max=500"`
	Timezone      string                `json:"timezone" validate:"max=64"`
	Status        domain.ScheduleStatus `json:"status" validate:"omitempty,oneof=pending confirmed"`
	RequestedByID int64                 `json:"requested_by_id" validate:"gte=0"`
}

// UpdateScheduleRequest carries optional fields merged over the stored
// schedule. A non-nil empty RRule clears the recurrence.
type UpdateScheduleRequest struct {
	SpaceID     *int64  `json:"space_id" validate:"omitempty,gt=0"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	RRule       *string `json:"rrule" validate:"omitempty,max=500"`
	Timezone    *string `json:"timezone" validate:"omitempty,max=64"`
}

type CheckConflictsRequest struct {
	SpaceID           int64  `json:"space_id" validate:"required,gt=0"`
	Date              string `json:"date" validate:"required"`
	StartTime         string `json:"start_time" validate:"required"`
	EndTime           string `json:"end_time" validate:"required"`
	RRule             string `json:"rrule" validate:"max=500"`
	ExcludeScheduleID int64  `json:"exclude_schedule_id" validate:"gte=0"`
}

type RejectScheduleRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}
