package domain

import "time"

// Space is a bookable room or area owned by a tenant.
type Space struct {
	ID               int64     `json:"id"`
	TenantID         int64     `json:"tenant_id"`
	Name             string    `json:"name"`
	Capacity         int       `json:"capacity,omitempty"`
	MinStartTime     *string   `json:"min_start_time,omitempty"` // HH:mm
	MinEndTime       *string   `json:"min_end_time,omitempty"`   // HH:mm
	RequiresApproval bool      `json:"requires_approval"`
	ApproverID       *int64    `json:"approver_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasOperatingHours reports whether both bounds of the daily window are set.
func (s *Space) HasOperatingHours() bool {
	return s.MinStartTime != nil && *s.MinStartTime != "" &&
		s.MinEndTime != nil && *s.MinEndTime != ""
}

// IsApprover reports whether userID is the designated approver of the space.
func (s *Space) IsApprover(userID int64) bool {
	return s.ApproverID != nil && *s.ApproverID == userID
}
