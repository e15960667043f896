package schedule

import (
	"context"
	"time"

	"spacebooking/internal/domain"
	"spacebooking/internal/recurrence"
	"spacebooking/internal/repository"
)

// Expander materializes a schedule's occurrences.
type Expander interface {
	Expand(seedStart, seedEnd time.Time, rule string) ([]recurrence.Interval, error)
}

// ScheduleRepository is the persistence port for schedules and occurrences.
// WithSpaceLock runs fn in one transaction that holds a lock on the space
// row; repository calls made with the ctx passed to fn join it.
type ScheduleRepository interface {
	WithSpaceLock(ctx context.Context, spaceID int64, fn func(ctx context.Context) error) error
	Create(ctx context.Context, s *domain.Schedule) error
	Update(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, tenantID, id int64) (*domain.Schedule, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter) ([]domain.Schedule, error)
	ListActiveBySpace(ctx context.Context, spaceID, excludeID int64) ([]domain.Schedule, error)
	ListPendingForApprover(ctx context.Context, tenantID, approverID int64) ([]domain.Schedule, error)
	CreateOccurrences(ctx context.Context, scheduleID int64, occ []domain.ScheduleOccurrence) error
	DeleteOccurrences(ctx context.Context, scheduleID int64) error
	GetOccurrences(ctx context.Context, scheduleID int64) ([]domain.ScheduleOccurrence, error)
	ListOccurrencesBySpace(ctx context.Context, spaceID int64, from, to time.Time) ([]domain.ScheduleOccurrence, error)
	UpdateStatus(ctx context.Context, id int64, from []domain.ScheduleStatus, status domain.ScheduleStatus, approvedBy *int64, reason string) error
}

// SpaceRepository reads the spaces schedules are booked against.
type SpaceRepository interface {
	GetByID(ctx context.Context, tenantID, id int64) (*domain.Space, error)
}

// UserRepository resolves notification recipients.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// NotificationSender delivers lifecycle notifications. Implementations may
// fail; callers treat delivery as best effort.
type NotificationSender interface {
	SendApprovalRequest(ctx context.Context, approver *domain.User, s *domain.Schedule) error
	SendApproved(ctx context.Context, requester *domain.User, s *domain.Schedule) error
	SendRejected(ctx context.Context, requester *domain.User, s *domain.Schedule, reason string) error
	SendCancelled(ctx context.Context, requester *domain.User, s *domain.Schedule) error
}

// ListFilter narrows tenant schedule listings.
type ListFilter = repository.ScheduleFilter
