package schedule

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"spacebooking/internal/domain"
	"spacebooking/internal/repository"
)

type Service struct {
	schedules ScheduleRepository
	spaces    SpaceRepository
	expander  Expander
	hours     *HoursValidator
	detector  *ConflictDetector
	loc       *time.Location
}

func NewService(
	schedules ScheduleRepository,
	spaces SpaceRepository,
	expander Expander,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		schedules: schedules,
		spaces:    spaces,
		expander:  expander,
		hours:     NewHoursValidator(expander),
		detector:  NewConflictDetector(schedules, expander, loc),
		loc:       loc,
	}
}

func (s *Service) CreateSchedule(ctx context.Context, actor Actor, req CreateScheduleRequest) (*domain.Schedule, []Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, nil, ErrValidation
	}

	space, err := s.getSpace(ctx, actor.TenantID, req.SpaceID)
	if err != nil {
		return nil, nil, err
	}

	start, end, err := ProcessTimes(req.Date, req.StartTime, req.EndTime, s.loc)
	if err != nil {
		return nil, nil, err
	}
	rule := strings.TrimSpace(req.RRule)

	if err := s.hours.Validate(space, start, end, rule); err != nil {
		return nil, nil, err
	}

	status, err := initialStatus(space, req.Status)
	if err != nil {
		return nil, nil, err
	}

	requestedBy := req.RequestedByID
	if requestedBy == 0 {
		requestedBy = actor.UserID
	}
	if requestedBy != actor.UserID && !actor.isManager() {
		return nil, nil, ErrForbidden
	}

	sched := &domain.Schedule{
		TenantID:      actor.TenantID,
		SpaceID:       space.ID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		StartTime:     start,
		EndTime:       end,
		RRule:         rule,
		Timezone:      req.Timezone,
		Status:        status,
		RequestedByID: requestedBy,
		CreatedByID:   actor.UserID,
	}

	err = s.schedules.WithSpaceLock(ctx, space.ID, func(ctx context.Context) error {
		if err := s.ensureNoConflicts(ctx, space.ID, start, end, rule, 0); err != nil {
			return err
		}
		if err := s.schedules.Create(ctx, sched); err != nil {
			return err
		}
		return s.writeOccurrences(ctx, sched)
	})
	if err != nil {
		return nil, nil, err
	}

	var events []Event
	if space.RequiresApproval && space.ApproverID != nil {
		events = append(events, Event{
			Type:        EventApprovalRequested,
			RecipientID: *space.ApproverID,
			Schedule:    *sched,
		})
	}

	return sched, events, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, actor Actor, id int64, req UpdateScheduleRequest) (*domain.Schedule, []Event, error) {
	existing, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if existing.Status == domain.ScheduleCancelled {
		return nil, nil, ErrInvalidTransition
	}

	space, err := s.getSpace(ctx, actor.TenantID, existing.SpaceID)
	if err != nil {
		return nil, nil, err
	}
	if !canManage(actor, existing, space) {
		return nil, nil, ErrForbidden
	}
	if req.SpaceID != nil && *req.SpaceID != existing.SpaceID {
		space, err = s.getSpace(ctx, actor.TenantID, *req.SpaceID)
		if err != nil {
			return nil, nil, err
		}
	}

	date := valueOr(req.Date, existing.StartTime.In(s.loc).Format(dateLayout))
	startClock := valueOr(req.StartTime, existing.StartTime.In(s.loc).Format(clockLayout))
	endClock := valueOr(req.EndTime, existing.EndTime.In(s.loc).Format(clockLayout))

	start, end, err := ProcessTimes(date, startClock, endClock, s.loc)
	if err != nil {
		return nil, nil, err
	}

	updated := *existing
	updated.Occurrences = nil
	updated.SpaceID = space.ID
	updated.StartTime = start
	updated.EndTime = end
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, nil, ErrValidation
		}
		updated.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.RRule != nil {
		updated.RRule = strings.TrimSpace(*req.RRule)
	}
	if req.Timezone != nil {
		updated.Timezone = *req.Timezone
	}

	if err := s.hours.Validate(space, start, end, updated.RRule); err != nil {
		return nil, nil, err
	}

	regenerate := updated.RRule != existing.RRule ||
		!updated.StartTime.Equal(existing.StartTime) ||
		!updated.EndTime.Equal(existing.EndTime) ||
		updated.SpaceID != existing.SpaceID

	err = s.withSpaceLocks(ctx, func(ctx context.Context) error {
		current, err := s.getSchedule(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !current.Status.Active() {
			return ErrInvalidTransition
		}
		updated.Status = current.Status
		updated.ApprovedByID = current.ApprovedByID
		updated.RejectedReason = current.RejectedReason

		if err := s.ensureNoConflicts(ctx, space.ID, start, end, updated.RRule, id); err != nil {
			return err
		}
		if regenerate {
			if err := s.schedules.DeleteOccurrences(ctx, id); err != nil {
				return err
			}
			if err := s.writeOccurrences(ctx, &updated); err != nil {
				return err
			}
		}
		return statusErr(s.schedules.Update(ctx, &updated))
	}, existing.SpaceID, space.ID)
	if err != nil {
		return nil, nil, err
	}

	if !regenerate {
		occ, err := s.schedules.GetOccurrences(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		updated.Occurrences = occ
	}

	return &updated, nil, nil
}

func (s *Service) ApproveSchedule(ctx context.Context, actor Actor, id int64) (*domain.Schedule, []Event, error) {
	approver := actor.UserID
	sched, out, err := s.decide(ctx, actor, id, domain.ScheduleConfirmed, &approver, "")
	if err != nil {
		return nil, nil, err
	}
	return out, []Event{{Type: EventApproved, RecipientID: sched.RequestedByID, Schedule: *out}}, nil
}

func (s *Service) RejectSchedule(ctx context.Context, actor Actor, id int64, reason string) (*domain.Schedule, []Event, error) {
	reason = strings.TrimSpace(reason)
	sched, out, err := s.decide(ctx, actor, id, domain.ScheduleCancelled, nil, reason)
	if err != nil {
		return nil, nil, err
	}
	return out, []Event{{Type: EventRejected, RecipientID: sched.RequestedByID, Schedule: *out, Reason: reason}}, nil
}

// CancelSchedule moves a pending or confirmed schedule to cancelled.
func (s *Service) CancelSchedule(ctx context.Context, actor Actor, id int64) (*domain.Schedule, []Event, error) {
	sched, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}

	err = s.schedules.WithSpaceLock(ctx, sched.SpaceID, func(ctx context.Context) error {
		current, err := s.getSchedule(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !current.Status.Active() {
			return ErrInvalidTransition
		}
		space, err := s.getSpace(ctx, actor.TenantID, current.SpaceID)
		if err != nil {
			return err
		}
		if !canManage(actor, current, space) {
			return ErrForbidden
		}
		sched = current
		return statusErr(s.schedules.UpdateStatus(ctx, id, activeStatuses, domain.ScheduleCancelled, nil, ""))
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}

	var events []Event
	if sched.RequestedByID != actor.UserID {
		events = append(events, Event{Type: EventCancelled, RecipientID: sched.RequestedByID, Schedule: *out})
	}
	return out, events, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, actor Actor, id int64) error {
	sched, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	space, err := s.getSpace(ctx, actor.TenantID, sched.SpaceID)
	if err != nil && !errors.Is(err, ErrSpaceNotFound) {
		return err
	}
	if space != nil && !canManage(actor, sched, space) {
		return ErrForbidden
	}
	return s.schedules.Delete(ctx, id)
}

func (s *Service) GetSchedule(ctx context.Context, actor Actor, id int64) (*domain.Schedule, error) {
	return s.getSchedule(ctx, actor.TenantID, id)
}

func (s *Service) ListSchedules(ctx context.Context, actor Actor, f ListFilter) ([]domain.Schedule, error) {
	f.TenantID = actor.TenantID
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.schedules.List(ctx, f)
}

// ListPendingApprovals returns pending schedules on spaces the actor approves.
func (s *Service) ListPendingApprovals(ctx context.Context, actor Actor) ([]domain.Schedule, error) {
	return s.schedules.ListPendingForApprover(ctx, actor.TenantID, actor.UserID)
}

// CheckConflicts runs the validation pipeline without persisting anything.
func (s *Service) CheckConflicts(ctx context.Context, actor Actor, req CheckConflictsRequest) (*ConflictReport, error) {
	space, err := s.getSpace(ctx, actor.TenantID, req.SpaceID)
	if err != nil {
		return nil, err
	}
	start, end, err := ProcessTimes(req.Date, req.StartTime, req.EndTime, s.loc)
	if err != nil {
		return nil, err
	}
	rule := strings.TrimSpace(req.RRule)
	if err := s.hours.Validate(space, start, end, rule); err != nil {
		return nil, err
	}
	return s.detector.FindConflicts(ctx, space.ID, start, end, rule, req.ExcludeScheduleID)
}

// SpaceOccurrences lists active occurrences booked on a space within [from, to).
func (s *Service) SpaceOccurrences(ctx context.Context, actor Actor, spaceID int64, from, to time.Time) ([]domain.ScheduleOccurrence, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	if _, err := s.getSpace(ctx, actor.TenantID, spaceID); err != nil {
		return nil, err
	}
	return s.schedules.ListOccurrencesBySpace(ctx, spaceID, from, to)
}

// Location is the wall-clock zone dates and times are composed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) ensureNoConflicts(ctx context.Context, spaceID int64, start, end time.Time, rule string, excludeID int64) error {
	report, err := s.detector.FindConflicts(ctx, spaceID, start, end, rule, excludeID)
	if err != nil {
		return err
	}
	if report.HasConflict {
		return &ConflictError{Conflicts: report.Conflicts}
	}
	return nil
}

func (s *Service) writeOccurrences(ctx context.Context, sched *domain.Schedule) error {
	intervals, err := s.expander.Expand(sched.StartTime, sched.EndTime, sched.RRule)
	if err != nil {
		return err
	}
	occ := make([]domain.ScheduleOccurrence, 0, len(intervals))
	for _, iv := range intervals {
		occ = append(occ, domain.ScheduleOccurrence{
			ScheduleID: sched.ID,
			StartTime:  iv.Start,
			EndTime:    iv.End,
			Status:     sched.Status,
		})
	}
	if err := s.schedules.CreateOccurrences(ctx, sched.ID, occ); err != nil {
		return err
	}
	sched.Occurrences = occ
	return nil
}

var activeStatuses = []domain.ScheduleStatus{domain.SchedulePending, domain.ScheduleConfirmed}

// decide applies an approver's decision to a pending schedule. The pending
// check is repeated under the space lock and enforced again by the guarded
// status write, so only one of two racing decisions succeeds.
func (s *Service) decide(ctx context.Context, actor Actor, id int64, to domain.ScheduleStatus, approvedBy *int64, reason string) (*domain.Schedule, *domain.Schedule, error) {
	sched, err := s.loadPendingForDecision(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	err = s.schedules.WithSpaceLock(ctx, sched.SpaceID, func(ctx context.Context) error {
		if _, err := s.loadPendingForDecision(ctx, actor, id); err != nil {
			return err
		}
		return statusErr(s.schedules.UpdateStatus(ctx, id, []domain.ScheduleStatus{domain.SchedulePending}, to, approvedBy, reason))
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	return sched, out, nil
}

func (s *Service) loadPendingForDecision(ctx context.Context, actor Actor, id int64) (*domain.Schedule, error) {
	sched, err := s.getSchedule(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if sched.Status != domain.SchedulePending {
		return nil, ErrInvalidTransition
	}
	space, err := s.getSpace(ctx, actor.TenantID, sched.SpaceID)
	if err != nil {
		return nil, err
	}
	if space.RequiresApproval && !space.IsApprover(actor.UserID) {
		return nil, ErrForbidden
	}
	return sched, nil
}

// withSpaceLocks holds the lock of every distinct space in ids, taken in
// ascending order, while fn runs.
func (s *Service) withSpaceLocks(ctx context.Context, fn func(ctx context.Context) error, ids ...int64) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var run func(ctx context.Context, i int) error
	run = func(ctx context.Context, i int) error {
		if i == len(ids) {
			return fn(ctx)
		}
		return s.schedules.WithSpaceLock(ctx, ids[i], func(ctx context.Context) error {
			return run(ctx, i+1)
		})
	}
	return run(ctx, 0)
}

// statusErr maps a failed status guard to ErrInvalidTransition.
func statusErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		return ErrInvalidTransition
	case errors.Is(err, repository.ErrNotFound):
		return ErrScheduleNotFound
	}
	return err
}

func (s *Service) getSpace(ctx context.Context, tenantID, id int64) (*domain.Space, error) {
	space, err := s.spaces.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return space, nil
}

func (s *Service) getSchedule(ctx context.Context, tenantID, id int64) (*domain.Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return sched, nil
}

func initialStatus(space *domain.Space, requested domain.ScheduleStatus) (domain.ScheduleStatus, error) {
	if space.RequiresApproval || requested == "" {
		return domain.SchedulePending, nil
	}
	if !requested.Active() {
		return "", ErrValidation
	}
	return requested, nil
}

// canManage allows the requester, the creator, the space approver and
// tenant managers to edit, cancel or delete a schedule.
func canManage(actor Actor, sched *domain.Schedule, space *domain.Space) bool {
	if actor.isManager() {
		return true
	}
	if sched.CreatedByID == actor.UserID || sched.RequestedByID == actor.UserID {
		return true
	}
	return space != nil && space.IsApprover(actor.UserID)
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
