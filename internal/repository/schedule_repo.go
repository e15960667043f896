package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"spacebooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const lockRetries = 3

// ErrStatusChanged is returned when a guarded write finds the schedule in a
// status other than the one the caller expected.
var ErrStatusChanged = errors.New("schedule status changed")

type ScheduleFilter struct {
	TenantID      int64
	SpaceID       int64
	RequestedByID int64
	Status        domain.ScheduleStatus
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleModel struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	TenantID       int64     `gorm:"column:tenant_id;not null;index:idx_schedules_tenant_status"`
	SpaceID        int64     `gorm:"column:space_id;not null;index"`
	Title          string    `gorm:"column:title;size:200;not null"`
	Description    *string   `gorm:"column:description"`
	StartTime      time.Time `gorm:"column:start_time;not null"`
	EndTime        time.Time `gorm:"column:end_time;not null"`
	RRule          *string   `gorm:"column:rrule;size:500"`
	Timezone       *string   `gorm:"column:timezone;size:64"`
	Status         string    `gorm:"column:status;size:20;not null;index:idx_schedules_tenant_status"`
	RequestedByID  int64     `gorm:"column:requested_by_id;not null"`
	CreatedByID    int64     `gorm:"column:created_by_id;not null"`
	ApprovedByID   *int64    `gorm:"column:approved_by_id"`
	RejectedReason *string   `gorm:"column:rejected_reason"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`

	Occurrences []occurrenceModel `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
}

func (scheduleModel) TableName() string { return "schedules" }

type occurrenceModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	ScheduleID int64     `gorm:"column:schedule_id;not null;index"`
	StartTime  time.Time `gorm:"column:start_time;not null;index:idx_occurrences_window"`
	EndTime    time.Time `gorm:"column:end_time;not null;index:idx_occurrences_window"`
	Status     string    `gorm:"column:status;size:20;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (occurrenceModel) TableName() string { return "schedule_occurrences" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDomainSchedule(m scheduleModel) *domain.Schedule {
	s := &domain.Schedule{
		ID:             m.ID,
		TenantID:       m.TenantID,
		SpaceID:        m.SpaceID,
		Title:          m.Title,
		Description:    deref(m.Description),
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		RRule:          deref(m.RRule),
		Timezone:       deref(m.Timezone),
		Status:         domain.ScheduleStatus(m.Status),
		RequestedByID:  m.RequestedByID,
		CreatedByID:    m.CreatedByID,
		ApprovedByID:   m.ApprovedByID,
		RejectedReason: deref(m.RejectedReason),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for _, o := range m.Occurrences {
		s.Occurrences = append(s.Occurrences, toDomainOccurrence(o))
	}
	return s
}

func toScheduleModel(s *domain.Schedule) scheduleModel {
	return scheduleModel{
		ID:             s.ID,
		TenantID:       s.TenantID,
		SpaceID:        s.SpaceID,
		Title:          s.Title,
		Description:    optional(s.Description),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		RRule:          optional(s.RRule),
		Timezone:       optional(s.Timezone),
		Status:         string(s.Status),
		RequestedByID:  s.RequestedByID,
		CreatedByID:    s.CreatedByID,
		ApprovedByID:   s.ApprovedByID,
		RejectedReason: optional(s.RejectedReason),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toDomainOccurrence(m occurrenceModel) domain.ScheduleOccurrence {
	return domain.ScheduleOccurrence{
		ID:         m.ID,
		ScheduleID: m.ScheduleID,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		Status:     domain.ScheduleStatus(m.Status),
		CreatedAt:  m.CreatedAt,
	}
}

var activeStatuses = []string{string(domain.SchedulePending), string(domain.ScheduleConfirmed)}

// WithSpaceLock runs fn in a transaction after taking a row lock on the
// space (SELECT ... FOR UPDATE), so concurrent writers on the same space
// serialize their read-check-write. Serialization failures are retried
// when this call owns the transaction.
func (r *ScheduleRepository) WithSpaceLock(ctx context.Context, spaceID int64, fn func(ctx context.Context) error) error {
	owned := txFromContext(ctx) == nil

	var err error
	for attempt := 1; attempt <= lockRetries; attempt++ {
		err = withTx(ctx, r.db, func(ctx context.Context) error {
			var sp spaceModel
			if err := conn(ctx, r.db).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", spaceID).
				First(&sp).Error; err != nil {
				return notFound(err)
			}
			return fn(ctx)
		})
		if !owned || !IsSerializationFailure(err) {
			return err
		}
		log.Printf("schedule_lock_retry space_id=%d attempt=%d error=%q", spaceID, attempt, err.Error())
	}
	return err
}

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	m := toScheduleModel(s)
	if err := conn(ctx, r.db).Omit("Occurrences").Create(&m).Error; err != nil {
		return err
	}
	s.ID = m.ID
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return nil
}

// Update writes the editable fields of an active schedule. Status and the
// decision fields are only changed through UpdateStatus.
func (r *ScheduleRepository) Update(ctx context.Context, s *domain.Schedule) error {
	m := toScheduleModel(s)
	res := conn(ctx, r.db).Model(&scheduleModel{}).
		Where("id = ? AND status IN ?", s.ID, activeStatuses).
		Updates(map[string]any{
			"space_id":    m.SpaceID,
			"title":       m.Title,
			"description": m.Description,
			"start_time":  m.StartTime,
			"end_time":    m.EndTime,
			"rrule":       m.RRule,
			"timezone":    m.Timezone,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrChanged(ctx, s.ID)
	}
	return nil
}

// missOrChanged tells a missing row apart from one whose status guard failed.
func (r *ScheduleRepository) missOrChanged(ctx context.Context, id int64) error {
	var n int64
	if err := conn(ctx, r.db).Model(&scheduleModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (r *ScheduleRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Schedule, error) {
	var m scheduleModel
	err := conn(ctx, r.db).
		Preload("Occurrences", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return toDomainSchedule(m), nil
}

// Delete removes the schedule and its occurrences.
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		if err := db.Where("schedule_id = ?", id).Delete(&occurrenceModel{}).Error; err != nil {
			return err
		}
		res := db.Delete(&scheduleModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *ScheduleRepository) List(ctx context.Context, f ScheduleFilter) ([]domain.Schedule, error) {
	q := conn(ctx, r.db).Model(&scheduleModel{}).Where("tenant_id = ?", f.TenantID)
	if f.SpaceID > 0 {
		q = q.Where("space_id = ?", f.SpaceID)
	}
	if f.RequestedByID > 0 {
		q = q.Where("requested_by_id = ?", f.RequestedByID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.From != nil {
		q = q.Where("end_time > ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_time < ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []scheduleModel
	if err := q.Order("start_time ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSchedules(rows), nil
}

func (r *ScheduleRepository) ListActiveBySpace(ctx context.Context, spaceID, excludeID int64) ([]domain.Schedule, error) {
	q := conn(ctx, r.db).Where("space_id = ? AND status IN ?", spaceID, activeStatuses)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var rows []scheduleModel
	if err := q.Order("start_time ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSchedules(rows), nil
}

func (r *ScheduleRepository) ListPendingForApprover(ctx context.Context, tenantID, approverID int64) ([]domain.Schedule, error) {
	var rows []scheduleModel
	err := conn(ctx, r.db).
		Joins("JOIN spaces ON spaces.id = schedules.space_id").
		Where("schedules.tenant_id = ? AND schedules.status = ? AND spaces.approver_id = ?",
			tenantID, string(domain.SchedulePending), approverID).
		Order("schedules.start_time ASC, schedules.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSchedules(rows), nil
}

func (r *ScheduleRepository) CreateOccurrences(ctx context.Context, scheduleID int64, occ []domain.ScheduleOccurrence) error {
	if len(occ) == 0 {
		return nil
	}

	rows := make([]occurrenceModel, 0, len(occ))
	for _, o := range occ {
		rows = append(rows, occurrenceModel{
			ScheduleID: scheduleID,
			StartTime:  o.StartTime,
			EndTime:    o.EndTime,
			Status:     string(o.Status),
		})
	}
	if err := conn(ctx, r.db).CreateInBatches(&rows, 100).Error; err != nil {
		return err
	}

	for i := range rows {
		occ[i].ID = rows[i].ID
		occ[i].ScheduleID = scheduleID
		occ[i].CreatedAt = rows[i].CreatedAt
	}
	return nil
}

func (r *ScheduleRepository) DeleteOccurrences(ctx context.Context, scheduleID int64) error {
	return conn(ctx, r.db).Where("schedule_id = ?", scheduleID).Delete(&occurrenceModel{}).Error
}

func (r *ScheduleRepository) GetOccurrences(ctx context.Context, scheduleID int64) ([]domain.ScheduleOccurrence, error) {
	var rows []occurrenceModel
	if err := conn(ctx, r.db).Where("schedule_id = ?", scheduleID).Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ScheduleOccurrence, 0, len(rows))
	for _, o := range rows {
		out = append(out, toDomainOccurrence(o))
	}
	return out, nil
}

func (r *ScheduleRepository) ListOccurrencesBySpace(ctx context.Context, spaceID int64, from, to time.Time) ([]domain.ScheduleOccurrence, error) {
	var rows []occurrenceModel
	err := conn(ctx, r.db).
		Joins("JOIN schedules ON schedules.id = schedule_occurrences.schedule_id").
		Where("schedules.space_id = ? AND schedule_occurrences.status IN ?", spaceID, activeStatuses).
		Where("schedule_occurrences.start_time < ? AND schedule_occurrences.end_time > ?", to, from).
		Order("schedule_occurrences.start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScheduleOccurrence, 0, len(rows))
	for _, o := range rows {
		out = append(out, toDomainOccurrence(o))
	}
	return out, nil
}

// UpdateStatus moves the schedule and every one of its occurrences from one
// of the from statuses to status in one transaction. A schedule that is no
// longer in a from status yields ErrStatusChanged.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id int64, from []domain.ScheduleStatus, status domain.ScheduleStatus, approvedBy *int64, reason string) error {
	expected := make([]string, 0, len(from))
	for _, st := range from {
		expected = append(expected, string(st))
	}

	return withTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		updates := map[string]any{
			"status":     string(status),
			"updated_at": time.Now(),
		}
		if approvedBy != nil {
			updates["approved_by_id"] = *approvedBy
		}
		if reason != "" {
			updates["rejected_reason"] = reason
		}

		res := db.Model(&scheduleModel{}).Where("id = ? AND status IN ?", id, expected).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.missOrChanged(ctx, id)
		}

		return db.Model(&occurrenceModel{}).
			Where("schedule_id = ?", id).
			Update("status", string(status)).Error
	})
}

// PurgeCancelledBefore hard-deletes cancelled schedules last touched before
// cutoff and returns how many were removed.
func (r *ScheduleRepository) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := withTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		var ids []int64
		if err := db.Model(&scheduleModel{}).
			Where("status = ? AND updated_at < ?", string(domain.ScheduleCancelled), cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := db.Where("schedule_id IN ?", ids).Delete(&occurrenceModel{}).Error; err != nil {
			return err
		}
		res := db.Where("id IN ?", ids).Delete(&scheduleModel{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

func toDomainSchedules(rows []scheduleModel) []domain.Schedule {
	out := make([]domain.Schedule, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainSchedule(m))
	}
	return out
}
