package schedule

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"spacebooking/internal/domain"
	"spacebooking/internal/pkg/clock"
	"spacebooking/internal/recurrence"
	"spacebooking/internal/repository"
)

var testNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestExpander() *recurrence.Expander {
	return recurrence.NewExpander(clock.NewFixed(testNow), recurrence.DefaultHorizonCap)
}

// memScheduleStore keeps schedules and occurrences in maps. WithSpaceLock
// serializes callers per store, which is enough for single-process tests;
// nested calls join the outer lock the way nested transactions do.
type memScheduleStore struct {
	mu        sync.Mutex
	lock      sync.Mutex
	nextID    int64
	nextOccID int64
	schedules map[int64]*domain.Schedule
	occ       map[int64][]domain.ScheduleOccurrence
	locked    []int64
}

func newMemScheduleStore() *memScheduleStore {
	return &memScheduleStore{
		schedules: map[int64]*domain.Schedule{},
		occ:       map[int64][]domain.ScheduleOccurrence{},
	}
}

type memLockKey struct{}

func (m *memScheduleStore) WithSpaceLock(ctx context.Context, spaceID int64, fn func(ctx context.Context) error) error {
	if ctx.Value(memLockKey{}) == nil {
		m.lock.Lock()
		defer m.lock.Unlock()
		ctx = context.WithValue(ctx, memLockKey{}, true)
	}
	m.mu.Lock()
	m.locked = append(m.locked, spaceID)
	m.mu.Unlock()
	return fn(ctx)
}

func (m *memScheduleStore) Create(_ context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = testNow
	s.UpdatedAt = testNow
	cp := *s
	cp.Occurrences = nil
	m.schedules[s.ID] = &cp
	return nil
}

func (m *memScheduleStore) Update(_ context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.schedules[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !stored.Status.Active() {
		return repository.ErrStatusChanged
	}
	cp := *s
	cp.Occurrences = nil
	cp.Status = stored.Status
	cp.ApprovedByID = stored.ApprovedByID
	cp.RejectedReason = stored.RejectedReason
	m.schedules[s.ID] = &cp
	return nil
}

func (m *memScheduleStore) GetByID(_ context.Context, tenantID, id int64) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	cp.Occurrences = append([]domain.ScheduleOccurrence(nil), m.occ[id]...)
	return &cp, nil
}

func (m *memScheduleStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.schedules, id)
	delete(m.occ, id)
	return nil
}

func (m *memScheduleStore) List(_ context.Context, f ListFilter) ([]domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Schedule, 0)
	for _, s := range m.sorted() {
		if s.TenantID != f.TenantID {
			continue
		}
		if f.SpaceID != 0 && s.SpaceID != f.SpaceID {
			continue
		}
		if f.RequestedByID != 0 && s.RequestedByID != f.RequestedByID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memScheduleStore) ListActiveBySpace(_ context.Context, spaceID, excludeID int64) ([]domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Schedule, 0)
	for _, s := range m.sorted() {
		if s.SpaceID == spaceID && s.ID != excludeID && s.Status.Active() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memScheduleStore) ListPendingForApprover(context.Context, int64, int64) ([]domain.Schedule, error) {
	return nil, nil
}

func (m *memScheduleStore) CreateOccurrences(_ context.Context, scheduleID int64, occ []domain.ScheduleOccurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range occ {
		m.nextOccID++
		occ[i].ID = m.nextOccID
		occ[i].ScheduleID = scheduleID
	}
	m.occ[scheduleID] = append(m.occ[scheduleID], occ...)
	return nil
}

func (m *memScheduleStore) DeleteOccurrences(_ context.Context, scheduleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.occ, scheduleID)
	return nil
}

func (m *memScheduleStore) GetOccurrences(_ context.Context, scheduleID int64) ([]domain.ScheduleOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScheduleOccurrence(nil), m.occ[scheduleID]...), nil
}

func (m *memScheduleStore) ListOccurrencesBySpace(_ context.Context, spaceID int64, from, to time.Time) ([]domain.ScheduleOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScheduleOccurrence, 0)
	for _, s := range m.sorted() {
		if s.SpaceID != spaceID {
			continue
		}
		for _, o := range m.occ[s.ID] {
			if o.Status.Active() && o.StartTime.Before(to) && from.Before(o.EndTime) {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (m *memScheduleStore) UpdateStatus(_ context.Context, id int64, from []domain.ScheduleStatus, status domain.ScheduleStatus, approvedBy *int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !slices.Contains(from, s.Status) {
		return repository.ErrStatusChanged
	}
	s.Status = status
	if approvedBy != nil {
		s.ApprovedByID = approvedBy
	}
	if reason != "" {
		s.RejectedReason = reason
	}
	occ := m.occ[id]
	for i := range occ {
		occ[i].Status = status
	}
	return nil
}

// racingStore runs beforeLock once, ahead of the next WithSpaceLock, so a
// test can commit a competing write between a caller's read and its lock.
type racingStore struct {
	*memScheduleStore
	beforeLock func()
}

func (r *racingStore) WithSpaceLock(ctx context.Context, spaceID int64, fn func(ctx context.Context) error) error {
	if hook := r.beforeLock; hook != nil {
		r.beforeLock = nil
		hook()
	}
	return r.memScheduleStore.WithSpaceLock(ctx, spaceID, fn)
}

func (m *memScheduleStore) sorted() []*domain.Schedule {
	out := make([]*domain.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type MockSpaceRepository struct {
	mock.Mock
}

func (m *MockSpaceRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Space, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) SendApprovalRequest(ctx context.Context, approver *domain.User, s *domain.Schedule) error {
	args := m.Called(ctx, approver, s)
	return args.Error(0)
}

func (m *MockNotificationSender) SendApproved(ctx context.Context, requester *domain.User, s *domain.Schedule) error {
	args := m.Called(ctx, requester, s)
	return args.Error(0)
}

func (m *MockNotificationSender) SendRejected(ctx context.Context, requester *domain.User, s *domain.Schedule, reason string) error {
	args := m.Called(ctx, requester, s, reason)
	return args.Error(0)
}

func (m *MockNotificationSender) SendCancelled(ctx context.Context, requester *domain.User, s *domain.Schedule) error {
	args := m.Called(ctx, requester, s)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

const (
	tenantID   int64 = 1
	spaceID    int64 = 10
	requester  int64 = 100
	approverID int64 = 200
	outsiderID int64 = 300
)

func openSpace() *domain.Space {
	return &domain.Space{
		ID:           spaceID,
		TenantID:     tenantID,
		Name:         "Room A",
		MinStartTime: strPtr("08:00"),
		MinEndTime:   strPtr("18:00"),
	}
}

func approvalSpace() *domain.Space {
	sp := openSpace()
	sp.RequiresApproval = true
	sp.ApproverID = int64Ptr(approverID)
	return sp
}

// newTestService wires a Service over a fresh store and the given space.
func newTestService(space *domain.Space) (*Service, *memScheduleStore, *MockSpaceRepository) {
	store := newMemScheduleStore()
	svc, spaces := newServiceOver(store, space)
	return svc, store, spaces
}

func newServiceOver(store ScheduleRepository, space *domain.Space) (*Service, *MockSpaceRepository) {
	spaces := new(MockSpaceRepository)
	spaces.On("GetByID", mock.Anything, tenantID, space.ID).Return(space, nil)
	spaces.On("GetByID", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	return NewService(store, spaces, newTestExpander(), time.UTC), spaces
}

func member(id int64) Actor {
	return Actor{UserID: id, TenantID: tenantID, Role: string(domain.RoleMember)}
}

func createReq(date, start, end, rule string) CreateScheduleRequest {
	return CreateScheduleRequest{
		SpaceID:   spaceID,
		Title:     "Team sync",
		Date:      date,
		StartTime: start,
		EndTime:   end,
		RRule:     rule,
	}
}
