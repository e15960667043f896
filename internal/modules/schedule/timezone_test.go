package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"spacebooking/internal/domain"
	"spacebooking/internal/repository"
)

func setupSQLiteService(t *testing.T, loc *time.Location) (*Service, *domain.Space, Actor) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{
		DriverName: "sqlite",
		DSN:        "file:schedule_" + t.Name() + "?mode=memory&cache=shared",
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(repository.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	tenant, err := repository.NewTenantRepository(db).EnsureBySlug(ctx, "acme", "Acme")
	require.NoError(t, err)

	spaces := repository.NewSpaceRepository(db)
	space := &domain.Space{TenantID: tenant.ID, Name: "Studio"}
	require.NoError(t, spaces.Create(ctx, space))

	svc := NewService(repository.NewScheduleRepository(db), spaces, newTestExpander(), loc)
	return svc, space, Actor{UserID: requester, TenantID: tenant.ID, Role: string(domain.RoleMember)}
}

// A daily series created before the March clock change must still block
// its 09:00 wall-clock slot after the change, once read back from storage.
func TestService_RecurringConflictAfterClockChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	svc, space, actor := setupSQLiteService(t, loc)
	ctx := context.Background()

	_, _, err = svc.CreateSchedule(ctx, actor, CreateScheduleRequest{
		SpaceID:   space.ID,
		Title:     "Daily standup",
		Date:      "2024-03-01",
		StartTime: "09:00",
		EndTime:   "10:00",
		RRule:     "FREQ=DAILY;COUNT=30",
	})
	require.NoError(t, err)

	_, _, err = svc.CreateSchedule(ctx, actor, CreateScheduleRequest{
		SpaceID:   space.ID,
		Title:     "Quick call",
		Date:      "2024-03-15",
		StartTime: "09:30",
		EndTime:   "09:45",
	})
	var conflictErr *ConflictError
	require.True(t, errors.As(err, &conflictErr), "expected conflict, got %v", err)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.True(t, conflictErr.Conflicts[0].Existing.Start.Equal(time.Date(2024, 3, 15, 9, 0, 0, 0, loc)))

	report, err := svc.CheckConflicts(ctx, actor, CheckConflictsRequest{
		SpaceID: space.ID, Date: "2024-03-15", StartTime: "08:00", EndTime: "09:00",
	})
	require.NoError(t, err)
	assert.False(t, report.HasConflict)
}
