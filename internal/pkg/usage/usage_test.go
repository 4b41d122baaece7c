package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/internal/pkg/database"
)

func TestResetIfNewDay(t *testing.T) {
	base := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	tests := []struct {
		name  string
		last  time.Time
		now   time.Time
		reset bool
	}{
		{"same day", base.Add(-time.Hour), base, false},
		{"next day one minute later", base, base.Add(2 * time.Minute), true},
		{"zero value", time.Time{}, base, true},
		{"a week later", base, base.Add(7 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{MessagesUsedToday: 7, LastResetAt: tt.last}
			got := ResetIfNewDay(u, tt.now)
			assert.Equal(t, tt.reset, got)
			if tt.reset {
				assert.Equal(t, 0, u.MessagesUsedToday)
				assert.Equal(t, tt.now, u.LastResetAt)
			} else {
				assert.Equal(t, 7, u.MessagesUsedToday)
			}
		})
	}
}

func seedUser(t *testing.T, svcNow time.Time, used, limit int, expires time.Time) (*Service, *models.User) {
	t.Helper()
	db := database.NewTestDB(t)
	u := &models.User{
		Email: "u@example.com", Password: "x", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE,
		Plan: "basic", MessagesLimit: limit, MessagesUsedToday: used,
		LastResetAt: svcNow.Add(-time.Hour), PlanExpiresAt: &expires,
	}
	require.NoError(t, db.Create(u).Error)
	return NewService(db).WithClock(func() time.Time { return svcNow }), u
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	svc, u := seedUser(t, now, 3, 30, now.Add(24*time.Hour))
	snap, err := svc.Check(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 27, snap.Remaining)

	svc, u = seedUser(t, now, 30, 30, now.Add(24*time.Hour))
	_, err = svc.Check(context.Background(), u)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	svc, u = seedUser(t, now, 0, 30, now.Add(-time.Minute))
	_, err = svc.Check(context.Background(), u)
	assert.ErrorIs(t, err, ErrPlanExpired)

	svc, u = seedUser(t, now, 0, 30, now.Add(time.Hour))
	u.Status = models.STATUS_DISABLED
	_, err = svc.Check(context.Background(), u)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestCheck_PersistsLazyReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, u := seedUser(t, now, 30, 30, now.Add(48*time.Hour))

	tomorrow := now.Add(24 * time.Hour)
	svc.WithClock(func() time.Time { return tomorrow })
	snap, err := svc.Check(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Used)

	var stored models.User
	require.NoError(t, svc.db.First(&stored, u.ID).Error)
	assert.Equal(t, 0, stored.MessagesUsedToday)
	assert.WithinDuration(t, tomorrow, stored.LastResetAt, time.Second)
}

func TestConsume_StopsAtLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, u := seedUser(t, now, 28, 30, now.Add(time.Hour))

	require.NoError(t, svc.Consume(context.Background(), u))
	require.NoError(t, svc.Consume(context.Background(), u))
	assert.ErrorIs(t, svc.Consume(context.Background(), u), ErrQuotaExceeded)

	var stored models.User
	require.NoError(t, svc.db.First(&stored, u.ID).Error)
	assert.Equal(t, 30, stored.MessagesUsedToday)
}
