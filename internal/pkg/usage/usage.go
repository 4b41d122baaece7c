package usage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

var (
	ErrPlanExpired   = errors.New("plan expired")
	ErrQuotaExceeded = errors.New("daily message quota exceeded")
	ErrInactive      = errors.New("account is not active")
)

// Snapshot is the usage state of one account after the lazy daily reset.
type Snapshot struct {
	UserID        uint       `json:"user_id"`
	Plan          string     `json:"plan"`
	Limit         int        `json:"messages_limit"`
	Used          int        `json:"messages_used_today"`
	Remaining     int        `json:"messages_remaining"`
	PlanExpiresAt *time.Time `json:"plan_expires_at"`
	Expired       bool       `json:"plan_expired"`
}

// ResetIfNewDay zeroes the daily counter when now falls on a different
// calendar date than the last reset. Dates are compared in now's location.
func ResetIfNewDay(u *models.User, now time.Time) bool {
	if sameDay(u.LastResetAt.In(now.Location()), now) {
		return false
	}
	u.MessagesUsedToday = 0
	u.LastResetAt = now
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Snapshot applies and persists the lazy reset, then reports usage without
// enforcing anything.
func (s *Service) Snapshot(ctx context.Context, u *models.User) (Snapshot, error) {
	now := s.now()
	if ResetIfNewDay(u, now) {
		err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).
			Updates(map[string]interface{}{"messages_used_today": 0, "last_reset_at": u.LastResetAt}).Error
		if err != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{
		UserID:        u.ID,
		Plan:          u.Plan,
		Limit:         u.MessagesLimit,
		Used:          u.MessagesUsedToday,
		Remaining:     u.MessagesRemaining(),
		PlanExpiresAt: u.PlanExpiresAt,
		Expired:       u.PlanExpired(now),
	}, nil
}

// Check returns the usage snapshot, or an error when the account may not send
// another message.
func (s *Service) Check(ctx context.Context, u *models.User) (Snapshot, error) {
	if !u.IsActive() {
		return Snapshot{}, ErrInactive
	}
	snap, err := s.Snapshot(ctx, u)
	if err != nil {
		return snap, err
	}
	if snap.Expired {
		return snap, ErrPlanExpired
	}
	if snap.Remaining <= 0 {
		return snap, ErrQuotaExceeded
	}
	return snap, nil
}

// Consume counts one message. The increment is conditional on the limit so
// two concurrent requests cannot push the counter past it.
func (s *Service) Consume(ctx context.Context, u *models.User) error {
	tx := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND messages_used_today < messages_limit", u.ID).
		UpdateColumn("messages_used_today", gorm.Expr("messages_used_today + ?", 1))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrQuotaExceeded
	}
	u.MessagesUsedToday++
	return nil
}
