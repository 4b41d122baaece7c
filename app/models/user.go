package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is the account record provisioned by paid purchases. One row per
// lowercased email.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email             string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Password          string         `gorm:"type:text" json:"-" validate:"required"`
	Phone             string         `gorm:"type:varchar(40);default:''" json:"phone"`
	Document          string         `gorm:"type:varchar(40);default:''" json:"document"`
	Role              string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status            string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Plan              string         `gorm:"type:varchar(50);default:'basic';index" json:"plan"`
	MessagesLimit     int            `gorm:"not null;default:0" json:"messages_limit"`
	MessagesUsedToday int            `gorm:"not null;default:0" json:"messages_used_today"`
	LastResetAt       time.Time      `json:"last_reset_at"`
	PlanExpiresAt     *time.Time     `gorm:"type:timestamp;default:null" json:"plan_expires_at"`
	LastLoginAt       *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// PlanExpired reports whether the plan has an expiry in the past.
func (u *User) PlanExpired(now time.Time) bool {
	return u.PlanExpiresAt != nil && now.After(*u.PlanExpiresAt)
}

// MessagesRemaining never goes below zero.
func (u *User) MessagesRemaining() int {
	left := u.MessagesLimit - u.MessagesUsedToday
	if left < 0 {
		return 0
	}
	return left
}
