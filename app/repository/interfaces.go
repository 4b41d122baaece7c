package repository

import (
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdatePassword(id uint, hash string) error
	TouchLastLogin(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// PurchaseFilter narrows purchase listings. Zero values match everything.
type PurchaseFilter struct {
	Status string
	Email  string
	Offset int
	Limit  int
}

// PurchaseRepository reads the purchase audit log
type PurchaseRepository interface {
	GetByID(id uint) (*models.Purchase, error)
	GetByTransactionID(transactionID string) (*models.Purchase, error)
	List(filter PurchaseFilter) ([]models.Purchase, int64, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	List() ([]models.Setting, error)
	Get(key string) (*models.Setting, error)
	GetValue(key string) (string, error)
	SetValue(key, value string) (*models.Setting, error)
	Delete(key string) error
	Resolve(key, envKey string) string
}

// BotRepository defines the interface for chat personas
type BotRepository interface {
	Create(bot *models.Bot) error
	GetByID(id uint) (*models.Bot, error)
	GetBySlug(slug string) (*models.Bot, error)
	List() ([]models.Bot, error)
	ListActive() ([]models.Bot, error)
	Update(bot *models.Bot) error
	Delete(id uint) error
	SlugExistsExceptID(slug string, id uint) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Purchase PurchaseRepository
	Setting  SettingRepository
	Bot      BotRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Purchase: NewPurchaseRepository(db),
		Setting:  NewSettingRepository(db),
		Bot:      NewBotRepository(db),
	}
}
