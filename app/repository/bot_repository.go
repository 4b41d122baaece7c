package repository

import (
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

type botRepository struct {
	db *gorm.DB
}

func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{db: db}
}

// Create stores bot. is_active has a column default, so an inactive bot
// needs a second write for the false value to stick.
func (r *botRepository) Create(bot *models.Bot) error {
	if err := r.db.Create(bot).Error; err != nil {
		return err
	}
	if !bot.IsActive {
		return r.db.Model(bot).Update("is_active", false).Error
	}
	return nil
}

func (r *botRepository) GetByID(id uint) (*models.Bot, error) {
	var bot models.Bot
	if err := r.db.First(&bot, id).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *botRepository) GetBySlug(slug string) (*models.Bot, error) {
	var bot models.Bot
	if err := r.db.Where("slug = ?", slug).First(&bot).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *botRepository) List() ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Order("sort_order ASC").Order("name ASC").Find(&bots).Error
	return bots, err
}

// ListActive returns the personas users may pick.
func (r *botRepository) ListActive() ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Where("is_active = ?", true).Order("sort_order ASC").Order("name ASC").Find(&bots).Error
	return bots, err
}

// Update saves all fields including zero values such as IsActive=false.
func (r *botRepository) Update(bot *models.Bot) error {
	return r.db.Save(bot).Error
}

func (r *botRepository) Delete(id uint) error {
	tx := r.db.Delete(&models.Bot{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SlugExistsExceptID checks if a slug exists excluding a specific ID
func (r *botRepository) SlugExistsExceptID(slug string, id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Bot{}).Where("slug = ? AND id <> ?", slug, id).Count(&count).Error
	return count > 0, err
}
