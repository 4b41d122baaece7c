package repository

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/internal/pkg/cache"
	"github.com/nexochat/nexo/internal/pkg/env"
)

const (
	settingCachePrefix = "setting:"
	settingCacheTTL    = 5 * time.Minute
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) List() ([]models.Setting, error) {
	var out []models.Setting
	err := r.db.Order("setting_key ASC").Find(&out).Error
	return out, err
}

func (r *settingRepository) Get(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetValue returns "" for keys that are not stored. Reads go through redis
// when the cache is enabled.
func (r *settingRepository) GetValue(key string) (string, error) {
	if v, err := cache.Get(settingCachePrefix + key); err == nil {
		return v, nil
	} else if !cache.IsMiss(err) {
		log.Warnf("[Settings] cache read for %s failed: %v", key, err)
	}

	setting, err := r.Get(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if err := cache.Set(settingCachePrefix+key, setting.Value, settingCacheTTL); err != nil && !cache.IsMiss(err) {
		log.Warnf("[Settings] cache write for %s failed: %v", key, err)
	}
	return setting.Value, nil
}

// SetValue validates and upserts key, then drops the cached copy.
func (r *settingRepository) SetValue(key, value string) (*models.Setting, error) {
	setting, err := models.NewSetting(key, value)
	if err != nil {
		return nil, err
	}

	err = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, err
	}
	r.invalidate(setting.Key)
	return r.Get(setting.Key)
}

func (r *settingRepository) Delete(key string) error {
	tx := r.db.Where("setting_key = ?", key).Delete(&models.Setting{})
	if tx.Error != nil {
		return tx.Error
	}
	r.invalidate(key)
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Resolve returns the stored value for key, falling back to the envKey
// environment variable. A stored value always wins.
func (r *settingRepository) Resolve(key, envKey string) string {
	v, err := r.GetValue(key)
	if err != nil {
		log.Errorf("[Settings] reading %s failed, using environment: %v", key, err)
	}
	if v != "" {
		return v
	}
	if envKey == "" {
		return ""
	}
	return env.GetEnv(envKey, "")
}

func (r *settingRepository) invalidate(key string) {
	if err := cache.Delete(settingCachePrefix + key); err != nil && !cache.IsMiss(err) {
		log.Warnf("[Settings] cache delete for %s failed: %v", key, err)
	}
}
