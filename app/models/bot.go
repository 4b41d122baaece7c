package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Bot is a chat persona: a system prompt bound to a default model.
type Bot struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug" validate:"required,min=2,max=100,lowercase"`
	Name         string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Description  string    `gorm:"type:text" json:"description" validate:"max=1000"`
	SystemPrompt string    `gorm:"type:text;not null" json:"system_prompt" validate:"required"`
	Model        string    `gorm:"type:varchar(150);default:''" json:"model" validate:"max=150"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	SortOrder    int       `gorm:"default:0" json:"sort_order"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Bot) Validate() error {
	v := validator.New()

	return v.Struct(b)
}
