package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Setting is a key/value row used for provider credentials and other values
// an operator can change without a redeploy.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null;default:'string'" json:"type" validate:"required,oneof=string secret integer boolean"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Known setting keys.
const (
	SettingWaveSpeedAPIKey = "wavespeed_api_key"
	SettingBrevoAPIKey     = "brevo_api_key"
	SettingLLMDefaultModel = "llm_default_model"
	SettingMailSenderEmail = "mail_sender_email"
	SettingMailSenderName  = "mail_sender_name"
)

var knownSettings = map[string]string{
	SettingWaveSpeedAPIKey: "secret",
	SettingBrevoAPIKey:     "secret",
	SettingLLMDefaultModel: "string",
	SettingMailSenderEmail: "string",
	SettingMailSenderName:  "string",
}

// IsKnownSetting reports whether key is one the application reads.
func IsKnownSetting(key string) bool {
	_, ok := knownSettings[key]
	return ok
}

// KnownSettingKeys lists every key the application reads.
func KnownSettingKeys() []string {
	keys := make([]string, 0, len(knownSettings))
	for k := range knownSettings {
		keys = append(keys, k)
	}
	return keys
}

// getSettingType returns the type of a setting based on its key
func getSettingType(key string) string {
	if t, ok := knownSettings[key]; ok {
		return t
	}
	return "string"
}

// NewSetting builds a validated setting row for key.
func NewSetting(key, value string) (*Setting, error) {
	s := &Setting{
		Key:   strings.TrimSpace(key),
		Value: value,
		Type:  getSettingType(strings.TrimSpace(key)),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate validates the setting
func (s *Setting) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// IsSecret reports whether the value must be masked when listed.
func (s *Setting) IsSecret() bool {
	return s.Type == "secret"
}

// MaskedValue keeps the last four characters of secret values.
func (s *Setting) MaskedValue() string {
	if !s.IsSecret() {
		return s.Value
	}
	if len(s.Value) <= 4 {
		return strings.Repeat("*", len(s.Value))
	}
	return strings.Repeat("*", len(s.Value)-4) + s.Value[len(s.Value)-4:]
}
