package entities

import (
	"time"

	"live-translation/constant"
)

// Session is the persisted mirror of an in-memory live session. The roster is
// never persisted (it only reflects live connections); history lives in
// translation_records.
type Session struct {
	ID                 string                 `json:"id" gorm:"type:uuid;primary_key"`
	ImamID             string                 `json:"imam_id" gorm:"type:varchar(64);not null;index:idx_sessions_imam_id"`
	ImamName           string                 `json:"imam_name" gorm:"type:varchar(255);not null"`
	SourceLanguage     string                 `json:"source_language" gorm:"type:varchar(16);not null"`
	SourceLanguageName string                 `json:"source_language_name" gorm:"type:varchar(64);not null"`
	Title              string                 `json:"title" gorm:"type:varchar(255);not null"`
	Description        *string                `json:"description" gorm:"type:text"`
	PasswordHash       *string                `json:"-" gorm:"type:varchar(255)"`
	Status             constant.SessionStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index:idx_sessions_status"`
	MaxWorshippers     int                    `json:"max_worshippers" gorm:"type:integer;not null"`
	AudioQuality       constant.AudioQuality  `json:"audio_quality" gorm:"type:varchar(16);not null;default:'standard'"`
	TranscriptionErrs  int                    `json:"transcription_errors" gorm:"type:integer;default:0"`
	TranslationErrs    int                    `json:"translation_errors" gorm:"type:integer;default:0"`
	AudioGenErrs       int                    `json:"audio_generation_errors" gorm:"type:integer;default:0"`
	CreatedAt          time.Time              `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	StartedAt          *time.Time             `json:"started_at" gorm:"type:timestamptz"`
	EndedAt            *time.Time             `json:"ended_at" gorm:"type:timestamptz"`
}

func (Session) TableName() string {
	return "live_translation_sessions"
}
