package entities

import (
	"time"

	"github.com/google/uuid"
)

// TranslationRecord is one processed audio chunk: the transcript plus the
// per-language outputs, stored as a JSONB document in completion order.
type TranslationRecord struct {
	ID                      uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	SessionID               string    `json:"session_id" gorm:"type:uuid;not null;index:idx_translation_records_session"`
	OriginalText            string    `json:"original_text" gorm:"type:text;not null"`
	SourceLanguage          string    `json:"source_language" gorm:"type:varchar(16);not null"`
	TranscriptionConfidence float64   `json:"transcription_confidence" gorm:"type:double precision"`
	ProcessingTimeMs        int64     `json:"processing_time_ms" gorm:"type:bigint"`
	Translations            []byte    `json:"translations" gorm:"type:jsonb;not null"`
	Timestamp               time.Time `json:"timestamp" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (TranslationRecord) TableName() string {
	return "translation_records"
}
