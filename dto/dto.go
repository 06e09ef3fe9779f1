package dto

import (
	"time"

	"github.com/google/uuid"

	"live-translation/constant"
)

// AudioChunkMessage is the inbound transport-boundary event carrying one raw
// audio chunk for a session. Audio is base64 on the wire (encoding/json
// handles []byte transparently).
type AudioChunkMessage struct {
	SessionID string    `json:"sessionId"`
	Sequence  int64     `json:"sequence"`
	Audio     []byte    `json:"audio"`
	MimeType  string    `json:"mimeType,omitempty"`
	SentAt    time.Time `json:"sentAt,omitempty"`
}

type SessionSettings struct {
	MaxWorshippers int                   `json:"maxWorshippers" validate:"required,min=1,max=10000"`
	AudioQuality   constant.AudioQuality `json:"audioQuality" validate:"omitempty,oneof=low standard high"`
}

type CreateSessionRequest struct {
	ImamID             string          `json:"imamId" validate:"required"`
	ImamName           string          `json:"imamName" validate:"required"`
	SourceLanguage     string          `json:"sourceLanguage" validate:"required"`
	SourceLanguageName string          `json:"sourceLanguageName" validate:"required"`
	Title              string          `json:"title" validate:"required,max=255"`
	Description        string          `json:"description" validate:"max=2000"`
	Password           string          `json:"password,omitempty" validate:"omitempty,min=4,max=128"`
	Settings           SessionSettings `json:"settings"`
}

type CreateSessionResponse struct {
	Success   bool         `json:"success"`
	SessionID string       `json:"sessionId"`
	Session   *SessionView `json:"session"`
}

type JoinSessionRequest struct {
	UserID             string `json:"userId" validate:"required"`
	TargetLanguage     string `json:"targetLanguage" validate:"required"`
	TargetLanguageName string `json:"targetLanguageName" validate:"required"`
	Password           string `json:"password,omitempty"`
}

type JoinSessionResponse struct {
	Success bool         `json:"success"`
	Session *SessionView `json:"session"`
	// Real-time data arrives over the event stream, not this call.
	EventsURL string `json:"eventsUrl"`
}

type LeaveSessionRequest struct {
	UserID       string `json:"userId" validate:"required"`
	ConnectionID string `json:"connectionId,omitempty"`
}

type ChangeLanguageRequest struct {
	ConnectionID       string `json:"connectionId" validate:"required"`
	TargetLanguage     string `json:"targetLanguage" validate:"required"`
	TargetLanguageName string `json:"targetLanguageName" validate:"required"`
}

type EndSessionRequest struct {
	CallerID string `json:"callerId" validate:"required"`
}

// SessionView is the externally safe representation of a session: no password
// material, no transport connection identifiers.
type SessionView struct {
	ID                 string                 `json:"id"`
	ImamID             string                 `json:"imamId"`
	ImamName           string                 `json:"imamName"`
	SourceLanguage     string                 `json:"sourceLanguage"`
	SourceLanguageName string                 `json:"sourceLanguageName"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description,omitempty"`
	Protected          bool                   `json:"protected"`
	Status             constant.SessionStatus `json:"status"`
	Settings           SessionSettings        `json:"settings"`
	WorshipperCount    int                    `json:"worshipperCount"`
	Languages          []string               `json:"languages"`
	HistoryLength      int                    `json:"historyLength"`
	CreatedAt          time.Time              `json:"createdAt"`
	StartedAt          *time.Time             `json:"startedAt,omitempty"`
	EndedAt            *time.Time             `json:"endedAt,omitempty"`
}

type HistoryResponse struct {
	SessionID string              `json:"sessionId"`
	Total     int                 `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
	Records   []TranslationRecord `json:"records"`
}

type TranslationRecord struct {
	ID                      uuid.UUID        `json:"id"`
	OriginalText            string           `json:"originalText"`
	SourceLanguage          string           `json:"sourceLanguage"`
	Timestamp               time.Time        `json:"timestamp"`
	ProcessingTimeMs        int64            `json:"processingTimeMs"`
	TranscriptionConfidence float64          `json:"transcriptionConfidence"`
	Translations            []LanguageOutput `json:"translations"`
}

type LanguageOutput struct {
	Language       string     `json:"language"`
	Text           string     `json:"text"`
	AudioReference string     `json:"audioReference,omitempty"`
	Confidence     float64    `json:"translationConfidence,omitempty"`
	Skipped        bool       `json:"skipped,omitempty"`
	Failed         bool       `json:"failed,omitempty"`
	GeneratedAt    *time.Time `json:"generatedAt,omitempty"`
}

// --- outbound real-time events ---

type OriginalText struct {
	Text         string `json:"text"`
	Language     string `json:"language"`
	LanguageName string `json:"languageName"`
}

type TranslationEvent struct {
	Event                   string             `json:"event"`
	SessionID               string             `json:"sessionId"`
	Original                OriginalText       `json:"original"`
	Translations            []TranslationEntry `json:"translations"`
	Timestamp               time.Time          `json:"timestamp"`
	TranscriptionConfidence float64            `json:"transcriptionConfidence"`
	TotalProcessingTimeMs   int64              `json:"totalProcessingTime"`
}

type TranslationEntry struct {
	Language    string  `json:"language"`
	Text        string  `json:"text"`
	AudioBase64 string  `json:"audioBase64,omitempty"`
	Confidence  float64 `json:"translationConfidence,omitempty"`
	Skipped     bool    `json:"skipped,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type PersonalTranslationEvent struct {
	Event       string           `json:"event"`
	SessionID   string           `json:"sessionId"`
	Original    OriginalText     `json:"original"`
	Translation TranslationEntry `json:"translation"`
	Timestamp   time.Time        `json:"timestamp"`
}

type ProcessingErrorEvent struct {
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// --- reporting ---

type StatisticsResponse struct {
	ActiveSessions    int     `json:"activeSessions"`
	TotalSessions     int     `json:"totalSessions"`
	TotalWorshippers  int     `json:"totalWorshippers"`
	TotalTranslations int64   `json:"totalTranslations"`
	TotalErrors       int64   `json:"totalErrors"`
	AvgCycleMs        float64 `json:"avgCycleMs"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
