package constant

type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusEnded   SessionStatus = "ended"
)

func (s SessionStatus) String() string {
	return string(s)
}

type ErrorCategory string

const (
	ErrorCategoryTranscription   ErrorCategory = "transcriptionErrors"
	ErrorCategoryTranslation     ErrorCategory = "translationErrors"
	ErrorCategoryAudioGeneration ErrorCategory = "audioGenerationErrors"
)

func (c ErrorCategory) String() string {
	return string(c)
}

type AudioQuality string

const (
	AudioQualityLow      AudioQuality = "low"
	AudioQualityStandard AudioQuality = "standard"
	AudioQualityHigh     AudioQuality = "high"
)

// Event names on the real-time boundary.
const (
	EventTranslation         = "translation"
	EventPersonalTranslation = "personalTranslation"
	EventProcessingError     = "processingError"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
