// Package speech defines the speech-to-text capability used by the live
// translation pipeline and its concrete backends.
package speech

import "context"

// Result holds the outcome of a transcription call.
type Result struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Confidence is the backend's confidence in [0,1], 0 if unknown.
	Confidence float64 `json:"confidence,omitempty"`
	// Language is the detected or requested language code.
	Language string `json:"language,omitempty"`
}

// Transcriber converts a raw audio chunk into text for a given source
// language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (*Result, error)
}
