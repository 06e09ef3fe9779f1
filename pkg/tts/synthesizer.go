// Package tts defines the speech synthesis capability used to voice
// translated text per target language.
package tts

import "context"

// Audio is one synthesized speech payload.
type Audio struct {
	// Data is the encoded audio payload.
	Data []byte `json:"data"`
	// MimeType describes the payload encoding (e.g. "audio/mpeg").
	MimeType string `json:"mimeType"`
}

// Options tunes a synthesis call.
type Options struct {
	// Voice is the backend voice identifier, empty for the language default.
	Voice string `json:"voice,omitempty"`
	// Quality selects the synthesis quality tier ("low", "standard", "high").
	Quality string `json:"quality,omitempty"`
}

// Synthesizer converts text in a language into speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string, opts Options) (*Audio, error)
}
