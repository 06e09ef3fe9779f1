// Package translate defines the text translation capability and its concrete
// backends. Exactly one backend is selected at startup via configuration.
package translate

import (
	"context"
	"fmt"
	"time"
)

// Result holds the outcome of a translation call for one target language.
type Result struct {
	// Text is the translated text.
	Text string `json:"text"`
	// Confidence is the backend's confidence in [0,1], 0 if unknown.
	Confidence float64 `json:"confidence,omitempty"`
}

// Translator translates text from a source language into a target language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error)
}

// Config selects and configures the translation backend.
type Config struct {
	// Provider is the backend name. Supported: "lambda".
	Provider string `json:"provider" yaml:"provider"`
	// FunctionPrefix is the Lambda function name prefix; the function invoked
	// is "<prefix>-<source>-<target>".
	FunctionPrefix string `json:"function_prefix" yaml:"function_prefix"`
	// Timeout bounds a single translation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// New builds the configured Translator. Unknown providers are a startup
// error, never a runtime fallback.
func New(ctx context.Context, cfg Config) (Translator, error) {
	switch cfg.Provider {
	case "lambda":
		return NewLambda(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}
