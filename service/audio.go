package service

import (
	"context"
	"strings"
	"time"

	"live-translation/pkg/speech"
)

const defaultTranscribeTimeout = 20 * time.Second

// TranscriptionResult is the uniform outcome of an audio processing call.
// The adapter never returns a Go error; failures are carried in the result
// so the orchestrator's error path stays uniform.
type TranscriptionResult struct {
	Success    bool
	Text       string
	Confidence float64
	Error      string
}

// AudioProcessor adapts a speech.Transcriber to the pipeline's structured
// result contract.
type AudioProcessor struct {
	transcriber speech.Transcriber
	timeout     time.Duration
}

func NewAudioProcessor(transcriber speech.Transcriber, timeout time.Duration) *AudioProcessor {
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	return &AudioProcessor{
		transcriber: transcriber,
		timeout:     timeout,
	}
}

// TranscribeAudio converts one raw audio chunk into text for the session's
// source language. Empty transcripts are reported as failures so upstream
// can abort the cycle without broadcasting.
func (p *AudioProcessor) TranscribeAudio(ctx context.Context, audio []byte, sourceLanguage string) TranscriptionResult {
	if len(audio) == 0 {
		return TranscriptionResult{Error: "empty audio chunk"}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.transcriber.Transcribe(ctx, audio, sourceLanguage)
	if err != nil {
		return TranscriptionResult{Error: err.Error()}
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return TranscriptionResult{Error: "empty transcript"}
	}
	return TranscriptionResult{
		Success:    true,
		Text:       text,
		Confidence: result.Confidence,
	}
}
