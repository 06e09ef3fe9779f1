package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 30 * time.Second
)

// WhisperConfig holds configuration for the whisper HTTP sidecar.
type WhisperConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Model   string        `json:"model" yaml:"model"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Whisper implements Transcriber against a faster-whisper HTTP sidecar.
type Whisper struct {
	cfg    WhisperConfig
	client *http.Client
}

func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	return &Whisper{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type whisperResponse struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Transcribe posts the audio chunk as multipart form data and decodes the
// sidecar's JSON response.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, language string) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", w.cfg.Model)
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	return &Result{
		Text:       result.Text,
		Confidence: result.Confidence,
		Language:   result.Language,
	}, nil
}
