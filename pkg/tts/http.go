package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultSidecarURL     = "http://localhost:8388"
	defaultSidecarTimeout = 15 * time.Second
)

// SidecarConfig holds configuration for the TTS HTTP sidecar.
type SidecarConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Sidecar implements Synthesizer against an HTTP synthesis sidecar.
type Sidecar struct {
	cfg    SidecarConfig
	client *http.Client
}

func NewSidecar(cfg SidecarConfig) *Sidecar {
	if cfg.URL == "" {
		cfg.URL = defaultSidecarURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSidecarTimeout
	}
	return &Sidecar{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type sidecarRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// Synthesize posts the text and returns the raw audio body. The sidecar
// reports the encoding via Content-Type.
func (s *Sidecar) Synthesize(ctx context.Context, text, language string, opts Options) (*Audio, error) {
	payload, err := json.Marshal(sidecarRequest{
		Text:     text,
		Language: language,
		Voice:    opts.Voice,
		Quality:  opts.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts error (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	return &Audio{Data: data, MimeType: mimeType}, nil
}
