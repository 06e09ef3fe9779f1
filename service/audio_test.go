package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTranscribeAudio(t *testing.T) {
	ctx := context.Background()

	t.Run("empty chunk", func(t *testing.T) {
		p := NewAudioProcessor(&fakeTranscriber{text: "ignored"}, time.Second)
		result := p.TranscribeAudio(ctx, nil, "ar")
		if result.Success || result.Error == "" {
			t.Errorf("expected failure for empty chunk, got %+v", result)
		}
	})

	t.Run("backend error", func(t *testing.T) {
		p := NewAudioProcessor(&fakeTranscriber{err: errors.New("boom")}, time.Second)
		result := p.TranscribeAudio(ctx, []byte("chunk"), "ar")
		if result.Success || result.Error != "boom" {
			t.Errorf("expected backend error, got %+v", result)
		}
	})

	t.Run("blank transcript", func(t *testing.T) {
		p := NewAudioProcessor(&fakeTranscriber{text: "  \n "}, time.Second)
		result := p.TranscribeAudio(ctx, []byte("chunk"), "ar")
		if result.Success {
			t.Errorf("expected failure for blank transcript, got %+v", result)
		}
	})

	t.Run("trims transcript", func(t *testing.T) {
		p := NewAudioProcessor(&fakeTranscriber{text: " السلام عليكم \n"}, time.Second)
		result := p.TranscribeAudio(ctx, []byte("chunk"), "ar")
		if !result.Success || result.Text != "السلام عليكم" {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.Confidence != 0.95 {
			t.Errorf("Confidence = %f, want 0.95", result.Confidence)
		}
	})
}
