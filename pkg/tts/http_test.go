package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSidecarSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("path = %s, want /synthesize", r.URL.Path)
		}
		var req sidecarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "Peace be upon you" || req.Language != "en" || req.Quality != "high" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write([]byte("ogg-bytes"))
	}))
	defer srv.Close()

	sidecar := NewSidecar(SidecarConfig{URL: srv.URL})
	audio, err := sidecar.Synthesize(context.Background(), "Peace be upon you", "en", Options{Quality: "high"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio.Data) != "ogg-bytes" || audio.MimeType != "audio/ogg" {
		t.Errorf("unexpected audio: %q %s", audio.Data, audio.MimeType)
	}
}

func TestSidecarSynthesizeDefaultsMimeType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress the implicit header
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	sidecar := NewSidecar(SidecarConfig{URL: srv.URL})
	audio, err := sidecar.Synthesize(context.Background(), "text", "en", Options{})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if audio.MimeType != "audio/mpeg" {
		t.Errorf("MimeType = %q, want audio/mpeg", audio.MimeType)
	}
}

func TestSidecarSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported language", http.StatusBadRequest)
	}))
	defer srv.Close()

	sidecar := NewSidecar(SidecarConfig{URL: srv.URL})
	if _, err := sidecar.Synthesize(context.Background(), "text", "xx", Options{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
