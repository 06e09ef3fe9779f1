package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"live-translation/pkg/tts"
)

const defaultSynthesisTimeout = 15 * time.Second

// DualOutput is the combined text + optional speech result for one target
// language. It is built per cycle and consumed immediately for broadcast and
// history; it is never stored on its own.
type DualOutput struct {
	Language       string
	Text           string
	Audio          []byte
	MimeType       string
	AudioReference string
	Confidence     float64
	Skipped        bool
	Failed         bool
	Error          string
	GeneratedAt    time.Time
}

// CacheStats reports the synthesis cache counters.
type CacheStats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

type synthCacheKey struct {
	text     string
	language string
	opts     tts.Options
}

// DualOutputGenerator maps (text, language) to a display + audio payload.
// Text formatting always succeeds; synthesis is best-effort and cached, so
// repeated liturgical phrases cost one synthesis call per session run.
type DualOutputGenerator struct {
	synth   tts.Synthesizer
	timeout time.Duration

	mu     sync.Mutex
	cache  map[synthCacheKey]*tts.Audio
	hits   uint64
	misses uint64
}

func NewDualOutputGenerator(synth tts.Synthesizer, timeout time.Duration) *DualOutputGenerator {
	if timeout <= 0 {
		timeout = defaultSynthesisTimeout
	}
	return &DualOutputGenerator{
		synth:   synth,
		timeout: timeout,
		cache:   make(map[synthCacheKey]*tts.Audio),
	}
}

// FormatTextOutput is the pure display formatting used by both the happy
// path and every fallback path: trimmed, inner whitespace collapsed.
func FormatTextOutput(text, language string) string {
	fields := strings.Fields(text)
	_ = language
	return strings.Join(fields, " ")
}

// Generate produces the dual output for one language. Synthesis failure
// degrades to text-only with the error recorded; callers must treat a nil
// audio payload as text-only, not as a pipeline failure.
func (g *DualOutputGenerator) Generate(ctx context.Context, text, language string, opts tts.Options) DualOutput {
	out := DualOutput{
		Language:    language,
		Text:        FormatTextOutput(text, language),
		GeneratedAt: time.Now().UTC(),
	}
	if out.Text == "" {
		return out
	}

	audio, err := g.synthesize(ctx, out.Text, language, opts)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Audio = audio.Data
	out.MimeType = audio.MimeType
	return out
}

func (g *DualOutputGenerator) synthesize(ctx context.Context, text, language string, opts tts.Options) (*tts.Audio, error) {
	key := synthCacheKey{text: text, language: language, opts: opts}

	g.mu.Lock()
	if cached, ok := g.cache[key]; ok {
		g.hits++
		g.mu.Unlock()
		return cached, nil
	}
	g.misses++
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	audio, err := g.synth.Synthesize(ctx, text, language, opts)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[key] = audio
	g.mu.Unlock()
	return audio, nil
}

// CacheStats returns the current cache size and hit/miss counters.
func (g *DualOutputGenerator) CacheStats() CacheStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return CacheStats{
		Size:   len(g.cache),
		Hits:   g.hits,
		Misses: g.misses,
	}
}
