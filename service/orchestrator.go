package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"live-translation/constant"
	"live-translation/dto"
	"live-translation/pkg/translate"
	"live-translation/pkg/tts"
)

const (
	defaultTranslateTimeout = 10 * time.Second
	latencyWindowSize       = 100
)

// CycleResult describes one fully resolved translation cycle. Every call to
// ProcessAudioChunk returns one, success or not; no error ever escapes the
// cycle.
type CycleResult struct {
	Success         bool
	SessionID       string
	Error           string
	OriginalText    string
	Translations    []DualOutput
	FailedLanguages []string
	ProcessingTime  time.Duration
	WorshippersSent int
}

// MetricsSnapshot is the orchestrator's process-wide counters plus the
// rolling latency window average.
type MetricsSnapshot struct {
	TotalTranslations int64
	TotalErrors       int64
	AvgCycleMs        float64
	WindowSize        int
}

type pipelineMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
	total     int64
	errors    int64
}

func (m *pipelineMetrics) record(d time.Duration, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.errors += int64(failed)
	m.latencies = append(m.latencies, d)
	if len(m.latencies) > latencyWindowSize {
		m.latencies = m.latencies[len(m.latencies)-latencyWindowSize:]
	}
}

func (m *pipelineMetrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		TotalTranslations: m.total,
		TotalErrors:       m.errors,
		WindowSize:        len(m.latencies),
	}
	if len(m.latencies) > 0 {
		var sum time.Duration
		for _, d := range m.latencies {
			sum += d
		}
		snap.AvgCycleMs = float64(sum.Milliseconds()) / float64(len(m.latencies))
	}
	return snap
}

// Orchestrator executes one end-to-end translation cycle per inbound audio
// chunk: transcribe, fan out across the distinct requested languages,
// generate dual outputs, persist, broadcast. Per-language failures are
// isolated; only validation and transcription failures abort a cycle.
type Orchestrator struct {
	sessions         *SessionManager
	audio            *AudioProcessor
	translator       translate.Translator
	generator        *DualOutputGenerator
	broadcaster      Broadcaster
	store            AudioStore
	translateTimeout time.Duration
	metrics          pipelineMetrics
}

func NewOrchestrator(
	sessions *SessionManager,
	audio *AudioProcessor,
	translator translate.Translator,
	generator *DualOutputGenerator,
	broadcaster Broadcaster,
	store AudioStore,
	translateTimeout time.Duration,
) *Orchestrator {
	if translateTimeout <= 0 {
		translateTimeout = defaultTranslateTimeout
	}
	return &Orchestrator{
		sessions:         sessions,
		audio:            audio,
		translator:       translator,
		generator:        generator,
		broadcaster:      broadcaster,
		store:            store,
		translateTimeout: translateTimeout,
	}
}

// Metrics returns the rolling latency and cumulative counters.
func (o *Orchestrator) Metrics() MetricsSnapshot {
	return o.metrics.snapshot()
}

// ProcessAudioChunk runs one cycle. The session must exist and be live; a
// pending session goes active on its first chunk (translation has begun).
func (o *Orchestrator) ProcessAudioChunk(ctx context.Context, sessionID string, audio []byte) CycleResult {
	started := time.Now()
	logger := zerolog.Ctx(ctx)

	snap := o.sessions.PipelineSnapshot(sessionID)
	if snap == nil {
		return o.abort(started, CycleResult{SessionID: sessionID, Error: ErrSessionNotFound.Error()})
	}
	if snap.Status == constant.SessionStatusEnded {
		o.notifySpeaker(snap, ErrSessionEnded.Error())
		return o.abort(started, CycleResult{SessionID: sessionID, Error: ErrSessionEnded.Error()})
	}
	if snap.Status == constant.SessionStatusPending {
		if err := o.sessions.UpdateSessionStatus(ctx, sessionID, constant.SessionStatusActive); err != nil {
			o.notifySpeaker(snap, err.Error())
			return o.abort(started, CycleResult{SessionID: sessionID, Error: err.Error()})
		}
	}

	transcript := o.audio.TranscribeAudio(ctx, audio, snap.SourceLanguage)
	if !transcript.Success {
		o.sessions.IncrementError(ctx, sessionID, constant.ErrorCategoryTranscription)
		o.notifySpeaker(snap, transcript.Error)
		logger.Warn().Str("session_id", sessionID).Str("error", transcript.Error).Msg("transcription failed, cycle aborted")
		return o.abort(started, CycleResult{SessionID: sessionID, Error: transcript.Error})
	}

	// Fan-out work is O(distinct languages), never O(worshippers).
	languages := o.sessions.DistinctLanguages(sessionID)
	outputs := o.fanOut(ctx, snap, transcript.Text, languages)

	var failedLanguages []string
	for _, out := range outputs {
		if out.Failed {
			failedLanguages = append(failedLanguages, out.Language)
		}
	}

	timestamp := time.Now().UTC()
	recordID := uuid.New()
	o.storeAudio(ctx, sessionID, recordID.String(), outputs)

	record := dto.TranslationRecord{
		ID:                      recordID,
		OriginalText:            transcript.Text,
		SourceLanguage:          snap.SourceLanguage,
		Timestamp:               timestamp,
		ProcessingTimeMs:        time.Since(started).Milliseconds(),
		TranscriptionConfidence: transcript.Confidence,
		Translations:            toLanguageOutputs(outputs),
	}
	if err := o.sessions.AddTranslation(ctx, sessionID, record); err != nil {
		// a session ended mid-cycle keeps its broadcast but loses the append
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("history append rejected, broadcasting anyway")
	}

	sent := o.broadcast(sessionID, snap, transcript, outputs, timestamp, time.Since(started))

	duration := time.Since(started)
	o.metrics.record(duration, len(failedLanguages))
	logger.Info().
		Str("session_id", sessionID).
		Int("languages", len(outputs)).
		Int("failed_languages", len(failedLanguages)).
		Int("personal_events", sent).
		Dur("duration", duration).
		Msg("translation cycle completed")

	return CycleResult{
		Success:         true,
		SessionID:       sessionID,
		OriginalText:    transcript.Text,
		Translations:    outputs,
		FailedLanguages: failedLanguages,
		ProcessingTime:  duration,
		WorshippersSent: sent,
	}
}

// fanOut runs one goroutine per distinct language. Results come back in the
// (sorted) order of the input set, so serialization is deterministic.
func (o *Orchestrator) fanOut(ctx context.Context, snap *PipelineView, text string, languages []string) []DualOutput {
	outputs := make([]DualOutput, len(languages))
	var wg sync.WaitGroup
	for i, language := range languages {
		wg.Add(1)
		go func(i int, language string) {
			defer wg.Done()
			outputs[i] = o.processLanguage(ctx, snap, text, language)
		}(i, language)
	}
	wg.Wait()
	return outputs
}

// processLanguage produces the dual output for a single target language.
// Its failures stay inside the returned value.
func (o *Orchestrator) processLanguage(ctx context.Context, snap *PipelineView, text, language string) DualOutput {
	opts := tts.Options{Quality: string(snap.AudioQuality)}

	// same language as the speaker: pass the transcript through unchanged
	if language == snap.SourceLanguage {
		out := o.generator.Generate(ctx, text, language, opts)
		out.Skipped = true
		if out.Error != "" {
			o.sessions.IncrementError(ctx, snap.ID, constant.ErrorCategoryAudioGeneration)
		}
		return out
	}

	tctx, cancel := context.WithTimeout(ctx, o.translateTimeout)
	translated, err := o.translator.Translate(tctx, text, snap.SourceLanguage, language)
	cancel()
	if err != nil {
		o.sessions.IncrementError(ctx, snap.ID, constant.ErrorCategoryTranslation)
		return DualOutput{
			Language:    language,
			Text:        FormatTextOutput(text, language),
			Failed:      true,
			Error:       err.Error(),
			GeneratedAt: time.Now().UTC(),
		}
	}

	out := o.generator.Generate(ctx, translated.Text, language, opts)
	out.Confidence = translated.Confidence
	if out.Error != "" {
		o.sessions.IncrementError(ctx, snap.ID, constant.ErrorCategoryAudioGeneration)
	}
	return out
}

// storeAudio uploads synthesized payloads and fills in AudioReference.
// Upload failures cost the reference only.
func (o *Orchestrator) storeAudio(ctx context.Context, sessionID, recordID string, outputs []DualOutput) {
	if o.store == nil {
		return
	}
	for i := range outputs {
		if len(outputs[i].Audio) == 0 {
			continue
		}
		objectName := fmt.Sprintf("sessions/%s/%s/%s%s", sessionID, recordID, outputs[i].Language, audioExtension(outputs[i].MimeType))
		ref, err := o.store.PutAudio(ctx, objectName, outputs[i].Audio, outputs[i].MimeType)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Str("object", objectName).Msg("audio upload failed")
			continue
		}
		outputs[i].AudioReference = ref
	}
}

// broadcast emits the room-wide event plus one personal event per live
// roster entry carrying only that worshipper's language. The roster is read
// fresh here: whoever disconnected mid-cycle simply misses the unicast.
func (o *Orchestrator) broadcast(sessionID string, snap *PipelineView, transcript TranscriptionResult, outputs []DualOutput, timestamp time.Time, elapsed time.Duration) int {
	original := dto.OriginalText{
		Text:         transcript.Text,
		Language:     snap.SourceLanguage,
		LanguageName: snap.SourceLanguageName,
	}

	entries := make([]dto.TranslationEntry, len(outputs))
	byLanguage := make(map[string]dto.TranslationEntry, len(outputs))
	for i, out := range outputs {
		entries[i] = toTranslationEntry(out)
		byLanguage[out.Language] = entries[i]
	}

	o.broadcaster.BroadcastTranslation(sessionID, dto.TranslationEvent{
		Event:                   constant.EventTranslation,
		SessionID:               sessionID,
		Original:                original,
		Translations:            entries,
		Timestamp:               timestamp,
		TranscriptionConfidence: transcript.Confidence,
		TotalProcessingTimeMs:   elapsed.Milliseconds(),
	})

	sent := 0
	for _, w := range o.sessions.GetActiveWorshippers(sessionID) {
		entry, ok := byLanguage[w.TargetLanguage]
		if !ok {
			// joined with a new language mid-cycle; they catch the next one
			continue
		}
		o.broadcaster.SendPersonalTranslation(w.ConnectionID, dto.PersonalTranslationEvent{
			Event:       constant.EventPersonalTranslation,
			SessionID:   sessionID,
			Original:    original,
			Translation: entry,
			Timestamp:   timestamp,
		})
		sent++
	}
	return sent
}

func (o *Orchestrator) notifySpeaker(snap *PipelineView, message string) {
	o.broadcaster.SendProcessingError(snap.ImamConnectionID, dto.ProcessingErrorEvent{
		Event:     constant.EventProcessingError,
		SessionID: snap.ID,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) abort(started time.Time, result CycleResult) CycleResult {
	result.ProcessingTime = time.Since(started)
	o.metrics.record(result.ProcessingTime, 1)
	return result
}

func toLanguageOutputs(outputs []DualOutput) []dto.LanguageOutput {
	records := make([]dto.LanguageOutput, len(outputs))
	for i, out := range outputs {
		generatedAt := out.GeneratedAt
		records[i] = dto.LanguageOutput{
			Language:       out.Language,
			Text:           out.Text,
			AudioReference: out.AudioReference,
			Confidence:     out.Confidence,
			Skipped:        out.Skipped,
			Failed:         out.Failed,
			GeneratedAt:    &generatedAt,
		}
	}
	return records
}

func toTranslationEntry(out DualOutput) dto.TranslationEntry {
	entry := dto.TranslationEntry{
		Language:   out.Language,
		Text:       out.Text,
		Confidence: out.Confidence,
		Skipped:    out.Skipped,
		Error:      out.Error,
	}
	if out.Failed && entry.Error == "" {
		entry.Error = "translation failed"
	}
	if len(out.Audio) > 0 {
		entry.AudioBase64 = base64.StdEncoding.EncodeToString(out.Audio)
	}
	return entry
}

func audioExtension(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
