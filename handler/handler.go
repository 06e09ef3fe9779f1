package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"live-translation/dto"
	"live-translation/service"
)

// AudioPipeline is the orchestrator surface the transport handler needs.
type AudioPipeline interface {
	ProcessAudioChunk(ctx context.Context, sessionID string, audio []byte) service.CycleResult
}

type ServiceDependencies struct {
	Orchestrator AudioPipeline
}

// AudioChunkHandler decodes one inbound audio-chunk event and runs a
// translation cycle. Cycle failures are already surfaced to the speaker by
// the orchestrator; only undecodable messages are worth a retry/DLQ trip.
func AudioChunkHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var chunk dto.AudioChunkMessage
	if err := json.Unmarshal(msg.Body, &chunk); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal audio chunk message")
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("session_id", chunk.SessionID).
		Int64("sequence", chunk.Sequence).
		Int("bytes", len(chunk.Audio)).
		Msg("received audio chunk")

	result := deps.Orchestrator.ProcessAudioChunk(ctx, chunk.SessionID, chunk.Audio)
	if !result.Success {
		zerolog.Ctx(ctx).Warn().
			Str("session_id", chunk.SessionID).
			Int64("sequence", chunk.Sequence).
			Str("error", result.Error).
			Msg("translation cycle did not complete")
	}

	return nil
}
