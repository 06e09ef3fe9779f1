package service

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"live-translation/dto"
	"live-translation/pkg/sse"
)

// Broadcaster is the outbound real-time boundary the orchestrator emits
// through: one room-wide event per cycle plus per-connection unicasts.
type Broadcaster interface {
	BroadcastTranslation(sessionID string, event dto.TranslationEvent)
	SendPersonalTranslation(connectionID string, event dto.PersonalTranslationEvent)
	SendProcessingError(connectionID string, event dto.ProcessingErrorEvent)
}

// SSEBroadcaster routes pipeline events through the SSE hub.
type SSEBroadcaster struct {
	hub *sse.Hub
}

func NewSSEBroadcaster(hub *sse.Hub) *SSEBroadcaster {
	return &SSEBroadcaster{hub: hub}
}

func (b *SSEBroadcaster) BroadcastTranslation(sessionID string, event dto.TranslationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to encode translation event")
		return
	}
	b.hub.BroadcastToSession(sessionID, data)
}

func (b *SSEBroadcaster) SendPersonalTranslation(connectionID string, event dto.PersonalTranslationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", connectionID).Msg("failed to encode personal translation event")
		return
	}
	b.hub.SendToConnection(connectionID, data)
}

func (b *SSEBroadcaster) SendProcessingError(connectionID string, event dto.ProcessingErrorEvent) {
	if connectionID == "" {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", connectionID).Msg("failed to encode processing error event")
		return
	}
	b.hub.SendToConnection(connectionID, data)
}
