package handler

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"live-translation/dto"
	"live-translation/service"
)

type fakePipeline struct {
	sessionID string
	audio     []byte
	result    service.CycleResult
}

func (f *fakePipeline) ProcessAudioChunk(ctx context.Context, sessionID string, audio []byte) service.CycleResult {
	f.sessionID = sessionID
	f.audio = audio
	return f.result
}

func TestAudioChunkHandler(t *testing.T) {
	pipeline := &fakePipeline{result: service.CycleResult{Success: true}}
	body, _ := json.Marshal(dto.AudioChunkMessage{
		SessionID: "s1",
		Sequence:  7,
		Audio:     []byte("raw-audio"),
	})

	err := AudioChunkHandler(context.Background(), amqp.Delivery{Body: body}, ServiceDependencies{Orchestrator: pipeline})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if pipeline.sessionID != "s1" {
		t.Errorf("sessionID = %q, want s1", pipeline.sessionID)
	}
	if string(pipeline.audio) != "raw-audio" {
		t.Errorf("audio = %q", pipeline.audio)
	}
}

func TestAudioChunkHandlerFailedCycleIsNotRetried(t *testing.T) {
	pipeline := &fakePipeline{result: service.CycleResult{Error: "session not found"}}
	body, _ := json.Marshal(dto.AudioChunkMessage{SessionID: "gone"})

	// the speaker already got the error event; a redelivery would not help
	if err := AudioChunkHandler(context.Background(), amqp.Delivery{Body: body}, ServiceDependencies{Orchestrator: pipeline}); err != nil {
		t.Fatalf("failed cycle must not trigger a retry, got %v", err)
	}
}

func TestAudioChunkHandlerBadPayload(t *testing.T) {
	pipeline := &fakePipeline{}
	err := AudioChunkHandler(context.Background(), amqp.Delivery{Body: []byte("{not json")}, ServiceDependencies{Orchestrator: pipeline})
	if err == nil {
		t.Fatal("expected error for undecodable payload")
	}
	if pipeline.sessionID != "" {
		t.Error("pipeline must not run for an undecodable payload")
	}
}
