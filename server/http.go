package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"live-translation/config"
	"live-translation/constant"
	"live-translation/handler"
	"live-translation/pkg/rabbitmq"
	"live-translation/pkg/speech"
	"live-translation/pkg/sse"
	"live-translation/pkg/translate"
	"live-translation/pkg/tts"
	"live-translation/repository"
	"live-translation/service"
)

var audioChunkTopology = rabbitmq.Topology{
	Exchange:      "live_translation_exchange",
	Queue:         "audio_chunk_queue",
	RoutingKey:    "audio.chunk.submitted",
	DLX:           "live_translation_exchange_dlx",
	DLQ:           "audio_chunk_queue_dlq",
	DLQRoutingKey: "dlq.audio.chunk.submitted",
}

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	translator, err := translate.New(ctx, translate.Config{
		Provider:       cfg.Providers.Translator,
		FunctionPrefix: cfg.Providers.TranslatorPrefix,
		Timeout:        cfg.Providers.TranslateTimeout,
	})
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to build translator")
	}

	repo := repository.NewRepo(cfg.DB)
	hub := sse.NewHub()
	defer hub.Close()

	sessions := service.NewSessionManager(repo, cfg.Session)
	audio := service.NewAudioProcessor(speech.NewWhisper(speech.WhisperConfig{
		URL:     cfg.Providers.WhisperURL,
		Model:   cfg.Providers.WhisperModel,
		Timeout: cfg.Providers.TranscribeTimout,
	}), cfg.Providers.TranscribeTimout)
	generator := service.NewDualOutputGenerator(tts.NewSidecar(tts.SidecarConfig{
		URL:     cfg.Providers.TTSURL,
		Timeout: cfg.Providers.TTSTimeout,
	}), cfg.Providers.TTSTimeout)
	store := service.NewMinioAudioStore(cfg.Storage, cfg.MinIOBucket)
	orchestrator := service.NewOrchestrator(
		sessions,
		audio,
		translator,
		generator,
		service.NewSSEBroadcaster(hub),
		store,
		cfg.Providers.TranslateTimeout,
	)

	serviceDeps := handler.ServiceDependencies{
		Orchestrator: orchestrator,
	}

	// Start the audio chunk consumer
	audioConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, audioChunkTopology, cfg.Server.Workers, handler.AudioChunkHandler)
	go func() {
		err := audioConsumer.Consume(ctx, serviceDeps)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Audio chunk consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	handler.NewHTTP(sessions, orchestrator, hub).Register(r.Group("/api"))

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
