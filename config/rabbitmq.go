package config

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func NewRabbitMQConn(ctx context.Context, cfg *RabbitMQ) (*amqp.Connection, error) {
	connAddr := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)

	operation := func() (*amqp.Connection, error) {
		conn, err := amqp.Dial(connAddr)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to connect to RabbitMQ, retrying")
			return nil, err
		}

		return conn, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	conn, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(5))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("giving up connecting to RabbitMQ")
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Msg("connected to RabbitMQ")
	go func() {
		<-ctx.Done()
		if err := conn.Close(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to close RabbitMQ connection")
			return
		}
		zerolog.Ctx(ctx).Info().Msg("RabbitMQ connection closed")
	}()

	return conn, nil
}
