package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"live-translation/config"
)

// Topology names the exchange/queue wiring a consumer binds to, including the
// dead-letter pair messages land on after exhausting retries.
type Topology struct {
	Exchange      string
	Queue         string
	RoutingKey    string
	DLX           string
	DLQ           string
	DLQRoutingKey string
}

type Consumer[T any] interface {
	Consume(ctx context.Context, dependencies T) error
}

type consumer[T any] struct {
	conn       *amqp.Connection
	cfg        *config.RabbitMQ
	topology   Topology
	handler    func(ctx context.Context, msg amqp.Delivery, dependencies T) error
	numWorkers int
}

func (c consumer[T]) Consume(ctx context.Context, dependencies T) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	t := c.topology

	err = ch.ExchangeDeclare(t.Exchange, c.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", t.Exchange).Msg("failed to declare exchange")
		return err
	}

	err = ch.ExchangeDeclare(t.DLX, c.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", t.DLX).Msg("failed to declare dlx")
		return err
	}

	dlq, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", t.DLQ).Msg("failed to declare dlq")
		return err
	}

	err = ch.QueueBind(dlq.Name, t.DLQRoutingKey, t.DLX, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Msg("failed to bind dlq")
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    t.DLX,
		"x-dead-letter-routing-key": t.DLQRoutingKey,
	}
	q, err := ch.QueueDeclare(t.Queue, true, false, false, false, args)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", t.Queue).Msg("failed to declare queue")
		return err
	}

	err = ch.QueueBind(q.Name, t.RoutingKey, t.Exchange, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", t.Queue).Msg("failed to bind queue")
		return err
	}

	err = ch.Qos(c.numWorkers, 0, false)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", t.Queue).Msg("failed to set QoS")
		return err
	}

	deliveries, err := ch.Consume(t.Queue, "", false, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", t.Queue).Msg("failed to consume queue")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("queue", t.Queue).
		Str("exchange", t.Exchange).
		Str("routing_key", t.RoutingKey).
		Int("workers", c.numWorkers).
		Msg("consumer started")

	jobs := make(chan amqp.Delivery, c.numWorkers)
	var wg sync.WaitGroup
	for i := 1; i <= c.numWorkers; i++ {
		wg.Add(1)
		go func(workerId int) {
			defer wg.Done()
			for msg := range jobs {
				operation := func() (string, error) {
					err := c.handler(ctx, msg, dependencies)
					if err != nil {
						return "", err
					}
					return "", nil
				}

				bo := backoff.NewExponentialBackOff()
				bo.MaxInterval = 10 * time.Second

				_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
				if err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Int("worker_id", workerId).Msg("failed to handle message after all retries")
					if nackErr := msg.Nack(false, false); nackErr != nil {
						zerolog.Ctx(ctx).Error().Err(nackErr).Msg("failed to nack message to send to DLQ")
					}
				} else {
					if ackErr := msg.Ack(false); ackErr != nil {
						zerolog.Ctx(ctx).Error().Err(ackErr).Msg("failed to acknowledge message")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				close(jobs)
				wg.Wait()
				return nil
			}

			jobs <- delivery
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
}

func NewConsumer[T any](
	conn *amqp.Connection,
	cfg *config.RabbitMQ,
	topology Topology,
	numWorkers int,
	handler func(ctx context.Context, msg amqp.Delivery, dependencies T) error,
) Consumer[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &consumer[T]{
		conn:       conn,
		cfg:        cfg,
		topology:   topology,
		handler:    handler,
		numWorkers: numWorkers,
	}
}
