package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler procesa un mensaje ya leído del broker.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}

// ConsumerAdapter lee de Kafka y confirma el offset sólo tras procesar el mensaje.
type ConsumerAdapter struct {
	reader  *kafka.Reader
	handler MessageHandler
	log     *zap.Logger
	backoff time.Duration
}

func NewConsumerAdapter(reader *kafka.Reader, handler MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{
		reader:  reader,
		handler: handler,
		log:     log,
		backoff: time.Second,
	}
}

// Start lanza el bucle de consumo en una goroutine; termina al cancelar ctx.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	cfg := c.reader.Config()
	c.log.Info("🎧 Iniciando consumidor de Kafka",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)

	go func() {
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("Consumidor de Kafka detenido", zap.String("topic", cfg.Topic))
					return
				}
				c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					return
				}
				continue
			}

			c.handler.HandleMessage(ctx, string(msg.Key), msg.Value)

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.log.Warn("No se pudo confirmar el offset",
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}()
}
