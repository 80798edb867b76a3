package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/cache"
	"github.com/dropDatabas3/feedcore/internal/metrics"
)

// DefaultChannel es el canal pub/sub compartido entre procesos.
const DefaultChannel = "feedcore:events"

// Redis implementa Broadcaster sobre el pub/sub de Redis, de modo que el
// fan-out alcanza a los clientes de todas las instancias del servidor.
type Redis struct {
	conn    *cache.Conn
	channel string
	log     *zap.Logger
}

// NewRedis crea el broadcaster sobre la conexión compartida.
func NewRedis(conn *cache.Conn, channel string, log *zap.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{conn: conn, channel: channel, log: log}
}

func (r *Redis) Publish(ctx context.Context, event string, payload any) error {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broadcast: encode %q: %w", event, err)
	}
	raw, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("broadcast: encode envelope: %w", err)
	}

	if err := rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		return cache.Unavailable("publish "+event, err)
	}
	metrics.BroadcastsPublished.WithLabelValues(event).Inc()
	return nil
}

// Subscribe entrega los eventos del canal en orden de llegada hasta que
// el contexto se cancele. Es la alimentación de la capa de sockets.
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	sub := rdb.Subscribe(ctx, r.channel)
	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.log.Warn("broadcast: bad envelope", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
