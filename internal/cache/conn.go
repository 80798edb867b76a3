// Package cache maneja la conexión compartida a Redis y los tipos de error
// del cache estructurado.
//
// La conexión es un recurso compartido de apertura perezosa: cualquier
// caller puede gatillar el connect via Ensure, y singleflight garantiza un
// solo dial aunque haya callers concurrentes.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const dialTimeout = 5 * time.Second

// Config configuración de la conexión Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Conn administra el cliente Redis compartido con reconexión perezosa.
type Conn struct {
	cfg Config
	log *zap.Logger

	mu     sync.RWMutex
	client *redis.Client
	sf     singleflight.Group
}

// NewConn crea el manager sin abrir la conexión todavía.
func NewConn(cfg Config, log *zap.Logger) *Conn {
	return &Conn{cfg: cfg, log: log}
}

// Ensure retorna el cliente conectado, abriendo la conexión si hace falta.
// Es idempotente y seguro para callers concurrentes: el dial corre una
// sola vez por singleflight y el resto espera el resultado.
func (c *Conn) Ensure(ctx context.Context) (*redis.Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	v, err, _ := c.sf.Do("connect", func() (any, error) {
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     c.cfg.Addr,
			Password: c.cfg.Password,
			DB:       c.cfg.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, Unavailable("connect", err)
		}

		c.mu.Lock()
		c.client = rdb
		c.mu.Unlock()
		c.log.Info("redis connected", zap.String("addr", c.cfg.Addr))
		return rdb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*redis.Client), nil
}

// Close cierra la conexión si está abierta.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
