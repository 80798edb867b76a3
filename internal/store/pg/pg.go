// Package pg implementa los repositorios durables sobre PostgreSQL.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/feedcore/internal/store"
)

// Store agrupa los repositorios sobre un pool compartido.
type Store struct {
	Pool  *pgxpool.Pool
	Posts store.PostRepository
	Users store.UserRepository
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &Store{
		Pool:  pool,
		Posts: &postRepo{pool: pool},
		Users: &userRepo{pool: pool},
	}, nil
}

// Close libera el pool.
func (s *Store) Close() { s.Pool.Close() }
