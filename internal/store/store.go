// Package store define los contratos del sistema de registro durable.
//
// Las interfaces son contratos de negocio independientes del motor; la
// implementación concreta vive en internal/store/pg. El store durable es
// la fuente autoritativa cuando el cache está frío o el backlog de jobs
// todavía no drenó.
package store

import (
	"context"
	"errors"

	"github.com/dropDatabas3/feedcore/internal/domain"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indica una violación de unicidad inesperada. Los jobs
	// son upserts idempotentes así que no debería ocurrir en flujo
	// normal, pero se superficie en vez de tragarse.
	ErrConflict = errors.New("store: conflict")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Filter acota una consulta de posts. El zero value no filtra.
type Filter struct {
	// WithMedia limita a posts con imagen subida o media externa,
	// el mismo predicado del fallback de cache.
	WithMedia bool
}

// PostRepository es el contrato durable de posts.
//
// Create y Delete son idempotentes por id: la cola entrega at-least-once
// y un handler puede correr dos veces con el mismo payload.
type PostRepository interface {
	// Create inserta el post (upsert por id) e incrementa el contador
	// durable del owner solo si el insert efectivamente insertó.
	Create(ctx context.Context, p domain.Post, ownerID string) error

	// Delete borra el post y decrementa el contador del owner, también
	// guardado contra ejecuciones repetidas.
	Delete(ctx context.Context, id, ownerID string) error

	// Query retorna posts filtrados ordenados por created_at descendente,
	// compatible con el orden por rank del cache.
	Query(ctx context.Context, f Filter, skip, limit int) ([]domain.Post, error)

	// Count retorna el total de posts que matchean el filtro.
	Count(ctx context.Context, f Filter) (int, error)
}

// UserRepository es el contrato durable de perfiles.
type UserRepository interface {
	// Create inserta el perfil (upsert por id, idempotente).
	Create(ctx context.Context, u domain.User) error

	// ByID retorna un perfil o ErrNotFound.
	ByID(ctx context.Context, id string) (domain.User, error)
}
