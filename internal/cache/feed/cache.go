// Package feedcache implementa el Cache Store del feed: field-maps por
// entidad más un índice ordenado (sorted set) por namespace.
//
// Esquema de keys:
//
//	posts            → sorted set de ids de post, score = rank del owner
//	posts:<id>       → hash campo→valor del post
//	users            → sorted set de ids de usuario, score = uId
//	users:<id>       → hash campo→valor del perfil (campo postsCount incluido)
//	comments:<id>    → sub-records que se borran junto al post
//	reactions:<id>   → ídem
//
// Invariante: todo id presente en el índice de un namespace tiene su hash
// correspondiente y viceversa; cada mutación aplica record, índice y
// contador del owner en un solo batch atómico.
//
// Hay dos backends detrás de las mismas interfaces: Redis (producción) y
// memoria (desarrollo y tests), con semántica idéntica.
package feedcache

import (
	"context"

	"github.com/dropDatabas3/feedcore/internal/domain"
)

const (
	keyPostIndex = "posts"
	keyUserIndex = "users"

	fieldPostsCount = "postsCount"
)

func keyPost(id string) string      { return "posts:" + id }
func keyUser(id string) string      { return "users:" + id }
func keyComments(id string) string  { return "comments:" + id }
func keyReactions(id string) string { return "reactions:" + id }

// FeedCache define las operaciones del cache de posts.
//
// Los errores de conectividad llegan como cache.ErrUnavailable; un miss
// puntual de Post es cache.ErrNotFound. Las lecturas por rango retornan
// posts en orden de rank descendente.
type FeedCache interface {
	// SavePost escribe el field-map, inserta (rank, id) en el índice e
	// incrementa postsCount del owner, todo en un batch atómico.
	SavePost(ctx context.Context, p domain.Post, rank int, ownerID string) error

	// PostRange retorna hasta end-start+1 posts por rank descendente.
	PostRange(ctx context.Context, start, end int) ([]domain.Post, error)

	// PostRangeWithMedia es PostRange filtrado post-decode por HasMedia.
	PostRangeWithMedia(ctx context.Context, start, end int) ([]domain.Post, error)

	// PostsByOwnerRank retorna los posts cuyo score es exactamente rank.
	PostsByOwnerRank(ctx context.Context, rank int) ([]domain.Post, error)

	// Count retorna la cardinalidad del índice de posts.
	Count(ctx context.Context) (int, error)

	// CountByOwnerRank cuenta los posts con score igual a rank.
	CountByOwnerRank(ctx context.Context, rank int) (int, error)

	// DeletePost remueve id del índice, borra el hash y los sub-records
	// (comments, reactions) y decrementa postsCount del owner, en un
	// batch atómico.
	DeletePost(ctx context.Context, id, ownerID string) error

	// Post retorna un post puntual o cache.ErrNotFound.
	Post(ctx context.Context, id string) (domain.Post, error)
}

// ProfileCache define las operaciones del cache de perfiles.
type ProfileCache interface {
	// SaveUser escribe el perfil y lo indexa por su uId.
	SaveUser(ctx context.Context, u domain.User) error

	// User retorna un perfil puntual o cache.ErrNotFound.
	User(ctx context.Context, id string) (domain.User, error)
}
