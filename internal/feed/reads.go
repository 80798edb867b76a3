package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/metrics"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// PageSize es el tamaño fijo de página del feed.
const PageSize = 10

// FeedPage es el resultado de una lectura paginada.
type FeedPage struct {
	Posts []domain.Post `json:"posts"`
	Total int           `json:"totalPosts"`
}

// pageRange traduce una página 1-based al rango del cache y al skip/limit
// durable. El start del cache es skip+1 salvo en la primera página: el
// elemento de borde ya se mostró en la página anterior y no se repite.
func pageRange(page int) (skip, limit, start int) {
	if page < 1 {
		page = 1
	}
	skip = (page - 1) * PageSize
	limit = PageSize * page
	start = skip
	if skip != 0 {
		start = skip + 1
	}
	return skip, limit, start
}

// Posts retorna una página del feed completo. Cache primero: con
// resultado no vacío, datos y total salen ambos del cache; si está vacío
// o caído, ambos salen del store durable. Nunca un merge parcial.
func (s *Service) Posts(ctx context.Context, page int) (FeedPage, error) {
	skip, limit, start := pageRange(page)

	posts, err := s.cache.PostRange(ctx, start, limit)
	if err == nil && len(posts) > 0 {
		if total, cerr := s.cache.Count(ctx); cerr == nil {
			return FeedPage{Posts: posts, Total: total}, nil
		}
	}
	if err != nil {
		s.log.Warn("cache read failed, falling back", zap.Error(err))
	}

	return s.durablePage(ctx, store.Filter{}, skip, limit)
}

// PostsWithMedia retorna una página del feed filtrado por media, con el
// mismo contrato de fallback que Posts.
func (s *Service) PostsWithMedia(ctx context.Context, page int) (FeedPage, error) {
	skip, limit, start := pageRange(page)

	posts, err := s.cache.PostRangeWithMedia(ctx, start, limit)
	if err == nil && len(posts) > 0 {
		if total, cerr := s.cache.Count(ctx); cerr == nil {
			return FeedPage{Posts: posts, Total: total}, nil
		}
	}
	if err != nil {
		s.log.Warn("cache read failed, falling back", zap.Error(err))
	}

	return s.durablePage(ctx, store.Filter{WithMedia: true}, skip, limit)
}

func (s *Service) durablePage(ctx context.Context, f store.Filter, skip, limit int) (FeedPage, error) {
	metrics.CacheFallbacks.Inc()

	posts, err := s.posts.Query(ctx, f, skip, limit)
	if err != nil {
		return FeedPage{}, ErrUnavailable
	}
	total, err := s.posts.Count(ctx, f)
	if err != nil {
		return FeedPage{}, ErrUnavailable
	}
	return FeedPage{Posts: posts, Total: total}, nil
}

// UserPosts retorna los posts de un owner por su rank numérico. Es una
// consulta cache-only: sin datos en cache retorna página vacía.
func (s *Service) UserPosts(ctx context.Context, ownerRank int) (FeedPage, error) {
	posts, err := s.cache.PostsByOwnerRank(ctx, ownerRank)
	if err != nil {
		s.log.Warn("cache read failed", zap.Int("rank", ownerRank), zap.Error(err))
		return FeedPage{}, nil
	}
	total, err := s.cache.CountByOwnerRank(ctx, ownerRank)
	if err != nil {
		total = len(posts)
	}
	return FeedPage{Posts: posts, Total: total}, nil
}

// Profile retorna el perfil desde cache con fallback durable autoritativo.
func (s *Service) Profile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.profiles.User(ctx, userID)
	if err == nil {
		return u, nil
	}
	metrics.CacheFallbacks.Inc()
	return s.users.ByID(ctx, userID)
}
