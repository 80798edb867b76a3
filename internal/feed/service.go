// Package feed es el orquestador del sistema: secuencia broadcast, cache
// y cola durable en un orden fijo por mutación y es dueño del contrato de
// consistencia.
//
// Flujo de una mutación: broadcast emitido de inmediato → cache escrito
// síncrono → job durable encolado → (async) worker persiste en Postgres.
// Lecturas: cache primero; con resultado vacío o cache caído, el store
// durable es autoritativo para esa llamada (sin merge parcial).
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/broadcast"
	feedcache "github.com/dropDatabas3/feedcore/internal/cache/feed"
	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/metrics"
	"github.com/dropDatabas3/feedcore/internal/queue"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// Nombres de job ruteados a handlers registrados.
const (
	JobAddPost    = "addPostToDB"
	JobDeletePost = "deletePostFromDB"
	JobAddUser    = "addUserToDB"
)

// ErrUnavailable es la única falla externamente visible de una mutación:
// cache Y encolado fallaron. El caller debe reintentar.
var ErrUnavailable = errors.New("service unavailable, retry")

// Enqueuer es la capacidad de encolado que consume el orquestador.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, p queue.Payload) error
}

// Service orquesta las operaciones del feed. Todas las dependencias se
// inyectan en la construcción; no hay estado global.
type Service struct {
	cache    feedcache.FeedCache
	profiles feedcache.ProfileCache
	posts    store.PostRepository
	users    store.UserRepository
	jobs     Enqueuer
	events   broadcast.Broadcaster
	log      *zap.Logger
}

// New construye el orquestador.
func New(
	cache feedcache.FeedCache,
	profiles feedcache.ProfileCache,
	posts store.PostRepository,
	users store.UserRepository,
	jobs Enqueuer,
	events broadcast.Broadcaster,
	log *zap.Logger,
) *Service {
	return &Service{
		cache:    cache,
		profiles: profiles,
		posts:    posts,
		users:    users,
		jobs:     jobs,
		events:   events,
		log:      log,
	}
}

// CreatePost valida, asigna id y rank, y ejecuta la secuencia fija
// broadcast → cache → encolado. La mutación tiene éxito si el cache o el
// encolado tuvieron éxito: el job es la fuente de durabilidad y el cache
// es best-effort.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (domain.Post, error) {
	if err := in.Validate(); err != nil {
		return domain.Post{}, err
	}

	p := domain.Post{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		Username:       in.Username,
		Email:          in.Email,
		AvatarColor:    in.AvatarColor,
		ProfilePicture: in.ProfilePicture,
		Post:           in.Post,
		BgColor:        in.BgColor,
		Feelings:       in.Feelings,
		Privacy:        in.Privacy,
		GifURL:         in.GifURL,
		ImgVersion:     in.ImgVersion,
		ImgID:          in.ImgID,
		CreatedAt:      time.Now().UTC(),
	}

	s.publish(ctx, broadcast.EventPostCreated, p)

	cacheErr := s.cache.SavePost(ctx, p, in.OwnerRank, in.UserID)
	if cacheErr != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.Warn("cache save failed, durable-only", zap.String("post_id", p.ID), zap.Error(cacheErr))
	}

	value, _ := json.Marshal(p)
	queueErr := s.jobs.Enqueue(ctx, JobAddPost, queue.Payload{Key: in.UserID, Value: value})
	if queueErr != nil {
		s.log.Error("enqueue failed", zap.String("job", JobAddPost), zap.Error(queueErr))
	}

	if cacheErr != nil && queueErr != nil {
		return domain.Post{}, ErrUnavailable
	}
	return p, nil
}

// DeletePost emite el evento (solo el id), borra del cache y encola el
// job de borrado durable con el par id/ownerId para el decremento.
func (s *Service) DeletePost(ctx context.Context, postID, ownerID string) error {
	if err := validateIDPair(postID, ownerID); err != nil {
		return err
	}

	s.publish(ctx, broadcast.EventPostDeleted, postID)

	cacheErr := s.cache.DeletePost(ctx, postID, ownerID)
	if cacheErr != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.Warn("cache delete failed, durable-only", zap.String("post_id", postID), zap.Error(cacheErr))
	}

	queueErr := s.jobs.Enqueue(ctx, JobDeletePost, queue.Payload{KeyOne: postID, KeyTwo: ownerID})
	if queueErr != nil {
		s.log.Error("enqueue failed", zap.String("job", JobDeletePost), zap.Error(queueErr))
	}

	if cacheErr != nil && queueErr != nil {
		return ErrUnavailable
	}
	return nil
}

// CreateUser registra un perfil: broadcast, cache y job durable, con la
// misma regla de falla total que las demás mutaciones.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:             uuid.NewString(),
		UID:            in.UID,
		Username:       in.Username,
		Email:          in.Email,
		AvatarColor:    in.AvatarColor,
		ProfilePicture: in.ProfilePicture,
		Blocked:        []string{},
		BlockedBy:      []string{},
		Notifications:  domain.NotificationSettings{Messages: true, Reactions: true, Comments: true, Follows: true},
		CreatedAt:      time.Now().UTC(),
	}

	s.publish(ctx, broadcast.EventUserCreated, u)

	cacheErr := s.profiles.SaveUser(ctx, u)
	if cacheErr != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.Warn("cache save failed, durable-only", zap.String("user_id", u.ID), zap.Error(cacheErr))
	}

	value, _ := json.Marshal(u)
	queueErr := s.jobs.Enqueue(ctx, JobAddUser, queue.Payload{Value: value})
	if queueErr != nil {
		s.log.Error("enqueue failed", zap.String("job", JobAddUser), zap.Error(queueErr))
	}

	if cacheErr != nil && queueErr != nil {
		return domain.User{}, ErrUnavailable
	}
	return u, nil
}

// publish emite el evento en el hilo que llama, antes de cualquier
// escritura: los clientes no esperan a la persistencia. El error solo se
// loguea, nunca falla la mutación.
func (s *Service) publish(ctx context.Context, event string, payload any) {
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.log.Warn("broadcast failed", zap.String("event", event), zap.Error(err))
	}
}
