package feedcache

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/cache"
	"github.com/dropDatabas3/feedcore/internal/codec"
	"github.com/dropDatabas3/feedcore/internal/domain"
)

// Redis implementa FeedCache y ProfileCache sobre la conexión compartida.
//
// Cada mutación corre en un TxPipeline (MULTI/EXEC): record, índice y
// contador del owner se aplican todo-o-nada. El contador usa HINCRBY en
// vez del read-then-write del sistema original, así el read-modify-write
// es atómico server-side incluso con escritores concurrentes.
type Redis struct {
	conn *cache.Conn
	log  *zap.Logger
}

// NewRedis crea el backend Redis del cache estructurado.
func NewRedis(conn *cache.Conn, log *zap.Logger) *Redis {
	return &Redis{conn: conn, log: log}
}

func (r *Redis) SavePost(ctx context.Context, p domain.Post, rank int, ownerID string) error {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return err
	}

	fields := codec.EncodePost(p)
	pipe := rdb.TxPipeline()
	pipe.ZAdd(ctx, keyPostIndex, redis.Z{Score: float64(rank), Member: p.ID})
	pipe.HSet(ctx, keyPost(p.ID), map[string]string(fields))
	pipe.HIncrBy(ctx, keyUser(ownerID), fieldPostsCount, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("save post batch failed", zap.String("id", p.ID), zap.Error(err))
		return cache.Unavailable("save post", err)
	}
	return nil
}

func (r *Redis) DeletePost(ctx context.Context, id, ownerID string) error {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return err
	}

	pipe := rdb.TxPipeline()
	pipe.ZRem(ctx, keyPostIndex, id)
	pipe.Del(ctx, keyPost(id), keyComments(id), keyReactions(id))
	pipe.HIncrBy(ctx, keyUser(ownerID), fieldPostsCount, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("delete post batch failed", zap.String("id", id), zap.Error(err))
		return cache.Unavailable("delete post", err)
	}
	return nil
}

func (r *Redis) PostRange(ctx context.Context, start, end int) ([]domain.Post, error) {
	return r.rangePosts(ctx, start, end, nil)
}

func (r *Redis) PostRangeWithMedia(ctx context.Context, start, end int) ([]domain.Post, error) {
	return r.rangePosts(ctx, start, end, domain.Post.HasMedia)
}

// rangePosts resuelve ids por el índice (rank descendente) y luego trae
// los field-maps en un pipeline. El filtro corre sobre el post decodificado.
func (r *Redis) rangePosts(ctx context.Context, start, end int, keep func(domain.Post) bool) ([]domain.Post, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := rdb.ZRevRange(ctx, keyPostIndex, int64(start), int64(end)).Result()
	if err != nil {
		return nil, cache.Unavailable("post range", err)
	}
	return r.fetchPosts(ctx, rdb, ids, keep)
}

func (r *Redis) PostsByOwnerRank(ctx context.Context, rank int) ([]domain.Post, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	score := strconv.Itoa(rank)
	ids, err := rdb.ZRevRangeByScore(ctx, keyPostIndex, &redis.ZRangeBy{Min: score, Max: score}).Result()
	if err != nil {
		return nil, cache.Unavailable("posts by owner rank", err)
	}
	return r.fetchPosts(ctx, rdb, ids, nil)
}

func (r *Redis) fetchPosts(ctx context.Context, rdb *redis.Client, ids []string, keep func(domain.Post) bool) ([]domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyPost(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, cache.Unavailable("fetch posts", err)
	}

	posts := make([]domain.Post, 0, len(ids))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		p := codec.DecodePost(codec.Fields(fields))
		if keep != nil && !keep(p) {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := rdb.ZCard(ctx, keyPostIndex).Result()
	if err != nil {
		return 0, cache.Unavailable("count", err)
	}
	return int(n), nil
}

func (r *Redis) CountByOwnerRank(ctx context.Context, rank int) (int, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return 0, err
	}
	score := strconv.Itoa(rank)
	n, err := rdb.ZCount(ctx, keyPostIndex, score, score).Result()
	if err != nil {
		return 0, cache.Unavailable("count by owner rank", err)
	}
	return int(n), nil
}

func (r *Redis) Post(ctx context.Context, id string) (domain.Post, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return domain.Post{}, err
	}
	fields, err := rdb.HGetAll(ctx, keyPost(id)).Result()
	if err != nil {
		return domain.Post{}, cache.Unavailable("get post", err)
	}
	if len(fields) == 0 {
		return domain.Post{}, cache.ErrNotFound
	}
	return codec.DecodePost(codec.Fields(fields)), nil
}

func (r *Redis) SaveUser(ctx context.Context, u domain.User) error {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return err
	}

	fields := codec.EncodeUser(u)
	pipe := rdb.TxPipeline()
	pipe.ZAdd(ctx, keyUserIndex, redis.Z{Score: float64(u.UID), Member: u.ID})
	pipe.HSet(ctx, keyUser(u.ID), map[string]string(fields))
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("save user batch failed", zap.String("id", u.ID), zap.Error(err))
		return cache.Unavailable("save user", err)
	}
	return nil
}

func (r *Redis) User(ctx context.Context, id string) (domain.User, error) {
	rdb, err := r.conn.Ensure(ctx)
	if err != nil {
		return domain.User{}, err
	}
	fields, err := rdb.HGetAll(ctx, keyUser(id)).Result()
	if err != nil {
		return domain.User{}, cache.Unavailable("get user", err)
	}
	if len(fields) == 0 {
		return domain.User{}, cache.ErrNotFound
	}
	return codec.DecodeUser(codec.Fields(fields)), nil
}
