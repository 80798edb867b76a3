package feedcache

import (
	"context"
	"sort"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/feedcore/internal/cache"
	"github.com/dropDatabas3/feedcore/internal/codec"
	"github.com/dropDatabas3/feedcore/internal/domain"
)

// Memory implementa FeedCache y ProfileCache en memoria, para desarrollo
// y tests. Los field-maps viven en un go-cache sin expiración y el índice
// ordenado es un slice bajo mutex; el mutex de cada mutación reproduce la
// visibilidad todo-o-nada del batch atómico de Redis.
type Memory struct {
	mu        sync.Mutex
	records   *gocache.Cache
	posts     []rankEntry // orden ascendente por (score, member), como un zset
	userIndex []rankEntry
}

type rankEntry struct {
	member string
	score  int
}

// NewMemory crea el backend en memoria.
func NewMemory() *Memory {
	return &Memory{records: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) SavePost(ctx context.Context, p domain.Post, rank int, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = zadd(m.posts, rankEntry{member: p.ID, score: rank})
	m.records.Set(keyPost(p.ID), codec.EncodePost(p), gocache.NoExpiration)
	m.hincrPostsCount(ownerID, 1)
	return nil
}

func (m *Memory) DeletePost(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = zrem(m.posts, id)
	m.records.Delete(keyPost(id))
	m.records.Delete(keyComments(id))
	m.records.Delete(keyReactions(id))
	m.hincrPostsCount(ownerID, -1)
	return nil
}

func (m *Memory) PostRange(ctx context.Context, start, end int) ([]domain.Post, error) {
	return m.rangePosts(start, end, nil), nil
}

func (m *Memory) PostRangeWithMedia(ctx context.Context, start, end int) ([]domain.Post, error) {
	return m.rangePosts(start, end, domain.Post.HasMedia), nil
}

func (m *Memory) PostsByOwnerRank(ctx context.Context, rank int) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var posts []domain.Post
	// Recorre en reversa para mantener rank descendente.
	for i := len(m.posts) - 1; i >= 0; i-- {
		if m.posts[i].score != rank {
			continue
		}
		if f, ok := m.fields(keyPost(m.posts[i].member)); ok {
			posts = append(posts, codec.DecodePost(f))
		}
	}
	return posts, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts), nil
}

func (m *Memory) CountByOwnerRank(ctx context.Context, rank int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.posts {
		if e.score == rank {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Post(ctx context.Context, id string) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields(keyPost(id))
	if !ok {
		return domain.Post{}, cache.ErrNotFound
	}
	return codec.DecodePost(f), nil
}

func (m *Memory) SaveUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.userIndex = zadd(m.userIndex, rankEntry{member: u.ID, score: u.UID})
	m.records.Set(keyUser(u.ID), codec.EncodeUser(u), gocache.NoExpiration)
	return nil
}

func (m *Memory) User(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields(keyUser(id))
	if !ok {
		return domain.User{}, cache.ErrNotFound
	}
	return codec.DecodeUser(f), nil
}

// ─── helpers ───

func (m *Memory) rangePosts(start, end int, keep func(domain.Post) bool) []domain.Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := zrevrange(m.posts, start, end)
	posts := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		f, ok := m.fields(keyPost(id))
		if !ok {
			continue
		}
		p := codec.DecodePost(f)
		if keep != nil && !keep(p) {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

func (m *Memory) fields(key string) (codec.Fields, bool) {
	v, ok := m.records.Get(key)
	if !ok {
		return nil, false
	}
	f, ok := v.(codec.Fields)
	return f, ok
}

// hincrPostsCount replica HINCRBY: crea el hash del owner si no existe.
func (m *Memory) hincrPostsCount(ownerID string, delta int) {
	key := keyUser(ownerID)
	f, ok := m.fields(key)
	if !ok {
		f = codec.Fields{}
	}
	n, _ := strconv.Atoi(f[fieldPostsCount])
	f[fieldPostsCount] = strconv.Itoa(n + delta)
	m.records.Set(key, f, gocache.NoExpiration)
}

// zadd inserta o reemplaza el score de member, manteniendo el orden
// ascendente por (score, member) de un sorted set.
func zadd(set []rankEntry, e rankEntry) []rankEntry {
	set = zrem(set, e.member)
	i := sort.Search(len(set), func(i int) bool {
		if set[i].score != e.score {
			return set[i].score > e.score
		}
		return set[i].member > e.member
	})
	set = append(set, rankEntry{})
	copy(set[i+1:], set[i:])
	set[i] = e
	return set
}

func zrem(set []rankEntry, member string) []rankEntry {
	for i, e := range set {
		if e.member == member {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}

// zrevrange retorna los members entre los índices inclusivos start y end
// en orden descendente, con la misma semántica de clamping de ZREVRANGE.
func zrevrange(set []rankEntry, start, end int) []string {
	n := len(set)
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start >= n || start > end {
		return nil
	}
	out := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, set[n-1-i].member)
	}
	return out
}
