package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/cache"
	feedcache "github.com/dropDatabas3/feedcore/internal/cache/feed"
	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/queue"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// ─── fakes ───

// seqRecorder captura el orden broadcast→cache→enqueue de una mutación.
type seqRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *seqRecorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

type fakeBroadcaster struct {
	rec    *seqRecorder
	events []string
	fail   error
}

func (b *fakeBroadcaster) Publish(ctx context.Context, event string, payload any) error {
	if b.rec != nil {
		b.rec.add("broadcast:" + event)
	}
	b.events = append(b.events, event)
	return b.fail
}

// recordingCache delega en el backend de memoria con inyección de fallas.
type recordingCache struct {
	*feedcache.Memory
	rec        *seqRecorder
	failWrites bool
	failReads  bool
}

func (c *recordingCache) SavePost(ctx context.Context, p domain.Post, rank int, ownerID string) error {
	if c.rec != nil {
		c.rec.add("cache:save")
	}
	if c.failWrites {
		return cache.ErrUnavailable
	}
	return c.Memory.SavePost(ctx, p, rank, ownerID)
}

func (c *recordingCache) DeletePost(ctx context.Context, id, ownerID string) error {
	if c.rec != nil {
		c.rec.add("cache:delete")
	}
	if c.failWrites {
		return cache.ErrUnavailable
	}
	return c.Memory.DeletePost(ctx, id, ownerID)
}

func (c *recordingCache) PostRange(ctx context.Context, start, end int) ([]domain.Post, error) {
	if c.failReads {
		return nil, cache.ErrUnavailable
	}
	return c.Memory.PostRange(ctx, start, end)
}

func (c *recordingCache) PostRangeWithMedia(ctx context.Context, start, end int) ([]domain.Post, error) {
	if c.failReads {
		return nil, cache.ErrUnavailable
	}
	return c.Memory.PostRangeWithMedia(ctx, start, end)
}

type queuedJob struct {
	name    string
	payload queue.Payload
}

type fakeQueue struct {
	rec  *seqRecorder
	jobs []queuedJob
	fail error
}

func (q *fakeQueue) Enqueue(ctx context.Context, name string, p queue.Payload) error {
	if q.rec != nil {
		q.rec.add("enqueue:" + name)
	}
	if q.fail != nil {
		return q.fail
	}
	q.jobs = append(q.jobs, queuedJob{name: name, payload: p})
	return nil
}

// fakePostStore implementa el contrato idempotente de PostRepository.
type fakePostStore struct {
	mu       sync.Mutex
	records  map[string]domain.Post
	counts   map[string]int
	failList bool
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{records: map[string]domain.Post{}, counts: map[string]int{}}
}

func (f *fakePostStore) Create(ctx context.Context, p domain.Post, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[p.ID]; ok {
		return nil // upsert por id: la redelivery no duplica
	}
	f.records[p.ID] = p
	f.counts[ownerID]++
	return nil
}

func (f *fakePostStore) Delete(ctx context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return nil
	}
	delete(f.records, id)
	if f.counts[ownerID] > 0 {
		f.counts[ownerID]--
	}
	return nil
}

func (f *fakePostStore) Query(ctx context.Context, flt store.Filter, skip, limit int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errors.New("durable reads disabled")
	}
	var all []domain.Post
	for _, p := range f.records {
		if flt.WithMedia && !p.HasMedia() {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if skip >= len(all) {
		return nil, nil
	}
	all = all[skip:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakePostStore) Count(ctx context.Context, flt store.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return 0, errors.New("durable reads disabled")
	}
	n := 0
	for _, p := range f.records {
		if flt.WithMedia && !p.HasMedia() {
			continue
		}
		n++
	}
	return n, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]domain.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; ok {
		return nil
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) ByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

type deps struct {
	cache *recordingCache
	mem   *feedcache.Memory
	bcast *fakeBroadcaster
	jobs  *fakeQueue
	posts *fakePostStore
	users *fakeUserStore
	rec   *seqRecorder
}

func newService(t *testing.T) (*Service, *deps) {
	t.Helper()
	rec := &seqRecorder{}
	mem := feedcache.NewMemory()
	d := &deps{
		rec:   rec,
		mem:   mem,
		cache: &recordingCache{Memory: mem, rec: rec},
		bcast: &fakeBroadcaster{rec: rec},
		jobs:  &fakeQueue{rec: rec},
		posts: newFakePostStore(),
		users: newFakeUserStore(),
	}
	svc := New(d.cache, mem, d.posts, d.users, d.jobs, d.bcast, zap.NewNop())
	return svc, d
}

func createInput() CreatePostInput {
	return CreatePostInput{
		UserID:    "u1",
		Username:  "tester",
		Email:     "t@example.com",
		OwnerRank: 7,
		Post:      "hello",
		Privacy:   "Public",
	}
}

// ─── mutaciones ───

func TestCreatePostSequence(t *testing.T) {
	svc, d := newService(t)

	p, err := svc.CreatePost(context.Background(), createInput())
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" {
		t.Fatal("post sin id asignado")
	}

	want := []string{"broadcast:add post", "cache:save", "enqueue:addPostToDB"}
	if len(d.rec.steps) != 3 {
		t.Fatalf("steps = %v", d.rec.steps)
	}
	for i, step := range want {
		if d.rec.steps[i] != step {
			t.Fatalf("step %d = %q, want %q", i, d.rec.steps[i], step)
		}
	}

	// El job lleva la copia completa del post y el owner en Key.
	job := d.jobs.jobs[0]
	if job.payload.Key != "u1" {
		t.Fatalf("payload.Key = %q", job.payload.Key)
	}
	var fromJob domain.Post
	if err := json.Unmarshal(job.payload.Value, &fromJob); err != nil {
		t.Fatal(err)
	}
	if fromJob.ID != p.ID || fromJob.Post != "hello" {
		t.Fatalf("job payload = %+v", fromJob)
	}
}

func TestCreatePostCacheFailureStillSucceeds(t *testing.T) {
	svc, d := newService(t)
	d.cache.failWrites = true

	if _, err := svc.CreatePost(context.Background(), createInput()); err != nil {
		t.Fatalf("create should succeed on cache-only failure, got %v", err)
	}
	if len(d.jobs.jobs) != 1 {
		t.Fatal("durable job not enqueued")
	}
}

func TestCreatePostTotalFailure(t *testing.T) {
	svc, d := newService(t)
	d.cache.failWrites = true
	d.jobs.fail = errors.New("redis down")

	_, err := svc.CreatePost(context.Background(), createInput())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	// El broadcast ya salió igual: se emite antes de toda persistencia.
	if len(d.bcast.events) != 1 {
		t.Fatalf("events = %v", d.bcast.events)
	}
}

func TestCreatePostValidation(t *testing.T) {
	svc, d := newService(t)

	in := createInput()
	in.Username = ""
	_, err := svc.CreatePost(context.Background(), in)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(d.bcast.events) != 0 || len(d.jobs.jobs) != 0 {
		t.Fatal("invalid input must not broadcast nor enqueue")
	}
}

// Escenario del contrato: owner con contador 4 borra el post X → el
// broadcast sale antes del delete del cache; después, get(X) es not
// found y el contador quedó en 3.
func TestDeletePostSequenceAndCounter(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()

	if err := d.mem.SaveUser(ctx, domain.User{ID: "u1", UID: 7, PostsCount: 3}); err != nil {
		t.Fatal(err)
	}
	p, err := svc.CreatePost(ctx, createInput())
	if err != nil {
		t.Fatal(err)
	}
	if u, _ := d.mem.User(ctx, "u1"); u.PostsCount != 4 {
		t.Fatalf("postsCount = %d, want 4", u.PostsCount)
	}

	d.rec.steps = nil
	if err := svc.DeletePost(ctx, p.ID, "u1"); err != nil {
		t.Fatal(err)
	}

	if d.rec.steps[0] != "broadcast:delete post" || d.rec.steps[1] != "cache:delete" {
		t.Fatalf("steps = %v", d.rec.steps)
	}
	if _, err := d.mem.Post(ctx, p.ID); !cache.IsNotFound(err) {
		t.Fatalf("want not found, got %v", err)
	}
	if u, _ := d.mem.User(ctx, "u1"); u.PostsCount != 3 {
		t.Fatalf("postsCount = %d, want 3", u.PostsCount)
	}

	job := d.jobs.jobs[len(d.jobs.jobs)-1]
	if job.name != JobDeletePost || job.payload.KeyOne != p.ID || job.payload.KeyTwo != "u1" {
		t.Fatalf("job = %+v", job)
	}
}

func TestCreateUser(t *testing.T) {
	svc, d := newService(t)

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		UID: 123456, Username: "tester", Email: "t@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" || u.UID != 123456 {
		t.Fatalf("user = %+v", u)
	}
	if d.bcast.events[0] != "add user" {
		t.Fatalf("events = %v", d.bcast.events)
	}
	got, err := d.mem.User(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "tester" {
		t.Fatalf("cached user = %+v", got)
	}
}
