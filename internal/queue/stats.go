package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Stats resume el estado de una cola para introspección.
type Stats struct {
	Name      string `json:"name"`
	Waiting   int64  `json:"waiting"`
	Active    int64  `json:"active"`
	Delayed   int64  `json:"delayed"`
	Failed    int64  `json:"failed"`
	Completed int64  `json:"completed"`
}

// Stats retorna el estado de todas las colas con worker registrado.
func (q *Queue) Stats(ctx context.Context) ([]Stats, error) {
	rdb, err := q.conn.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	names := make([]string, 0, len(q.workers))
	for name := range q.workers {
		names = append(names, name)
	}
	q.mu.Unlock()
	sort.Strings(names)

	out := make([]Stats, 0, len(names))
	for _, name := range names {
		s := Stats{Name: name}
		s.Waiting, _ = rdb.LLen(ctx, keyWaiting(name)).Result()
		s.Active, _ = rdb.LLen(ctx, keyActive(name)).Result()
		s.Delayed, _ = rdb.ZCard(ctx, keyDelayed(name)).Result()
		s.Failed, _ = rdb.LLen(ctx, keyFailed(name)).Result()
		if v, err := rdb.Get(ctx, keyCompleted(name)).Result(); err == nil {
			s.Completed, _ = strconv.ParseInt(v, 10, 64)
		}
		out = append(out, s)
	}
	return out, nil
}

// FailedJobs retorna los últimos jobs retenidos en failed (hasta limit).
func (q *Queue) FailedJobs(ctx context.Context, name string, limit int64) ([]Job, error) {
	rdb, err := q.conn.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	raws, err := rdb.LRange(ctx, keyFailed(name), -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		if j, err := unmarshalJob(raw); err == nil {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// Dashboard retorna el handler HTTP de introspección de colas, pensado
// para montarse en /queues.
func (q *Queue) Dashboard() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		stats, err := q.Stats(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"queues": stats})
	})
	r.Get("/{name}/failed", func(w http.ResponseWriter, req *http.Request) {
		jobs, err := q.FailedJobs(req.Context(), chi.URLParam(req, "name"), 50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"failed": jobs})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
