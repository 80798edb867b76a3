package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/queue"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// WorkerConcurrency es el tope default de handlers en vuelo por nombre
// de job.
const WorkerConcurrency = 5

// RegisterWorkers registra los handlers de persistencia durable. Todos
// son idempotentes: la cola entrega at-least-once y los repos hacen
// upsert por id con guarda en el contador. concurrency <= 0 usa el
// default.
func RegisterWorkers(q *queue.Queue, posts store.PostRepository, users store.UserRepository, concurrency int64) {
	if concurrency <= 0 {
		concurrency = WorkerConcurrency
	}
	q.Process(JobAddPost, concurrency, addPostHandler(posts))
	q.Process(JobDeletePost, concurrency, deletePostHandler(posts))
	q.Process(JobAddUser, concurrency, addUserHandler(users))
}

// addPostHandler persiste un post creado desde cache. El payload Value
// lleva la entidad completa; Key lleva el id del owner.
func addPostHandler(posts store.PostRepository) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p domain.Post
		if err := json.Unmarshal(job.Payload.Value, &p); err != nil {
			return fmt.Errorf("%s: decode payload: %w", JobAddPost, err)
		}
		return posts.Create(ctx, p, job.Payload.Key)
	}
}

// deletePostHandler borra el post durable. KeyOne/KeyTwo llevan el par
// id del post / id del owner para el decremento del contador.
func deletePostHandler(posts store.PostRepository) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		if job.Payload.KeyOne == "" {
			return fmt.Errorf("%s: missing post id", JobDeletePost)
		}
		return posts.Delete(ctx, job.Payload.KeyOne, job.Payload.KeyTwo)
	}
}

func addUserHandler(users store.UserRepository) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var u domain.User
		if err := json.Unmarshal(job.Payload.Value, &u); err != nil {
			return fmt.Errorf("%s: decode payload: %w", JobAddUser, err)
		}
		return users.Create(ctx, u)
	}
}
