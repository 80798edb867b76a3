package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/feedcore/internal/queue"
)

// drain entrega cada job encolado a su handler durable, simulando a los
// workers de la cola hasta vaciar el backlog.
func drain(t *testing.T, d *deps) {
	t.Helper()
	handlers := map[string]queue.Handler{
		JobAddPost:    addPostHandler(d.posts),
		JobDeletePost: deletePostHandler(d.posts),
		JobAddUser:    addUserHandler(d.users),
	}
	jobs := d.jobs.jobs
	d.jobs.jobs = nil
	for _, j := range jobs {
		h, ok := handlers[j.name]
		require.True(t, ok, "no handler for job %q", j.name)
		require.NoError(t, h(context.Background(), &queue.Job{Name: j.name, Payload: j.payload}))
	}
}

func postIDs(page FeedPage) []string {
	ids := make([]string, 0, len(page.Posts))
	for _, p := range page.Posts {
		ids = append(ids, p.ID)
	}
	return ids
}

// El write-behind converge: después de drenar la cola, el fallback
// durable responde lo mismo que el cache caliente.
func TestPipelineConvergesAfterDrain(t *testing.T) {
	ctx := context.Background()
	svc, d := newService(t)

	u, err := svc.CreateUser(ctx, CreateUserInput{UID: 3, Username: "dana", Email: "dana@example.com"})
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		in := CreatePostInput{
			UserID:    u.ID,
			Username:  u.Username,
			Email:     u.Email,
			OwnerRank: u.UID,
			Post:      fmt.Sprintf("post %d", i),
		}
		if i%2 == 0 {
			in.GifURL = "https://gif.example/x.gif"
		}
		_, err := svc.CreatePost(ctx, in)
		require.NoError(t, err)
	}

	warm, err := svc.Posts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, warm.Posts, 7)

	// El total del camino cache es la cardinalidad del índice completo,
	// no del subconjunto filtrado.
	warmMedia, err := svc.PostsWithMedia(ctx, 1)
	require.NoError(t, err)
	require.Len(t, warmMedia.Posts, 4)
	require.Equal(t, 7, warmMedia.Total)

	drain(t, d)

	// Cache frío: las lecturas caen enteras al store durable.
	d.cache.failReads = true

	cold, err := svc.Posts(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, warm.Total, cold.Total)
	require.ElementsMatch(t, postIDs(warm), postIDs(cold))

	// El total durable sí cuenta solo lo filtrado.
	coldMedia, err := svc.PostsWithMedia(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, coldMedia.Total)
	require.ElementsMatch(t, postIDs(warmMedia), postIDs(coldMedia))

	// El perfil también se recupera del durable con su contador.
	got, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)
}

// Un borrado drenado desaparece de ambos lados y la redelivery del
// mismo job no corrompe el contador.
func TestPipelineDeleteConverges(t *testing.T) {
	ctx := context.Background()
	svc, d := newService(t)

	u, err := svc.CreateUser(ctx, CreateUserInput{UID: 4, Username: "eve", Email: "eve@example.com"})
	require.NoError(t, err)

	var victim string
	for i := 0; i < 3; i++ {
		p, err := svc.CreatePost(ctx, CreatePostInput{
			UserID: u.ID, Username: u.Username, Email: u.Email,
			OwnerRank: u.UID, Post: fmt.Sprintf("post %d", i),
		})
		require.NoError(t, err)
		victim = p.ID
	}
	drain(t, d)

	require.NoError(t, svc.DeletePost(ctx, victim, u.ID))

	// redelivery: el mismo job de borrado dos veces
	deleted := d.jobs.jobs
	d.jobs.jobs = append(d.jobs.jobs, deleted...)
	drain(t, d)

	d.cache.failReads = true
	cold, err := svc.Posts(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, cold.Total)
	require.NotContains(t, postIDs(cold), victim)
	require.Equal(t, 2, d.posts.counts[u.ID])
}
