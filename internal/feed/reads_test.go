package feed

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// Regla de borde de paginación: página 1 arranca en 0; página 2 con
// pageSize=10 arranca en 11 (no 10), para no repetir el elemento de borde.
func TestPageRangeBoundary(t *testing.T) {
	cases := []struct {
		page                    int
		wantSkip, wantLimit, wantStart int
	}{
		{1, 0, 10, 0},
		{2, 10, 20, 11},
		{3, 20, 30, 21},
		{0, 0, 10, 0}, // páginas inválidas degradan a la primera
	}
	for _, c := range cases {
		skip, limit, start := pageRange(c.page)
		if skip != c.wantSkip || limit != c.wantLimit || start != c.wantStart {
			t.Errorf("pageRange(%d) = (%d,%d,%d), want (%d,%d,%d)",
				c.page, skip, limit, start, c.wantSkip, c.wantLimit, c.wantStart)
		}
	}
}

func seedStore(f *fakePostStore, n int) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := domain.Post{
			ID:        "sp" + strconv.Itoa(i),
			UserID:    "u1",
			Post:      "stored " + strconv.Itoa(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 0 {
			p.GifURL = "https://gif.example.com/" + strconv.Itoa(i)
		}
		_ = f.Create(context.Background(), p, "u1")
	}
}

func TestPostsServedFromWarmCache(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		in := createInput()
		in.Post = "cached " + strconv.Itoa(i)
		if _, err := svc.CreatePost(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	seedStore(d.posts, 5) // datos durables distintos: no deben usarse

	page, err := svc.Posts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 3 || page.Total != 3 {
		t.Fatalf("page = %d posts, total %d; want 3/3", len(page.Posts), page.Total)
	}
	for _, p := range page.Posts {
		if p.Post[:6] != "cached" {
			t.Fatalf("unexpected durable post in warm-cache read: %+v", p)
		}
	}
}

// Con cache vacío, el resultado paginado es exactamente lo que el store
// durable retorna directo para el mismo filtro/orden/skip/limit.
func TestPostsFallbackMatchesDurable(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()
	seedStore(d.posts, 15)

	page, err := svc.Posts(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}

	skip, limit, _ := pageRange(2)
	want, err := d.posts.Query(ctx, store.Filter{}, skip, limit)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != len(want) {
		t.Fatalf("got %d posts, want %d", len(page.Posts), len(want))
	}
	for i := range want {
		if page.Posts[i].ID != want[i].ID {
			t.Fatalf("post %d = %s, want %s", i, page.Posts[i].ID, want[i].ID)
		}
	}
	if page.Total != 15 {
		t.Fatalf("total = %d, want 15", page.Total)
	}
}

func TestPostsFallbackWhenCacheErrors(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()
	seedStore(d.posts, 4)
	d.cache.failReads = true

	page, err := svc.Posts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 4 || page.Total != 4 {
		t.Fatalf("page = %d/%d, want 4/4", len(page.Posts), page.Total)
	}
}

func TestPostsWithMediaFallbackUsesFilter(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()
	seedStore(d.posts, 10) // los pares llevan gifUrl

	page, err := svc.PostsWithMedia(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 5 || page.Total != 5 {
		t.Fatalf("page = %d/%d, want 5/5", len(page.Posts), page.Total)
	}
	for _, p := range page.Posts {
		if !p.HasMedia() {
			t.Fatalf("post sin media en resultado filtrado: %+v", p)
		}
	}
}

func TestUserPostsCacheOnly(t *testing.T) {
	svc, d := newService(t)
	d.posts.failList = true // el camino por rank nunca toca el durable
	ctx := context.Background()

	in := createInput()
	in.OwnerRank = 42
	if _, err := svc.CreatePost(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreatePost(ctx, createInput()); err != nil { // rank 7
		t.Fatal(err)
	}

	page, err := svc.UserPosts(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 1 || page.Total != 1 {
		t.Fatalf("page = %d/%d, want 1/1", len(page.Posts), page.Total)
	}
}

func TestProfileFallsBackToDurable(t *testing.T) {
	svc, d := newService(t)
	ctx := context.Background()

	d.users.users["u9"] = domain.User{ID: "u9", Username: "durable"}
	u, err := svc.Profile(ctx, "u9")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "durable" {
		t.Fatalf("user = %+v", u)
	}

	if _, err := svc.Profile(ctx, "missing"); !store.IsNotFound(err) {
		t.Fatalf("want store.ErrNotFound, got %v", err)
	}
}
