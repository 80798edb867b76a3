package pg

import (
	"testing"

	"github.com/dropDatabas3/feedcore/internal/store"
)

func TestWhereClause(t *testing.T) {
	if got := whereClause(store.Filter{}); got != "" {
		t.Fatalf("empty filter: %q", got)
	}
	got := whereClause(store.Filter{WithMedia: true})
	if got != ` WHERE (img_id <> '' OR gif_url <> '')` {
		t.Fatalf("media filter: %q", got)
	}
}
