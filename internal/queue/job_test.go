package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewJobDefaults(t *testing.T) {
	j := newJob("addPostToDB", Payload{Key: "u1", Value: json.RawMessage(`{"id":"p1"}`)})

	if j.ID == "" {
		t.Fatal("job sin id")
	}
	if j.MaxAttempts != 3 {
		t.Fatalf("maxAttempts = %d, want 3", j.MaxAttempts)
	}
	if j.backoff() != 5*time.Second {
		t.Fatalf("backoff = %v, want 5s", j.backoff())
	}
}

func TestJobMarshalRoundTrip(t *testing.T) {
	j := newJob("deletePostFromDB", Payload{KeyOne: "p1", KeyTwo: "u1"})
	got, err := unmarshalJob(string(marshalJob(j)))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != j.ID || got.Payload.KeyOne != "p1" || got.Payload.KeyTwo != "u1" {
		t.Fatalf("got %+v", got)
	}
}

// El presupuesto es de 3 ejecuciones en total: las dos primeras fallas
// reencolan, la tercera agota.
func TestRetryBudget(t *testing.T) {
	j := newJob("addPostToDB", Payload{})

	j.Attempts++ // primera falla
	if !j.retryable() {
		t.Fatal("attempt 1 should retry")
	}
	j.Attempts++ // segunda falla
	if !j.retryable() {
		t.Fatal("attempt 2 should retry")
	}
	j.Attempts++ // tercera falla
	if j.retryable() {
		t.Fatal("attempt 3 should exhaust the budget")
	}
}

// El job serializa su propia copia del payload: mutar la fuente después
// de construirlo no afecta lo encolado.
func TestJobOwnsPayloadCopy(t *testing.T) {
	src := []byte(`{"id":"p1","post":"original"}`)
	j := newJob("addPostToDB", Payload{Value: json.RawMessage(src)})
	raw := string(marshalJob(j))

	copy(src, []byte(`{"id":"p1","post":"MUTATED!"}`))

	got, err := unmarshalJob(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Payload.Value) != `{"id":"p1","post":"original"}` {
		t.Fatalf("payload aliased: %s", got.Payload.Value)
	}
}

func TestUnmarshalJobRejectsGarbage(t *testing.T) {
	if _, err := unmarshalJob("{not json"); err == nil {
		t.Fatal("want error for unreadable job")
	}
}
