package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Valores por defecto del reintento, iguales al sistema existente:
// 3 intentos con backoff fijo de 5 segundos.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
)

// Payload es el esquema de datos de un job. Value lleva la entidad
// completa serializada en jobs de creación; KeyOne/KeyTwo llevan pares
// id/ownerId en jobs de borrado.
//
// El payload se serializa al encolar: el job es dueño de su copia y una
// mutación posterior del cache no puede corromper un job en vuelo.
type Payload struct {
	Key    string          `json:"key,omitempty"`
	KeyOne string          `json:"keyOne,omitempty"`
	KeyTwo string          `json:"keyTwo,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Job es una unidad de trabajo nombrada con presupuesto de reintentos.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Payload     Payload   `json:"payload"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	BackoffMs   int64     `json:"backoffMs"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}

func newJob(name string, p Payload) Job {
	return Job{
		ID:          uuid.NewString(),
		Name:        name,
		Payload:     p,
		MaxAttempts: DefaultMaxAttempts,
		BackoffMs:   DefaultBackoff.Milliseconds(),
		EnqueuedAt:  time.Now().UTC(),
	}
}

// backoff retorna la espera fija entre reintentos.
func (j Job) backoff() time.Duration {
	if j.BackoffMs <= 0 {
		return DefaultBackoff
	}
	return time.Duration(j.BackoffMs) * time.Millisecond
}

// retryable indica si al job le queda presupuesto de reintentos.
// Attempts cuenta ejecuciones ya falladas.
func (j Job) retryable() bool {
	return j.Attempts < j.MaxAttempts
}

func marshalJob(j Job) []byte {
	b, _ := json.Marshal(j)
	return b
}

func unmarshalJob(raw string) (Job, error) {
	var j Job
	err := json.Unmarshal([]byte(raw), &j)
	return j, err
}
