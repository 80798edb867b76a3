// Package queue implementa la cola de trabajo durable del feed sobre
// Redis, con entrega at-least-once, reintentos acotados con backoff fijo
// y concurrencia limitada por nombre de job.
//
// Estructuras por cola:
//
//	queue:<name>:waiting    lista de jobs listos (RPUSH/BLMOVE)
//	queue:<name>:active     lista de jobs tomados por un worker
//	queue:<name>:delayed    zset de reintentos pendientes, score = readyAt
//	queue:<name>:failed     lista de jobs con presupuesto agotado (retenidos)
//	queue:<name>:completed  contador de jobs completados
//
// Un job agotado nunca se descarta en silencio: queda en failed y se
// loguea a nivel error. Como la entrega es at-least-once, todo handler
// debe ser idempotente con el mismo payload.
//
// Un job en active cuyo proceso murió antes del ack queda huérfano; el
// checker de stalled lo devuelve a waiting cuando sobrevive dos barridos
// consecutivos sin ser removido.
package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dropDatabas3/feedcore/internal/cache"
	"github.com/dropDatabas3/feedcore/internal/metrics"
)

// ErrNoHandler indica un Run sin workers registrados.
var ErrNoHandler = errors.New("queue: no workers registered")

// stallInterval separa los barridos del checker de stalled. Un job debe
// seguir en active durante un intervalo completo para considerarse
// huérfano; los handlers normales terminan muy por debajo de ese margen.
const stallInterval = 30 * time.Second

// Handler procesa un job. Un error hace que el job se reintente; nil lo
// marca completo y lo remueve.
type Handler func(ctx context.Context, job *Job) error

// Queue administra colas nombradas independientes sobre la conexión
// Redis compartida.
type Queue struct {
	conn *cache.Conn
	log  *zap.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	name        string
	concurrency int64
	handler     Handler
}

// New crea la cola sobre la conexión dada.
func New(conn *cache.Conn, log *zap.Logger) *Queue {
	return &Queue{conn: conn, log: log, workers: make(map[string]*worker)}
}

func keyWaiting(name string) string   { return "queue:" + name + ":waiting" }
func keyActive(name string) string    { return "queue:" + name + ":active" }
func keyDelayed(name string) string   { return "queue:" + name + ":delayed" }
func keyFailed(name string) string    { return "queue:" + name + ":failed" }
func keyCompleted(name string) string { return "queue:" + name + ":completed" }

// Enqueue serializa el payload y lo agrega a la cola nombrada. Es
// fire-and-forget: el job sobrevive reinicios del proceso en Redis.
func (q *Queue) Enqueue(ctx context.Context, name string, p Payload) error {
	rdb, err := q.conn.Ensure(ctx)
	if err != nil {
		return err
	}

	job := newJob(name, p)
	if err := rdb.RPush(ctx, keyWaiting(name), marshalJob(job)).Err(); err != nil {
		return cache.Unavailable("enqueue "+name, err)
	}
	q.log.Debug("job enqueued", zap.String("queue", name), zap.String("job_id", job.ID))
	return nil
}

// Process registra un handler con tope de concurrencia para un nombre de
// job. Debe llamarse antes de Run.
func (q *Queue) Process(name string, concurrency int64, h Handler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers[name] = &worker{name: name, concurrency: concurrency, handler: h}
}

// Run arranca los loops de todos los workers registrados y bloquea hasta
// que el contexto se cancele.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	workers := make([]*worker, 0, len(q.workers))
	for _, w := range q.workers {
		workers = append(workers, w)
	}
	q.mu.Unlock()

	if len(workers) == 0 {
		return ErrNoHandler
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			q.runWorker(ctx, w)
		}(w)
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			q.runMover(ctx, w.name)
		}(w)
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			q.runStalledChecker(ctx, w.name)
		}(w)
	}
	wg.Wait()
	return ctx.Err()
}

// runWorker drena waiting→active y despacha handlers acotados por el
// semáforo. A lo sumo concurrency invocaciones en vuelo por nombre.
func (q *Queue) runWorker(ctx context.Context, w *worker) {
	sem := semaphore.NewWeighted(w.concurrency)
	log := q.log.With(zap.String("queue", w.name))

	for ctx.Err() == nil {
		rdb, err := q.conn.Ensure(ctx)
		if err != nil {
			log.Warn("worker waiting for redis", zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		raw, err := rdb.BLMove(ctx, keyWaiting(w.name), keyActive(w.name), "LEFT", "RIGHT", time.Second).Result()
		if err != nil {
			sem.Release(1)
			if err != redis.Nil && ctx.Err() == nil {
				log.Warn("blmove failed", zap.Error(err))
				sleep(ctx, time.Second)
			}
			continue
		}

		go func(raw string) {
			defer sem.Release(1)
			q.handle(ctx, w, raw)
		}(raw)
	}
}

// handle ejecuta el handler y aplica la política de reintentos: éxito
// remueve el job; falla lo reencola con delay fijo hasta agotar el
// presupuesto, y después lo retiene en failed.
func (q *Queue) handle(ctx context.Context, w *worker, raw string) {
	rdb, err := q.conn.Ensure(ctx)
	if err != nil {
		return
	}
	log := q.log.With(zap.String("queue", w.name))

	job, err := unmarshalJob(raw)
	if err != nil {
		// Job ilegible: retener para inspección, no reintentar.
		pipe := rdb.TxPipeline()
		pipe.LRem(ctx, keyActive(w.name), 1, raw)
		pipe.RPush(ctx, keyFailed(w.name), raw)
		_, _ = pipe.Exec(ctx)
		log.Error("job payload unreadable", zap.Error(err))
		return
	}

	herr := w.handler(ctx, &job)
	if herr == nil {
		pipe := rdb.TxPipeline()
		pipe.LRem(ctx, keyActive(w.name), 1, raw)
		pipe.Incr(ctx, keyCompleted(w.name))
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn("completed ack failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		metrics.JobsProcessed.WithLabelValues(w.name, "completed").Inc()
		log.Info("job completed", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempts))
		return
	}

	job.Attempts++
	pipe := rdb.TxPipeline()
	pipe.LRem(ctx, keyActive(w.name), 1, raw)
	if job.retryable() {
		readyAt := time.Now().Add(job.backoff())
		pipe.ZAdd(ctx, keyDelayed(w.name), redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: string(marshalJob(job)),
		})
		log.Warn("job failed, will retry",
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.Attempts),
			zap.Int("max_attempts", job.MaxAttempts),
			zap.Error(herr))
	} else {
		pipe.RPush(ctx, keyFailed(w.name), string(marshalJob(job)))
		metrics.JobsProcessed.WithLabelValues(w.name, "failed").Inc()
		log.Error("job permanently failed",
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Error(herr))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn("retry requeue failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// runMover promueve jobs retrasados cuyo readyAt ya venció de vuelta a
// waiting. ZRem antes de RPush evita promover dos veces el mismo member
// aunque corran movers en varios procesos.
func (q *Queue) runMover(ctx context.Context, name string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rdb, err := q.conn.Ensure(ctx)
		if err != nil {
			continue
		}
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		due, err := rdb.ZRangeByScore(ctx, keyDelayed(name), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil || len(due) == 0 {
			continue
		}
		for _, raw := range due {
			removed, err := rdb.ZRem(ctx, keyDelayed(name), raw).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := rdb.RPush(ctx, keyWaiting(name), raw).Err(); err != nil {
				// Devolver al zset para no perder el job.
				_ = rdb.ZAdd(ctx, keyDelayed(name), redis.Z{Score: 0, Member: raw}).Err()
			}
		}
	}
}

// runStalledChecker devuelve a waiting los jobs huérfanos de active:
// entradas que un proceso tomó con BLMove y nunca removió porque murió
// (o perdió la conexión) antes del ack. Marca en el primer barrido y
// recolecta en el segundo, así un job en vuelo en este mismo proceso no
// se reencola salvo que tarde más de un intervalo entero.
func (q *Queue) runStalledChecker(ctx context.Context, name string) {
	ticker := time.NewTicker(stallInterval)
	defer ticker.Stop()
	log := q.log.With(zap.String("queue", name))

	marked := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rdb, err := q.conn.Ensure(ctx)
		if err != nil {
			continue
		}
		active, err := rdb.LRange(ctx, keyActive(name), 0, -1).Result()
		if err != nil {
			continue
		}

		var stalled []string
		stalled, marked = collectStalled(marked, active)
		for _, raw := range stalled {
			// LRem antes de RPush: si otro proceso ya lo reencoló (o el
			// handler ackeó en la ventana), removed == 0 y no se duplica.
			removed, err := rdb.LRem(ctx, keyActive(name), 1, raw).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := rdb.RPush(ctx, keyWaiting(name), raw).Err(); err != nil {
				log.Error("stalled job lost from active", zap.Error(err))
				continue
			}
			log.Warn("stalled job requeued")
		}
	}
}

// collectStalled separa los jobs activos ya vistos en el barrido
// anterior (stalled: llevan al menos un intervalo sin ack) de los
// recién aparecidos, que quedan marcados para el próximo barrido. Los
// que desaparecieron de active se olvidan.
func collectStalled(marked map[string]struct{}, active []string) (stalled []string, next map[string]struct{}) {
	next = make(map[string]struct{}, len(active))
	for _, raw := range active {
		if _, ok := marked[raw]; ok {
			stalled = append(stalled, raw)
			continue
		}
		next[raw] = struct{}{}
	}
	return stalled, next
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
