package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Feed-related Prometheus metrics. Standalone package to avoid import
// cycles between the queue/cache packages and HTTP wiring.

var (
	CacheFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_fallbacks_total",
		Help: "Lecturas que cayeron al store durable por cache vacío o caído",
	})

	CacheWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_write_failures_total",
		Help: "Escrituras de cache fallidas (la mutación degrada a durable-only)",
	})

	JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_jobs_processed_total",
		Help: "Jobs procesados por cola y resultado final",
	}, []string{"queue", "result"})

	BroadcastsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_broadcasts_published_total",
		Help: "Eventos publicados al canal realtime por nombre de evento",
	}, []string{"event"})
)

// Register registra las métricas del feed en el registry dado (o el
// default si es nil). Tolera doble registro.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{CacheFallbacks, CacheWriteFailures, JobsProcessed, BroadcastsPublished} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
