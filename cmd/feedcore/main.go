package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/feedcore/internal/broadcast"
	"github.com/dropDatabas3/feedcore/internal/cache"
	feedcache "github.com/dropDatabas3/feedcore/internal/cache/feed"
	"github.com/dropDatabas3/feedcore/internal/config"
	"github.com/dropDatabas3/feedcore/internal/feed"
	"github.com/dropDatabas3/feedcore/internal/metrics"
	"github.com/dropDatabas3/feedcore/internal/observability/logger"
	"github.com/dropDatabas3/feedcore/internal/queue"
	"github.com/dropDatabas3/feedcore/internal/store/pg"
	migrations "github.com/dropDatabas3/feedcore/migrations/postgres"
)

var version = "dev" // seteado via -ldflags en el build

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "feedcore",
		Short:        "Núcleo de consistencia del feed: cache, cola durable y broadcast",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env es opcional; las env FEEDCORE_* pisan el yaml
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta al archivo de configuración")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta workers de la cola, relay de eventos y el endpoint de introspección",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}

	var (
		seedCount    int
		seedUsername string
		seedEmail    string
		seedRank     int
	)
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea un perfil y N posts a través del orquestador (dev)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cfgPath, seedCount, seedUsername, seedEmail, seedRank)
		},
	}
	seedCmd.Flags().IntVar(&seedCount, "count", 10, "cantidad de posts a crear")
	seedCmd.Flags().StringVar(&seedUsername, "username", "seeduser", "username del perfil semilla")
	seedCmd.Flags().StringVar(&seedEmail, "email", "seed@example.com", "email del perfil semilla")
	seedCmd.Flags().IntVar(&seedRank, "rank", 1, "uId (rank) del perfil semilla")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de postgres pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cfgPath)
		},
	}

	root.AddCommand(serveCmd, seedCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// deps agrupa todo lo que ambos subcomandos necesitan armado.
type deps struct {
	cfg    *config.Config
	conn   *cache.Conn
	store  *pg.Store
	fc     feedcache.FeedCache
	pc     feedcache.ProfileCache
	queue  *queue.Queue
	events *broadcast.Redis
	svc    *feed.Service
}

func (d *deps) close() {
	if d.store != nil {
		d.store.Close()
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

func build(ctx context.Context, cfgPath string) (*deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "feedcore",
		Version:     version,
	})

	if cfg.Postgres.DSN == "" {
		return nil, errors.New("postgres.dsn is required (FEEDCORE_POSTGRES_DSN)")
	}

	conn := cache.NewConn(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger.Named("redis"))

	st, err := pg.New(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxConns))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	// El cache estructurado puede correr en memoria (dev, tests de humo);
	// la cola y el broadcast siempre van por redis.
	var fc feedcache.FeedCache
	var pc feedcache.ProfileCache
	switch cfg.Cache.Kind {
	case "memory":
		mem := feedcache.NewMemory()
		fc, pc = mem, mem
	default:
		rc := feedcache.NewRedis(conn, logger.Named("cache"))
		fc, pc = rc, rc
	}

	q := queue.New(conn, logger.Named("queue"))
	feed.RegisterWorkers(q, st.Posts, st.Users, int64(cfg.Queue.Concurrency))

	events := broadcast.NewRedis(conn, broadcast.DefaultChannel, logger.Named("broadcast"))

	svc := feed.New(fc, pc, st.Posts, st.Users, q, events, logger.Named("feed"))

	return &deps{
		cfg:    cfg,
		conn:   conn,
		store:  st,
		fc:     fc,
		pc:     pc,
		queue:  q,
		events: events,
		svc:    svc,
	}, nil
}

func runServe(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := build(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer d.close()
	defer func() { _ = logger.Sync() }()

	log := logger.Named("serve")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Workers de persistencia durable.
	queueDone := make(chan error, 1)
	go func() { queueDone <- d.queue.Run(ctx) }()

	// Relay de eventos: re-loguea lo que publican otras instancias. Los
	// consumidores reales (gateway de websockets) se suscriben al mismo
	// canal por su cuenta.
	go relayEvents(ctx, d.events, logger.Named("events"))

	srv := &http.Server{
		Addr:         d.cfg.Server.Addr,
		Handler:      newRouter(d),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.ListenAndServe() }()

	log.Info("feedcore up",
		logger.String("addr", d.cfg.Server.Addr),
		logger.String("env", d.cfg.App.Env),
		logger.String("cache", d.cfg.Cache.Kind),
		logger.Int("queue_concurrency", d.cfg.Queue.Concurrency),
	)

	select {
	case <-ctx.Done():
	case err := <-srvDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("http shutdown", logger.Err(err))
	}
	<-queueDone
	log.Info("feedcore down")
	return nil
}

// relayEvents drena el canal de broadcast y deja traza de cada evento.
// Si la suscripción falla reintenta con backoff corto hasta que el
// contexto se cancele.
func relayEvents(ctx context.Context, events *broadcast.Redis, log *zap.Logger) {
	for {
		ch, err := events.Subscribe(ctx)
		if err != nil {
			log.Warn("subscribe failed, retrying", logger.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				continue
			}
		}
		for ev := range ch {
			log.Debug("event", logger.Event(ev.Event), logger.Int("bytes", len(ev.Data)))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func newRouter(d *deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withLogging)

	r.Get("/healthz", healthzHandler(d))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/queues", d.queue.Dashboard())
	return r
}

// withLogging inyecta un logger scoped por request y loguea el resultado.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(req.Context())
		l := logger.L().With(logger.RequestID(reqID))
		ctx := logger.ToContext(req.Context(), l)

		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req.WithContext(ctx))

		l.Debug("http request",
			logger.Method(req.Method),
			logger.Path(req.URL.Path),
			logger.Status(ww.Status()),
			logger.Duration(time.Since(start)),
		)
	})
}

func healthzHandler(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		log := logger.From(req.Context()) // scoped con request_id por withLogging

		out := map[string]string{"status": "ok", "redis": "ok", "postgres": "ok"}
		code := http.StatusOK
		if _, err := d.conn.Ensure(ctx); err != nil {
			out["status"], out["redis"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
			log.Warn("healthz: redis unreachable", logger.Err(err))
		}
		if err := d.store.Pool.Ping(ctx); err != nil {
			out["status"], out["postgres"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
			log.Warn("healthz: postgres unreachable", logger.Err(err))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}

func runMigrate(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "feedcore", Version: version})
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required (FEEDCORE_POSTGRES_DSN)")
	}
	st, err := pg.New(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxConns))
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer st.Close()

	applied, err := pg.Migrate(ctx, st.Pool, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Named("migrate").Info("migrations applied", logger.Count(applied))
	fmt.Printf("applied %d migration(s)\n", applied)
	return nil
}

func runSeed(cfgPath string, count int, username, email string, rank int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := build(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer d.close()
	defer func() { _ = logger.Sync() }()

	log := logger.Named("seed")

	u, err := d.svc.CreateUser(ctx, feed.CreateUserInput{
		UID:         rank,
		Username:    username,
		Email:       email,
		AvatarColor: "#9c27b0",
	})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	log.Info("seed user created", logger.UserID(u.ID), logger.String("username", u.Username))

	for i := 1; i <= count; i++ {
		p, err := d.svc.CreatePost(ctx, feed.CreatePostInput{
			UserID:      u.ID,
			Username:    u.Username,
			Email:       u.Email,
			AvatarColor: u.AvatarColor,
			OwnerRank:   u.UID,
			Post:        fmt.Sprintf("seed post %d/%d", i, count),
			Privacy:     "Public",
		})
		if err != nil {
			return fmt.Errorf("seed post %d: %w", i, err)
		}
		log.Debug("seed post created", logger.PostID(p.ID))
	}

	log.Info("seed done", logger.Count(count))
	fmt.Printf("seeded user %s with %d posts\n", u.ID, count)
	return nil
}
