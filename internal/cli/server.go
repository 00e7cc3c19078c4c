package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"codemaster-service/internal/account"
	"codemaster-service/internal/app"
	"codemaster-service/internal/catalog"
	"codemaster-service/internal/certificate"
	"codemaster-service/internal/config"
	"codemaster-service/internal/content"
	"codemaster-service/internal/infra/memory"
	pgstore "codemaster-service/internal/infra/postgres"
	redisstore "codemaster-service/internal/infra/redis"
	"codemaster-service/internal/logger"
	transport "codemaster-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the learning service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := courseLoader(ctx, pool, log)
	if err != nil {
		return err
	}

	courseTTL := config.Duration(cfg.Course.TTL, 10*time.Minute)
	var courses app.CourseRepository
	if redisClient != nil {
		courses = redisstore.NewCourseRepository(redisClient, loader, courseTTL)
	} else {
		courses = memory.NewCourseRepository(loader, courseTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	users, closeUsers := openUserStore(ctx, cfg, redisClient, log)
	defer closeUsers()

	lessons := app.NewLessonService(sessions, courses, users, log,
		app.WithDelays(
			config.Duration(cfg.Lesson.AdvanceDelay, app.DefaultAdvanceDelay),
			config.Duration(cfg.Lesson.RevealDelay, app.DefaultRevealDelay),
		),
		app.WithRenderer(content.NewRenderer()),
	)
	accounts := account.NewService(users, log)
	if cur := accounts.Load(ctx); cur.SignedIn() {
		log.Info("restored active learner", "user_id", cur.UserID())
	}
	certs, err := certificate.NewRenderer()
	if err != nil {
		return err
	}

	router := transport.NewRouter(transport.Handlers{
		API:        transport.NewAPI(courses, accounts, certs, log),
		Lesson:     transport.NewWSHandler(lessons, accounts, log),
		Playground: transport.NewPlaygroundHandler(log, config.Duration(cfg.Preview.Debounce, 0)),
		Log:        log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting codemaster service", "port", finalPort, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// courseLoader serves the built-in catalog unless Postgres is configured, in
// which case an empty courses table is seeded from it first.
func courseLoader(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (memory.CourseLoader, error) {
	seed, err := catalog.Seed()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return memory.NewStaticCourseLoader(seed), nil
	}

	loader := pgstore.NewCourseLoader(pool)
	existing, err := loader.LoadCourses(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		if err := loader.SeedCourses(ctx, seed); err != nil {
			return nil, err
		}
		log.Info("seeded course catalog", "courses", len(seed))
	}
	return loader, nil
}
