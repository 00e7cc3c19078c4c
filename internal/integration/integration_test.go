package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"

	"codemaster-service/internal/app"
	"codemaster-service/internal/catalog"
	"codemaster-service/internal/domain"
	pgstore "codemaster-service/internal/infra/postgres"
	pgmigrations "codemaster-service/internal/infra/postgres/migrations"
	infraredis "codemaster-service/internal/infra/redis"
	"codemaster-service/internal/logger"
)

func TestQuizPassEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	seed, err := catalog.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := pgstore.NewCourseLoader(pool)
	if err := loader.SeedCourses(ctx, seed); err != nil {
		t.Fatalf("seed courses: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	db := pgstore.OpenDB(pgURL)
	defer db.Close()

	stores := map[string]app.UserStore{
		"postgres": pgstore.NewUserStore(db),
		"redis":    infraredis.NewUserStore(redisClient),
	}
	for name, users := range stores {
		t.Run(name, func(t *testing.T) {
			runQuizPass(t, ctx, redisClient, loader, users)
		})
	}
}

func runQuizPass(t *testing.T, ctx context.Context, client *goredis.Client, loader *pgstore.CourseLoader, users app.UserStore) {
	userID := fmt.Sprintf("learner-%d", time.Now().UnixNano())
	if err := users.CreateUser(ctx, domain.User{
		ID:         userID,
		Name:       "Ada",
		Email:      userID + "@example.com",
		Password:   "secret",
		JoinedDate: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	courses := infraredis.NewCourseRepository(client, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(client, 5*time.Minute)
	service := app.NewLessonService(sessions, courses, users, logger.Nop(),
		app.WithDelays(10*time.Millisecond, 10*time.Millisecond))

	ref := app.Ref{UserID: userID, CourseID: "javascript-fundamentals", LessonID: "quiz"}
	snap, err := service.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer service.Leave(ctx, ref)
	if snap.Phase != app.PhaseQuizInProgress {
		t.Fatalf("expected quiz in progress, got %s", snap.Phase)
	}

	// Three of four correct: 75 passes.
	for id, option := range map[string]int{"1": 0, "2": 0, "3": 2, "4": 1} {
		if _, err := service.Answer(ctx, ref, id, option); err != nil {
			t.Fatalf("answer %s: %v", id, err)
		}
	}
	result, err := service.Submit(ctx, ref)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score == nil || *result.Score != 75 || !result.Passed {
		t.Fatalf("expected passing score 75, got %+v", result.Score)
	}
	if _, err := service.Submit(ctx, ref); err == nil {
		t.Fatalf("second submit must be rejected")
	}

	user, err := users.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(user.Certifications) != 1 || user.Certifications[0].Score != 75 {
		t.Fatalf("expected one certificate with score 75, got %+v", user.Certifications)
	}
	entry, ok := user.Progress.Entry(ref.CourseID, ref.LessonID)
	if !ok || !entry.Completed || entry.Score == nil || *entry.Score != 75 {
		t.Fatalf("expected completed quiz entry, got %+v", entry)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "codemaster", "POSTGRES_PASSWORD": "codemaster", "POSTGRES_DB": "codemaster"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://codemaster:codemaster@%s:%s/codemaster?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := pgstore.OpenDB(dsn)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
