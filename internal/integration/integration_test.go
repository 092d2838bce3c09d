package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"arena-service/internal/achievements"
	"arena-service/internal/app"
	"arena-service/internal/domain"
	pginfra "arena-service/internal/infra/postgres"
	pgmigrations "arena-service/internal/infra/postgres/migrations"
	infraredis "arena-service/internal/infra/redis"
	"arena-service/internal/progression"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestArenaRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedChallenges(t, ctx, pgURL, sampleChallenges())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	catalog := achievements.DefaultCatalog()
	loader := pginfra.NewChallengeLoader(pool)
	source := infraredis.NewChallengeRepository(redisClient, loader, 5*time.Minute)
	backend := pginfra.NewProgressionStore(pool, catalog)

	store := app.NewProgressionStore("u1", backend, progression.DefaultConfig(), progression.DefaultRankTable())
	arena := app.NewArena("u1", source, backend, store)

	if err := arena.Start(ctx, domain.DifficultyFacil); err != nil {
		t.Fatalf("start: %v", err)
	}

	state := arena.State()
	if len(state.Challenges) != 2 {
		t.Fatalf("expected 2 challenges, got %d", len(state.Challenges))
	}

	for i := range state.Challenges {
		outcome, err := arena.SubmitAnswer(state.Challenges[i].CorrectAnswerID)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if !outcome.Correct {
			t.Fatalf("answer %d should be correct", i)
		}
		if _, err := arena.Next(ctx); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}

	final := arena.State()
	if final.Status != app.StatusFinished {
		t.Fatalf("expected finished, got %s", final.Status)
	}
	// first_win, lightning and perfect_game all qualify for this run.
	if len(final.SessionAchievementsUnlocked) == 0 {
		t.Fatalf("expected server-side unlocks, got none")
	}

	status, err := backend.FetchUserStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	// facil base 10, second correct answer carries a 10% streak bonus
	if status.TotalXP != 21 {
		t.Fatalf("expected 21 XP persisted, got %d", status.TotalXP)
	}
	if snap := store.Snapshot(); snap.TotalXP != status.TotalXP {
		t.Fatalf("store should be reconciled to server totals: %d vs %d", snap.TotalXP, status.TotalXP)
	}

	// Replaying the same session must not double-credit.
	result, err := backend.SubmitResult(ctx, domain.SessionSummary{
		SessionID:            final.SessionID,
		UserID:               "u1",
		Difficulty:           domain.DifficultyFacil,
		Score:                2,
		XPEarned:             21,
		TotalQuestions:       2,
		BestStreak:           2,
		FastestAnswerSeconds: final.FastestAnswerSeconds,
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if len(result.UnlockedAchievementIDs) != len(final.SessionAchievementsUnlocked) {
		t.Fatalf("replay should return original unlocks: %v vs %v",
			result.UnlockedAchievementIDs, final.SessionAchievementsUnlocked)
	}
	status, err = backend.FetchUserStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("status after replay: %v", err)
	}
	if status.TotalXP != 21 {
		t.Fatalf("replay double-credited: %d", status.TotalXP)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "arena", "POSTGRES_PASSWORD": "arenapass", "POSTGRES_DB": "arenadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://arena:arenapass@%s:%s/arenadb?sslmode=disable", host, port.Port())
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

func seedChallenges(t *testing.T, ctx context.Context, dsn string, batch []domain.Challenge) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, challenge := range batch {
		data, err := json.Marshal(challenge)
		if err != nil {
			t.Fatalf("marshal challenge: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO challenges (id, difficulty, data) VALUES (?, ?, ?::jsonb)
			 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
			challenge.ID, string(challenge.Difficulty), string(data)); err != nil {
			t.Fatalf("insert challenge: %v", err)
		}
	}
}

func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{
			ID:       "c1",
			Question: "What is 2 + 2?",
			Options: []domain.ChallengeOption{
				{ID: "o1", Text: "3"},
				{ID: "o2", Text: "4"},
				{ID: "o3", Text: "5"},
			},
			CorrectAnswerID: "o2",
			Difficulty:      domain.DifficultyFacil,
		},
		{
			ID:       "c2",
			Question: "Which planet is closest to the sun?",
			Options: []domain.ChallengeOption{
				{ID: "o1", Text: "Venus"},
				{ID: "o2", Text: "Mercury"},
			},
			CorrectAnswerID: "o2",
			Difficulty:      domain.DifficultyFacil,
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
