package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena-service/internal/achievements"
	"arena-service/internal/app"
	"arena-service/internal/config"
	"arena-service/internal/domain"
	"arena-service/internal/infra/memory"
	pginfra "arena-service/internal/infra/postgres"
	redisinfra "arena-service/internal/infra/redis"
	"arena-service/internal/progression"
	transport "arena-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the arena server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	calc, err := cfg.ProgressionConfig()
	if err != nil {
		return err
	}
	ranks := progression.DefaultRankTable()
	catalog := achievements.DefaultCatalog()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ChallengeLoader = memory.NewStaticChallengeLoader(sampleChallenges())
	if pool != nil {
		loader = pginfra.NewChallengeLoader(pool)
	}

	challengeTTL := config.TTLDuration(cfg.Arena.ChallengeTTL, 10*time.Minute)
	var source app.ChallengeSource
	if redisClient != nil {
		source = redisinfra.NewChallengeRepository(redisClient, loader, challengeTTL)
	} else {
		source = memory.NewChallengeRepository(loader, challengeTTL)
	}

	var sink app.ResultSink
	var statuses app.StatusProvider
	if pool != nil {
		backend := pginfra.NewProgressionStore(pool, catalog)
		sink, statuses = backend, backend
	} else {
		backend := memory.NewResultStore(catalog)
		sink, statuses = backend, backend
	}

	timeout := config.TTLDuration(cfg.Arena.RequestTimeout, 10*time.Second)
	factory := func(userID string) *app.Arena {
		store := app.NewProgressionStore(userID, statuses, calc, ranks)
		return app.NewArena(userID, source, sink, store,
			app.WithCalculator(calc),
			app.WithCatalog(catalog),
			app.WithTimeout(timeout),
		)
	}

	var registry transport.ArenaRegistry
	if redisClient != nil {
		registry = redisinfra.NewArenaRegistry(redisClient, redisTTL, factory)
	} else {
		registry = memory.NewArenaRegistry(factory)
	}
	wsHandler := transport.NewWSHandler(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting arena service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleChallenges provides a minimal batch per difficulty; swap the loader
// with the Postgres-backed one in production.
func sampleChallenges() map[domain.Difficulty][]domain.Challenge {
	return map[domain.Difficulty][]domain.Challenge{
		domain.DifficultyFacil: {
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
					{ID: "o3", Text: "Mars"},
				},
				CorrectAnswerID: "o2",
				Difficulty:      domain.DifficultyFacil,
			},
		},
	}
}
