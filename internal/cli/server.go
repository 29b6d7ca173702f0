package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/config"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/httpapi"
	"quiz-play-service/internal/infra/memory"
	pgloader "quiz-play-service/internal/infra/postgres"
	infraredis "quiz-play-service/internal/infra/redis"
	transport "quiz-play-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz play server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var api *httpapi.Client
	if cfg.API.BaseURL != "" {
		api = httpapi.NewClient(httpapi.Config{
			BaseURL: cfg.API.BaseURL,
			Token:   cfg.API.Token,
			Timeout: config.TTLDuration(cfg.API.Timeout, 10*time.Second),
			Retries: cfg.API.Retries,
		})
	}

	// Postgres wins over the API for content; the sample set keeps a bare start playable.
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	switch {
	case pool != nil:
		loader = pgloader.NewQuizLoader(pool)
	case api != nil:
		loader = api
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizLoader
	if redisClient != nil {
		quizzes = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var reporter app.ResultReporter
	if api != nil {
		reporter = api
	} else {
		log.Printf("no quiz api configured, submissions are only recorded in memory")
		reporter = memory.NewRecordingReporter()
	}

	var attempts app.AttemptRepository
	if redisClient != nil {
		attempts = infraredis.NewAttemptStore(redisClient, redisTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	service := app.NewAttemptService(attempts, quizzes, reporter,
		config.TTLDuration(cfg.Play.Retention, 10*time.Minute),
		app.EngineOptions{TickCadence: config.TTLDuration(cfg.Play.Tick, app.DefaultTickCadence)},
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz play service on :%s", finalPort)
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

	var result *multierror.Error
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	return result.ErrorOrNil()
}

// sampleQuizzes provides a minimal playable quiz for local runs without Postgres or the quiz API.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			Title:           "Warm-up",
			DurationSeconds: 60,
			Questions: []domain.Question{
				{
					ID:     1,
					Text:   "What is 2 + 2?",
					Points: 1,
					Choices: []domain.Choice{
						{ID: "a", Text: "3"},
						{ID: "b", Text: "4"},
						{ID: "c", Text: "5"},
					},
				},
				{
					ID:     2,
					Text:   "Which of these are prime?",
					Points: 2,
					Choices: []domain.Choice{
						{ID: "a", Text: "2"},
						{ID: "b", Text: "9"},
						{ID: "c", Text: "11"},
					},
				},
			},
		},
	}
}
