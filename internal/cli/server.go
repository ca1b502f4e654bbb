package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"op-quiz-engine/internal/app"
	"op-quiz-engine/internal/config"
	"op-quiz-engine/internal/infra/content"
	"op-quiz-engine/internal/infra/memory"
	"op-quiz-engine/internal/infra/postgres"
	rediscache "op-quiz-engine/internal/infra/redis"
	"op-quiz-engine/internal/infra/sqlite"
	"op-quiz-engine/internal/logging"
	transport "op-quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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
		closers = append(closers, redisClient)
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	} else {
		files, err := content.NewLoader(cfg.Quiz.ContentDir, logger)
		if err != nil {
			return err
		}
		loader = files
	}

	// The Redis TTL applies when Redis holds the cache, the quiz TTL otherwise.
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), logger)
	} else {
		quizRepo = memory.NewQuizRepository(loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	}

	var progress app.ProgressBackend
	switch cfg.Progress.Backend {
	case config.ProgressRedis:
		progress = rediscache.NewProgressBackend(redisClient)
	case config.ProgressSQLite:
		backend, err := sqlite.Open(cfg.Progress.SQLitePath)
		if err != nil {
			return err
		}
		closers = append(closers, backend)
		progress = backend
	default:
		progress = memory.NewProgressBackend()
	}

	var resultRepo app.ResultRepository = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		db := postgres.OpenBun(cfg.Postgres.URL)
		closers = append(closers, db)
		resultRepo = postgres.NewResultRepository(db)
	}
	results := app.NewResultSubmitter(resultRepo, config.TTLDuration(cfg.Quiz.SubmitTimeout, 10*time.Second), logger)

	service := app.NewQuizService(quizRepo, progress, results, logger, app.ServiceOptions{
		AutoAdvance:    config.TTLDuration(cfg.Quiz.AutoAdvance, app.DefaultAutoAdvance),
		ProgressPrefix: cfg.Progress.KeyPrefix,
		DefaultSlug:    cfg.Quiz.DefaultSlug,
	})
	wsHandler := transport.NewWSHandler(service, logger)

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
		logger.Info("starting quiz service",
			zap.String("port", finalPort),
			zap.String("progress_backend", cfg.Progress.Backend),
			zap.Bool("postgres", pool != nil),
			zap.Bool("redis", redisClient != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// Hijacked websocket connections outlive Shutdown; close them before draining results.
	wsHandler.Close()
	service.Shutdown()
	return err
}
