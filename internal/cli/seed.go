package cli

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"op-quiz-engine/internal/config"
	"op-quiz-engine/internal/infra/content"
	"op-quiz-engine/internal/infra/postgres"
	rediscache "op-quiz-engine/internal/infra/redis"
	"op-quiz-engine/internal/logging"
)

// NewSeedCmd loads YAML quiz content into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz content files into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Quiz.ContentDir
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
				return err
			}

			loader, err := content.NewLoader(dir, logger)
			if err != nil {
				return err
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()
			seeder := postgres.NewSeeder(db)

			// Drop stale cached copies so running servers pick up the new content.
			var cache *rediscache.QuizRepository
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache = rediscache.NewQuizRepository(client, loader, 0, logger)
			}

			for _, quiz := range loader.All() {
				id, err := seeder.Seed(ctx, quiz)
				if err != nil {
					return fmt.Errorf("seed %s: %w", quiz.Slug, err)
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, quiz.Slug); err != nil {
						logger.Warn("invalidate quiz cache", zap.String("slug", quiz.Slug), zap.Error(err))
					}
				}
				logger.Info("quiz seeded",
					zap.String("slug", quiz.Slug),
					zap.String("id", id),
					zap.Int("questions", quiz.QuestionCount()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of quiz YAML files (defaults to quiz.content_dir)")
	return cmd
}
