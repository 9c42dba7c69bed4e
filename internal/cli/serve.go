package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebuka1017/Robin/internal/api"
	"github.com/ebuka1017/Robin/internal/bedrock"
	"github.com/ebuka1017/Robin/internal/cache"
	"github.com/ebuka1017/Robin/internal/config"
	"github.com/ebuka1017/Robin/internal/gateway"
	"github.com/ebuka1017/Robin/internal/store"
	"github.com/ebuka1017/Robin/internal/streaming"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Robin backend server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Cache: Redis when configured and reachable, in-memory otherwise.
			var c cache.Cache
			if cfg.Redis.Addr != "" {
				redisCache := cache.NewRedis(cfg.Redis, log)
				if err := redisCache.Ping(ctx); err != nil {
					log.Warn().Err(err).Str("addr", cfg.Redis.Addr).
						Msg("redis unreachable, falling back to in-memory cache")
					redisCache.Close()
					c = cache.NewMemory()
				} else {
					log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis cache")
					c = redisCache
				}
			} else {
				log.Info().Msg("using in-memory cache")
				c = cache.NewMemory()
			}
			defer c.Close()

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = filepath.Join(paths.Data, "robin.db")
			}
			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			sessions := store.NewSessionStore(db)
			log.Info().Str("path", dbPath).Msg("using SQLite session store")

			marker := cache.NewActiveMarker(c, time.Duration(cfg.Session.ActiveTTLSeconds)*time.Second)
			tools := gateway.New(cfg.Gateway, c, log)

			model, err := bedrock.NewClient(ctx, cfg.Model.Region, cfg.Model.ModelID, log.Sub("bedrock"))
			if err != nil {
				return fmt.Errorf("initializing bedrock client: %w", err)
			}

			streamer := streaming.NewService(
				streaming.ServiceConfig{
					VoiceID: cfg.Model.VoiceID,
					Inference: streaming.InferenceConfiguration{
						MaxTokens:   cfg.Model.MaxTokens,
						TopP:        cfg.Model.TopP,
						Temperature: cfg.Model.Temperature,
					},
				},
				model.Factory(),
				tools,
				sessions,
				marker,
				log.Sub("stream"),
			)

			// Expired sessions are purged periodically in the background.
			go purgeLoop(ctx, sessions)

			srv := api.New(cfg, log, sessions, c, marker, streamer)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

const purgeInterval = time.Hour

func purgeLoop(ctx context.Context, sessions *store.SessionStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.PurgeExpired(); n > 0 {
				log.Info().Int("count", n).Msg("purged expired sessions")
			}
		}
	}
}
