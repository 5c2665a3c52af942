package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chatstack/intentd/engine/cache"
	"github.com/chatstack/intentd/engine/classifier"
	"github.com/chatstack/intentd/engine/events"
	"github.com/chatstack/intentd/engine/flags"
	"github.com/chatstack/intentd/engine/gateway"
	"github.com/chatstack/intentd/engine/infra/monitoring"
	"github.com/chatstack/intentd/pkg/config"
	"github.com/chatstack/intentd/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the classification gateway",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon, err := monitoring.NewService(ctx, monitoring.DefaultConfig())
	if err != nil {
		return err
	}
	backends, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	gw, err := gateway.New(ctx, gateway.Params{
		Config: cfg,
		Engine: classifier.NewRuleEngine(),
		Cache:  backends.cache,
		Sink:   backends.sink,
		Flags:  backends.flags,
		Meter:  mon.Meter(),
	})
	if err != nil {
		return err
	}
	return gateway.NewServer(gw, mon).Run(ctx)
}

// backends bundles the storage collaborators, either Redis-backed or
// in-memory depending on configuration.
type backends struct {
	cache cache.DecisionCache
	sink  events.Sink
	flags flags.Store
	redis *redis.Client
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func buildBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	log := logger.FromContext(ctx)
	initial := cfg.Canary.Stages[0]

	if cfg.Redis.Addr == "" {
		log.Info("redis not configured, using in-memory backends")
		store, err := flags.NewMemoryStore(initial)
		if err != nil {
			return nil, err
		}
		return &backends{
			cache: cache.NewMemoryCache(cfg.Gateway.CacheSize, cfg.Gateway.CacheTTL),
			sink:  events.NewMemorySink(),
			flags: store,
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("connected to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)

	decisionCache, err := cache.NewRedisCache(client, cfg.Gateway.CacheTTL)
	if err != nil {
		return nil, err
	}
	sink, err := events.NewRedisSink(client)
	if err != nil {
		return nil, err
	}
	store, err := flags.NewRedisStore(client, initial)
	if err != nil {
		return nil, err
	}
	return &backends{cache: decisionCache, sink: sink, flags: store, redis: client}, nil
}
