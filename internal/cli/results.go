package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"sporcle-bot/internal/app"
	"sporcle-bot/internal/config"
	"sporcle-bot/internal/infra/memory"
	pgstore "sporcle-bot/internal/infra/postgres"
	redisstore "sporcle-bot/internal/infra/redis"
	"sporcle-bot/internal/logging"
	transport "sporcle-bot/internal/transport/http"
)

// resultStores is the result repository picked from config: postgres (behind
// a stats cache) when configured, else redis, else memory.
type resultStores struct {
	results     app.ResultRepository
	leaderboard transport.Leaderboard
	closers     []func()
}

func (s *resultStores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openResults(ctx context.Context, cfg config.Config, log *logging.Logger) (*resultStores, error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := pgstore.NewResultStore(pool)
		log.Infof("recording results in postgres")
		return &resultStores{
			results:     memory.NewCachedResults(store, config.Duration(cfg.Stats.TTL, time.Minute)),
			leaderboard: store,
			closers:     []func(){pool.Close},
		}, nil

	case cfg.Redis.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store := redisstore.NewResultStore(client, config.Duration(cfg.Redis.TTL, 0))
		log.Infof("recording results in redis at %s", cfg.Redis.Addr)
		return &resultStores{
			results:     store,
			leaderboard: store,
			closers:     []func(){func() { client.Close() }},
		}, nil

	default:
		store := memory.NewResultStore()
		log.Infof("recording results in memory only")
		return &resultStores{results: store, leaderboard: store}, nil
	}
}
