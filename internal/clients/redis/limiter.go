package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

// RateCounter backs fixed-window rate limiting with shared Redis counters so
// limits hold across replicas.
type RateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
}

type rateCounter struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRateCounter(log *logger.Logger) (RateCounter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &rateCounter{
		log: log.With("client", "RedisRateCounter"),
		rdb: rdb,
	}, nil
}

func (rc *rateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (rc *rateCounter) Close() error {
	if rc == nil || rc.rdb == nil {
		return nil
	}
	return rc.rdb.Close()
}
