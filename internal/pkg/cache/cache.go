package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

// NewClient connects to the Redis/Dragonfly cache server. A failed ping is
// logged, not fatal: the client reconnects on its own once the server is up.
func NewClient(cfg config.Cache) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache: %v", err)
	} else {
		log.Infof("[Cache] Successfully connected to cache: %s", pong)
	}

	return client
}

// Ping checks the connection, used by the readiness endpoint.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// limiterDB keeps rate limiter keys apart from application keys.
const limiterDB = 1

// NewLimiterStorage returns a fiber.Storage on the cache server for the
// rate limiter, so limits hold across instances.
func NewLimiterStorage(cfg config.Cache) fiber.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: limiterDB,
		Reset:    false,
	})
}
