package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const isolatedTestRedisDB = 14

// TestClient returns a client on an isolated Redis DB, flushed before use.
// Tests are skipped when no Redis endpoint is reachable.
func TestClient(t *testing.T) *redis.Client {
	t.Helper()

	hosts := uniq(os.Getenv("CACHE_HOST"), "cache", "localhost", "127.0.0.1")
	ports := uniq(os.Getenv("CACHE_PORT"), "6379")
	passwords := append(uniq(os.Getenv("CACHE_PASSWORD")), "")

	var lastErr error
	for _, host := range hosts {
		for _, port := range ports {
			for _, password := range passwords {
				client := redis.NewClient(&redis.Options{
					Addr:     fmt.Sprintf("%s:%s", host, port),
					Password: password,
					DB:       isolatedTestRedisDB,
				})

				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				err := client.Ping(ctx).Err()
				if err == nil {
					err = client.FlushDB(ctx).Err()
				}
				cancel()
				if err == nil {
					t.Cleanup(func() { _ = client.Close() })
					return client
				}
				_ = client.Close()
				lastErr = err
			}
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}

func uniq(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
