package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/futapp/futapp-api/internal/pkg/payme"
)

const webhookOutcomesKey = "payme:counters:outcomes"

// WebhookCounter keeps per method and result code counts of Payme callbacks
// in a Redis hash so every instance contributes to the same totals.
type WebhookCounter struct {
	client *redis.Client
	key    string
}

func NewWebhookCounter(client *redis.Client) *WebhookCounter {
	return &WebhookCounter{client: client, key: webhookOutcomesKey}
}

// Observe increments the counter of the outcome's method and code.
func (c *WebhookCounter) Observe(ctx context.Context, o payme.Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
	defer cancel()

	if err := c.client.HIncrBy(ctx, c.key, field(o.Method, o.Code), 1).Err(); err != nil {
		log.Warnf("[Counter] Failed to count %s outcome: %v", o.Method, err)
	}
}

// Snapshot returns the counts grouped by method and code.
func (c *WebhookCounter) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	return group(data), nil
}

// Drain returns the counts and resets them. The hash is renamed first so
// increments arriving meanwhile land in a fresh hash.
func (c *WebhookCounter) Drain(ctx context.Context) (map[string]map[string]int64, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", c.key, time.Now().UnixNano())
	if err := c.client.Rename(ctx, c.key, tmpKey).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return map[string]map[string]int64{}, nil
		}
		return nil, err
	}
	defer c.client.Del(context.WithoutCancel(ctx), tmpKey)

	data, err := c.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return group(data), nil
}

func field(method string, code int) string {
	if method == "" {
		method = "unknown"
	}
	return method + "|" + strconv.Itoa(code)
}

func group(data map[string]string) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	for k, v := range data {
		method, code, ok := strings.Cut(k, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		if out[method] == nil {
			out[method] = make(map[string]int64)
		}
		out[method][code] += n
	}
	return out
}
