package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

const (
	failedExportsKey = "exports:failed"
	notifyLockPrefix = "notify:meeting:"
	notifyLockExpiry = 24 * time.Hour
)

// NewRedisClient creates and pings a redis client
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Cache wraps the redis operations this service needs: the operator queue
// for permanently failed exports and a cross-process notification lock.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCache creates a new Cache
func NewCache(client *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// PushFailed puts a permanently failed export record on the operator queue
func (c *Cache) PushFailed(ctx context.Context, rec *entities.ExportRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := c.client.LPush(ctx, failedExportsKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue export record: %w", err)
	}
	return nil
}

// AcquireNotifyLock claims the right to notify reviewers about a meeting.
// Returns false when another process already claimed it. The lock expires
// so a crashed holder cannot suppress notifications forever.
func (c *Cache) AcquireNotifyLock(ctx context.Context, meetingID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, notifyLockPrefix+meetingID, 1, notifyLockExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire notify lock: %w", err)
	}
	return ok, nil
}
