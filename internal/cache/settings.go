package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
)

const (
	settingsKey = "detailflow:settings:" + settingsdomain.GlobalID
	settingsTTL = 5 * time.Minute
)

type redisSettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type localSettingsCache struct {
	store Cache[string, settingsdomain.Settings]
	ttl   time.Duration
}

// NewSettingsCache returns a Redis-backed settings cache, or an in-process one
// when client is nil.
func NewSettingsCache(client *redis.Client) settingsdomain.Cache {
	if client == nil {
		return &localSettingsCache{
			store: NewTTLCache[string, settingsdomain.Settings](),
			ttl:   settingsTTL,
		}
	}
	return &redisSettingsCache{client: client, ttl: settingsTTL}
}

func (c *redisSettingsCache) Get(ctx context.Context) (*settingsdomain.Settings, error) {
	raw, err := c.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var settings settingsdomain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		// a stale or foreign payload is treated as a miss
		_ = c.client.Del(ctx, settingsKey).Err()
		return nil, nil
	}
	settings.ID = settingsdomain.GlobalID
	return &settings, nil
}

func (c *redisSettingsCache) Set(ctx context.Context, settings settingsdomain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, settingsKey, raw, c.ttl).Err()
}

func (c *redisSettingsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, settingsKey).Err()
}

func (c *localSettingsCache) Get(context.Context) (*settingsdomain.Settings, error) {
	settings, ok := c.store.Get(settingsKey)
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (c *localSettingsCache) Set(_ context.Context, settings settingsdomain.Settings) error {
	c.store.Set(settingsKey, settings, c.ttl)
	return nil
}

func (c *localSettingsCache) Invalidate(context.Context) error {
	c.store.Delete(settingsKey)
	return nil
}
