package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr         string
	Password     string
	AuthCacheTTL time.Duration
	ListCacheTTL time.Duration
}

type ValkeyClient struct {
	client       *redis.Client
	authCacheTTL time.Duration
	listCacheTTL time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:       rdb,
		authCacheTTL: cfg.AuthCacheTTL,
		listCacheTTL: cfg.ListCacheTTL,
	}, nil
}

// GetUserIDByToken looks up a previously verified bearer token
func (v *ValkeyClient) GetUserIDByToken(ctx context.Context, token string) (int64, error) {
	userIDStr, err := v.client.Get(ctx, "auth:token:"+token).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("token not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// SetUserIDByToken caches a verified token with a short TTL so repeated
// requests skip the identity provider round trip
func (v *ValkeyClient) SetUserIDByToken(ctx context.Context, token string, userID int64) error {
	return v.client.Set(ctx, "auth:token:"+token, strconv.FormatInt(userID, 10), v.authCacheTTL).Err()
}

// GetEventsListRaw returns the cached published-events page as raw JSON
func (v *ValkeyClient) GetEventsListRaw(ctx context.Context, page, pageSize int) ([]byte, error) {
	key := fmt.Sprintf("events:list:%d:%d", page, pageSize)
	raw, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("events list not found in cache")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return raw, nil
}

// SetEventsList stores a published-events page; failures are not propagated
func (v *ValkeyClient) SetEventsList(ctx context.Context, page, pageSize int, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal events list: %w", err)
	}
	key := fmt.Sprintf("events:list:%d:%d", page, pageSize)
	return v.client.Set(ctx, key, payload, v.listCacheTTL).Err()
}

// InvalidateEventsList drops all cached event pages after an admin write
func (v *ValkeyClient) InvalidateEventsList(ctx context.Context) error {
	iter := v.client.Scan(ctx, 0, "events:list:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := v.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
