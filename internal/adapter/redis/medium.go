package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const probeKey = "reader:probe"

// Medium stores progress collections as plain Redis strings without expiry
type Medium struct {
	client *redis.Client
}

func NewMedium(client *redis.Client) *Medium {
	return &Medium{client: client}
}

func (m *Medium) Probe(ctx context.Context) error {
	if err := m.client.Set(ctx, probeKey, probeKey, 0).Err(); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	if err := m.client.Del(ctx, probeKey).Err(); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}

func (m *Medium) Read(ctx context.Context, key string) ([]byte, error) {
	val, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return val, nil
}

func (m *Medium) Write(ctx context.Context, key string, data []byte) error {
	if err := m.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set blob: %w", err)
	}
	return nil
}

func (m *Medium) Delete(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
