package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ProgressBackend stores progress blobs as plain Redis strings with no expiry.
type ProgressBackend struct {
	client *redis.Client
}

func NewProgressBackend(client *redis.Client) *ProgressBackend {
	return &ProgressBackend{client: client}
}

func (b *ProgressBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b *ProgressBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, key, value, 0).Err()
}

func (b *ProgressBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}
