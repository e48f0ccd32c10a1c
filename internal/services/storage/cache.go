package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const CacheKeyPrefix = "alt_cache:"

// GenerateCacheKey identifies a model reply by image URL and caller context.
// Context keys are serialized in sorted order so equal maps hash equally.
func GenerateCacheKey(imageURL string, imageContext map[string]any) string {
	hash := sha256.New()
	hash.Write([]byte(imageURL))
	if len(imageContext) > 0 {
		encoded, err := json.Marshal(imageContext)
		if err == nil {
			hash.Write([]byte{0})
			hash.Write(encoded)
		}
	}
	return fmt.Sprintf("%s%x", CacheKeyPrefix, hash.Sum(nil))
}

// GetReply returns the cached raw reply for key. A miss is not an error.
func (s *StorageService) GetReply(ctx context.Context, key string) (string, bool, error) {
	if s.redisClient == nil {
		return "", false, ErrNotConfigured
	}

	data, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("cache get error: %w", err)
	}
	return data, true, nil
}

func (s *StorageService) SetReply(ctx context.Context, key, raw string) error {
	if s.redisClient == nil {
		return ErrNotConfigured
	}
	return s.redisClient.Set(ctx, key, raw, s.cacheDuration).Err()
}
