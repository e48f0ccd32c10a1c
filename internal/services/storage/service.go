// Package storage archives batch results to Supabase Storage and caches model
// replies in Redis. Either backend may be absent.
package storage

import (
	"errors"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/config"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
)

var ErrNotConfigured = errors.New("storage backend not configured")

type StorageService struct {
	sbClient      *storage_go.Client
	redisClient   *redis.Client
	bucket        string
	cacheDuration time.Duration
}

// NewStorageService wires whichever backends cfg enables. redisClient may be nil.
func NewStorageService(cfg *config.Config, redisClient *redis.Client) *StorageService {
	s := &StorageService{
		redisClient:   redisClient,
		bucket:        cfg.Supabase.BUCKET,
		cacheDuration: cfg.Orchestrator.CacheDuration,
	}
	if cfg.Supabase.URL != "" && cfg.Supabase.KEY != "" && cfg.Supabase.BUCKET != "" {
		s.sbClient = storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
	}
	return s
}

// ArchiveEnabled reports whether batch results can be uploaded.
func (s *StorageService) ArchiveEnabled() bool { return s.sbClient != nil }

// CacheEnabled reports whether model replies can be cached.
func (s *StorageService) CacheEnabled() bool { return s.redisClient != nil }
