package storage

import (
	"context"

	"github.com/phambaophuc/alt-text-relay/internal/models"
	storage_go "github.com/supabase-community/storage-go"
)

// HealthCheck checks Redis + Supabase
func (s *StorageService) HealthCheck(ctx context.Context) map[string]string {
	status := make(map[string]string)

	if s.redisClient == nil {
		status["redis"] = models.StatusNotConfigured
	} else if err := s.redisClient.Ping(ctx).Err(); err != nil {
		status["redis"] = "unhealthy: " + err.Error()
	} else {
		status["redis"] = models.StatusHealthy
	}

	if s.sbClient == nil {
		status["supabase"] = models.StatusNotConfigured
	} else if _, err := s.sbClient.ListFiles(s.bucket, "", storage_go.FileSearchOptions{}); err != nil {
		status["supabase"] = "unhealthy: " + err.Error()
	} else {
		status["supabase"] = models.StatusHealthy
	}

	return status
}
