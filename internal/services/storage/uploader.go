package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/phambaophuc/alt-text-relay/pkg/utils"
)

type archivedBatch struct {
	ID         string               `json:"id"`
	ArchivedAt time.Time            `json:"archived_at"`
	Results    []models.ImageResult `json:"results"`
}

// ArchiveBatch uploads the results of a batch as JSON and returns the public URL.
func (s *StorageService) ArchiveBatch(ctx context.Context, batchID string, results []models.ImageResult) (string, error) {
	if s.sbClient == nil {
		return "", ErrNotConfigured
	}

	now := time.Now()
	data, err := json.Marshal(archivedBatch{ID: batchID, ArchivedAt: now, Results: results})
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}

	return s.Upload(ctx, bytes.NewBuffer(data), utils.GenerateArchiveKey(batchID, now))
}

// Upload uploads file to Supabase Storage
func (s *StorageService) Upload(ctx context.Context, buffer *bytes.Buffer, key string) (string, error) {
	if s.sbClient == nil {
		return "", ErrNotConfigured
	}

	_, err := s.sbClient.UploadFile(s.bucket, key, bytes.NewReader(buffer.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := s.sbClient.GetPublicUrl(s.bucket, key)
	return publicURL.SignedURL, nil
}
