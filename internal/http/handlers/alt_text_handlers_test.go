package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/alt-text-relay/internal/config"
	"github.com/phambaophuc/alt-text-relay/internal/http/middleware"
	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/phambaophuc/alt-text-relay/internal/services/quota"
	"go.uber.org/zap"
)

type stubProcessor struct {
	got  models.BatchRequest
	resp models.BatchResponse
	err  error
}

func (p *stubProcessor) Process(ctx context.Context, req models.BatchRequest) (models.BatchResponse, error) {
	p.got = req
	return p.resp, p.err
}

type stubUsage struct {
	record models.QuotaRecord
	limit  int
}

func (u *stubUsage) Usage(ctx context.Context, identity string) (models.QuotaRecord, error) {
	r := u.record
	r.Identity = identity
	return r, nil
}

func (u *stubUsage) Limit() int { return u.limit }

type stubStorage map[string]string

func (s stubStorage) HealthCheck(ctx context.Context) map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type stubQueue struct {
	status string
	stats  *models.QueueStats
	err    error
}

func (q stubQueue) HealthCheck() string { return q.status }

func (q stubQueue) Stats() (*models.QueueStats, error) { return q.stats, q.err }

func newTestRouter(p BatchProcessor, storage stubStorage) *gin.Engine {
	return newTestRouterWithQueue(p, storage, stubQueue{status: models.StatusNotConfigured})
}

func newTestRouterWithQueue(p BatchProcessor, storage stubStorage, queue stubQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.InternalKey = "s3cret"
	cfg.Gemini.APIKey = "key"
	cfg.Gemini.Model = "gemini-1.5-flash"

	h := NewAltTextHandler(p, &stubUsage{record: models.QuotaRecord{Count: 4, Day: "2026-03-14"}, limit: 30},
		storage, queue, zap.NewNop(), cfg)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Caller(cfg.Server.InternalKey))
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	router.GET("/", h.Liveness)
	router.POST("/generate-alt", h.GenerateAlt)
	router.GET("/usage", h.Usage)
	router.GET("/health", h.HealthCheck)
	return router
}

func TestLiveness(t *testing.T) {
	router := newTestRouter(&stubProcessor{}, stubStorage{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK || w.Body.String() != livenessMessage {
		t.Errorf("Unexpected liveness response %d %q", w.Code, w.Body.String())
	}
}

func TestGenerateAlt(t *testing.T) {
	okResp := models.BatchResponse{Results: []models.ImageResult{
		{Image: "https://x/a.jpg", AltText: "Red shoe", Score: 90.0, Issues: "None", Filename: "red-shoe.jpg"},
	}}

	tests := []struct {
		name           string
		body           string
		processor      *stubProcessor
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success",
			body:           `{"images":["https://x/a.jpg"],"context":{"brand":"Acme"}}`,
			processor:      &stubProcessor{resp: okResp},
			expectedStatus: http.StatusOK,
			expectedBody:   `"alt_text":"Red shoe"`,
		},
		{
			name:           "quota exceeded",
			body:           `{"images":["https://x/a.jpg"]}`,
			processor:      &stubProcessor{err: &quota.ExceededError{Identity: "1.2.3.4", Limit: 10, Used: 10, Requested: 1}},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `{"error":"Daily quota limit exceeded (10 images per day)."}`,
		},
		{
			name:           "orchestration fault",
			body:           `{"images":["https://x/a.jpg"]}`,
			processor:      &stubProcessor{err: errors.New("store unavailable")},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Server error"}`,
		},
		{
			name:           "malformed body",
			body:           `{"images":`,
			processor:      &stubProcessor{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.processor, stubStorage{})
			req := httptest.NewRequest(http.MethodPost, "/generate-alt", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("Expected body to contain %s, got %s", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestGenerateAltBuildsBatchRequest(t *testing.T) {
	p := &stubProcessor{}
	router := newTestRouter(p, stubStorage{})

	req := httptest.NewRequest(http.MethodPost, "/generate-alt", strings.NewReader(`{"context":{"sku":"A1"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set(middleware.InternalKeyHeader, "s3cret")
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if p.got.CallerIdentity != "203.0.113.9" || !p.got.IsPrivileged || p.got.RequestID != "req-42" {
		t.Errorf("Unexpected batch request %+v", p.got)
	}
	if p.got.Images == nil || len(p.got.Images) != 0 {
		t.Errorf("Expected empty non-nil images, got %#v", p.got.Images)
	}
	if p.got.Context["sku"] != "A1" {
		t.Errorf("Expected context to pass through, got %v", p.got.Context)
	}
}

func TestUsage(t *testing.T) {
	router := newTestRouter(&stubProcessor{}, stubStorage{})
	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	req.RemoteAddr = "192.0.2.5:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var got models.UsageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	expected := models.UsageResponse{Identity: "192.0.2.5", Day: "2026-03-14", Used: 4, Remaining: 26, DailyLimit: 30}
	if got != expected {
		t.Errorf("Expected %+v, got %+v", expected, got)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		storage        stubStorage
		expectedStatus int
		expected       string
	}{
		{"all healthy", stubStorage{"redis": models.StatusHealthy, "supabase": models.StatusNotConfigured}, http.StatusOK, "healthy"},
		{"redis down", stubStorage{"redis": "unhealthy: dial tcp", "supabase": models.StatusNotConfigured}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubProcessor{}, tt.storage)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var got models.HealthCheck
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got.Status != tt.expected || got.Model != "gemini-1.5-flash" {
				t.Errorf("Unexpected health %+v", got)
			}
			if got.Services["queue"] != models.StatusNotConfigured || got.Services["gemini"] != models.StatusHealthy {
				t.Errorf("Unexpected services %v", got.Services)
			}
		})
	}
}

func TestHealthCheckQueueStats(t *testing.T) {
	storage := stubStorage{"redis": models.StatusNotConfigured, "supabase": models.StatusNotConfigured}
	tests := []struct {
		name           string
		queue          stubQueue
		expectedStatus int
		expectedQueue  string
		expectedStats  *models.QueueStats
	}{
		{
			name:           "healthy queue reports depth",
			queue:          stubQueue{status: models.StatusHealthy, stats: &models.QueueStats{Name: "alt_text_batches", Messages: 3, Consumers: 1}},
			expectedStatus: http.StatusOK,
			expectedQueue:  models.StatusHealthy,
			expectedStats:  &models.QueueStats{Name: "alt_text_batches", Messages: 3, Consumers: 1},
		},
		{
			name:           "inspect failure",
			queue:          stubQueue{status: models.StatusHealthy, err: errors.New("channel closed")},
			expectedStatus: http.StatusServiceUnavailable,
			expectedQueue:  "unhealthy: channel closed",
		},
		{
			name:           "not configured",
			queue:          stubQueue{status: models.StatusNotConfigured},
			expectedStatus: http.StatusOK,
			expectedQueue:  models.StatusNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouterWithQueue(&stubProcessor{}, storage, tt.queue)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var got models.HealthCheck
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got.Services["queue"] != tt.expectedQueue {
				t.Errorf("Expected queue status %q, got %q", tt.expectedQueue, got.Services["queue"])
			}
			switch {
			case tt.expectedStats == nil && got.Queue != nil:
				t.Errorf("Expected no queue stats, got %+v", got.Queue)
			case tt.expectedStats != nil && (got.Queue == nil || *got.Queue != *tt.expectedStats):
				t.Errorf("Expected queue stats %+v, got %+v", tt.expectedStats, got.Queue)
			}
		})
	}
}
