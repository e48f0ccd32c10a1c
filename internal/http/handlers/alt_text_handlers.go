package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/alt-text-relay/internal/config"
	"github.com/phambaophuc/alt-text-relay/internal/http/middleware"
	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/phambaophuc/alt-text-relay/internal/services/quota"
	"go.uber.org/zap"
)

const livenessMessage = "Alt Text Generator Backend Running"

type BatchProcessor interface {
	Process(ctx context.Context, req models.BatchRequest) (models.BatchResponse, error)
}

type UsageReader interface {
	Usage(ctx context.Context, identity string) (models.QuotaRecord, error)
	Limit() int
}

type StorageHealth interface {
	HealthCheck(ctx context.Context) map[string]string
}

type QueueHealth interface {
	HealthCheck() string
	Stats() (*models.QueueStats, error)
}

type AltTextHandler struct {
	processor BatchProcessor
	usage     UsageReader
	storage   StorageHealth
	queue     QueueHealth
	logger    *zap.Logger
	config    *config.Config
}

func NewAltTextHandler(
	processor BatchProcessor,
	usage UsageReader,
	storage StorageHealth,
	queue QueueHealth,
	logger *zap.Logger,
	config *config.Config,
) *AltTextHandler {
	return &AltTextHandler{
		processor: processor,
		usage:     usage,
		storage:   storage,
		queue:     queue,
		logger:    logger,
		config:    config,
	}
}

func (h *AltTextHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, livenessMessage)
}

// GenerateAlt handles POST /generate-alt. Per-image failures are part of a
// 200 response; only quota rejections and orchestration faults are not.
func (h *AltTextHandler) GenerateAlt(c *gin.Context) {
	var body models.GenerateAltRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Images == nil {
		body.Images = []string{}
	}

	req := models.BatchRequest{
		RequestID:      c.GetString(middleware.RequestIDKey),
		Images:         body.Images,
		Context:        body.Context,
		CallerIdentity: c.GetString(middleware.CallerIdentityKey),
		IsPrivileged:   c.GetBool(middleware.PrivilegedKey),
	}

	// A client hanging up does not abort a batch that already consumed quota.
	ctx := context.WithoutCancel(c.Request.Context())

	resp, err := h.processor.Process(ctx, req)
	if err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			h.respondError(c, http.StatusTooManyRequests,
				fmt.Sprintf("Daily quota limit exceeded (%d images per day).", exceeded.Limit))
			return
		}

		h.logger.Error("Failed to process batch",
			zap.String("request_id", req.RequestID),
			zap.String("identity", req.CallerIdentity),
			zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Usage reports the caller's consumption for the current day.
func (h *AltTextHandler) Usage(c *gin.Context) {
	identity := c.GetString(middleware.CallerIdentityKey)
	privileged := c.GetBool(middleware.PrivilegedKey)

	record, err := h.usage.Usage(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error("Failed to read usage", zap.String("identity", identity), zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	remaining := max(h.usage.Limit()-record.Count, 0)
	if privileged {
		remaining = quota.Unlimited
	}

	c.JSON(http.StatusOK, models.UsageResponse{
		Identity:   identity,
		Day:        record.Day,
		Used:       record.Count,
		Remaining:  remaining,
		DailyLimit: h.usage.Limit(),
		Privileged: privileged,
	})
}

// HealthCheck
func (h *AltTextHandler) HealthCheck(c *gin.Context) {
	services := h.storage.HealthCheck(c.Request.Context())
	services["queue"] = h.queue.HealthCheck()
	var queueStats *models.QueueStats
	if services["queue"] == models.StatusHealthy {
		stats, err := h.queue.Stats()
		if err != nil {
			h.logger.Warn("Failed to read queue stats", zap.Error(err))
			services["queue"] = "unhealthy: " + err.Error()
		}
		queueStats = stats
	}
	if h.config.Gemini.APIKey != "" {
		services["gemini"] = models.StatusHealthy
	} else {
		services["gemini"] = models.StatusNotConfigured
	}

	overall := calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.HealthCheck{
		Status:    overall,
		Model:     h.config.Gemini.Model,
		Timestamp: time.Now(),
		Services:  services,
		Queue:     queueStats,
	})
}

func calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != models.StatusHealthy && status != models.StatusNotConfigured {
			return "unhealthy"
		}
	}
	return "healthy"
}

func (h *AltTextHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
