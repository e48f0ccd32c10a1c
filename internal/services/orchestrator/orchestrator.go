// Package orchestrator turns a batch of image references into one alt-text
// result per image. Per-image failures become placeholder results; only quota
// rejections and faults outside the per-image boundary fail the batch.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/alt-text-relay/internal/metrics"
	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/phambaophuc/alt-text-relay/internal/services/fetcher"
	"github.com/phambaophuc/alt-text-relay/internal/services/gemini"
	"github.com/phambaophuc/alt-text-relay/internal/services/prompt"
	"github.com/phambaophuc/alt-text-relay/internal/services/quota"
	"go.uber.org/zap"
)

type QuotaChecker interface {
	CheckAndConsume(ctx context.Context, identity string, requested int, privileged bool) (quota.Decision, error)
	Limit() int
}

type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*fetcher.Image, error)
}

type PayloadBuilder interface {
	Build(imageRef string, ctx map[string]any, mode prompt.Mode, img *fetcher.Image) (gemini.Payload, error)
}

// ResultCache stores raw model replies. A miss returns ok=false and no error.
type ResultCache interface {
	GetReply(ctx context.Context, key string) (raw string, ok bool, err error)
	SetReply(ctx context.Context, key, raw string) error
}

type Archiver interface {
	ArchiveBatch(ctx context.Context, batchID string, results []models.ImageResult) (string, error)
}

type EventPublisher interface {
	PublishBatch(ctx context.Context, event *models.BatchEvent) error
}

type Deps struct {
	Quota     QuotaChecker
	Fetcher   ImageFetcher
	Builder   PayloadBuilder
	Client    gemini.Client
	Cache     ResultCache    // optional
	Archiver  Archiver       // optional
	Publisher EventPublisher // optional
	Logger    *zap.Logger
}

type Options struct {
	VisionEnabled bool
	ImageDelay    time.Duration
	// CacheKey derives the cache key for an image. Required when Deps.Cache is set.
	CacheKey func(imageURL string, imageContext map[string]any) string
}

type Orchestrator struct {
	deps  Deps
	opts  Options
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache != nil && opts.CacheKey == nil {
		deps.Cache = nil
	}
	return &Orchestrator{
		deps:  deps,
		opts:  opts,
		sleep: sleepContext,
		now:   time.Now,
	}
}

// Process checks the caller's quota once for the whole batch, then resolves
// every image in order. The returned error is *quota.ExceededError when the
// batch would exceed the daily cap; nothing is processed in that case.
func (o *Orchestrator) Process(ctx context.Context, req models.BatchRequest) (models.BatchResponse, error) {
	logger := o.deps.Logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("identity", req.CallerIdentity),
		zap.Int("images", len(req.Images)))

	decision, err := o.deps.Quota.CheckAndConsume(ctx, req.CallerIdentity, len(req.Images), req.IsPrivileged)
	if err != nil {
		return models.BatchResponse{}, fmt.Errorf("quota check: %w", err)
	}
	if !decision.Allowed {
		metrics.IncQuotaRejection()
		return models.BatchResponse{}, &quota.ExceededError{
			Identity:  req.CallerIdentity,
			Limit:     o.deps.Quota.Limit(),
			Used:      decision.Count,
			Requested: len(req.Images),
		}
	}

	batchID := uuid.NewString()
	logger = logger.With(zap.String("batch_id", batchID))
	metrics.ObserveBatch(len(req.Images))
	createdAt := o.now()

	results := make([]models.ImageResult, len(req.Images))
	failed := 0
	for i, imageURL := range req.Images {
		if i > 0 && o.opts.ImageDelay > 0 {
			o.sleep(ctx, o.opts.ImageDelay)
		}

		var ok bool
		results[i], ok = o.processImage(ctx, imageURL, req.Context, logger)
		if !ok {
			failed++
		}
	}

	logger.Info("Batch processed",
		zap.Int("failed", failed),
		zap.Int("remaining", decision.Remaining))

	o.finish(ctx, batchID, req, results, failed, createdAt, logger)

	return models.BatchResponse{Results: results}, nil
}

// finish archives results and announces the batch. Failures here never
// affect the response.
func (o *Orchestrator) finish(ctx context.Context, batchID string, req models.BatchRequest, results []models.ImageResult, failed int, createdAt time.Time, logger *zap.Logger) {
	if o.deps.Archiver == nil && o.deps.Publisher == nil {
		return
	}

	event := &models.BatchEvent{
		ID:             batchID,
		CallerIdentity: req.CallerIdentity,
		Privileged:     req.IsPrivileged,
		ImageCount:     len(results),
		Succeeded:      len(results) - failed,
		Failed:         failed,
		CreatedAt:      createdAt,
	}

	if o.deps.Archiver != nil {
		url, err := o.deps.Archiver.ArchiveBatch(ctx, batchID, results)
		if err != nil {
			logger.Warn("Failed to archive batch", zap.Error(err))
		} else {
			event.ArchiveURL = url
		}
	}

	if o.deps.Publisher != nil {
		event.CompletedAt = o.now()
		if err := o.deps.Publisher.PublishBatch(ctx, event); err != nil {
			logger.Warn("Failed to publish batch event", zap.Error(err))
		}
	}
}

// sleepContext waits for d or until ctx is done. Remaining images still get
// a result after cancellation; their network calls fail fast instead.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
