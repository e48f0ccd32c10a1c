package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/phambaophuc/alt-text-relay/internal/metrics"
	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/phambaophuc/alt-text-relay/internal/services/extractor"
	"github.com/phambaophuc/alt-text-relay/internal/services/fetcher"
	"github.com/phambaophuc/alt-text-relay/internal/services/gemini"
	"github.com/phambaophuc/alt-text-relay/internal/services/prompt"
	"go.uber.org/zap"
)

const (
	altTextFailed      = "Error generating alt text"
	altTextMissing     = "Alt text not generated"
	issueInvalidReply  = "Invalid AI response format"
	issueRequestFailed = "Gemini request failed"
	issueRateLimited   = "Gemini rate limited"
	issueTimeout       = "Gemini request timed out"
	issueRejected      = "Gemini rejected the request"
	issueInternal      = "Internal processing error"
)

type state int

const (
	stateStart state = iota
	stateFetch
	stateBuildVision
	stateBuildText
	stateInvoke
	stateExtract
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateFetch:
		return "fetch"
	case stateBuildVision:
		return "build_vision"
	case stateBuildText:
		return "build_text"
	case stateInvoke:
		return "invoke"
	case stateExtract:
		return "extract"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// imageRun holds everything scoped to one image.
type imageRun struct {
	url      string
	context  map[string]any
	mode     prompt.Mode
	image    *fetcher.Image
	payload  gemini.Payload
	reply    models.AIReply
	fellBack bool
	cached   bool
	err      error
	result   models.ImageResult
}

// processImage never fails: every error ends in a placeholder result. The
// boolean reports whether the model produced a usable reply.
func (o *Orchestrator) processImage(ctx context.Context, imageURL string, imageContext map[string]any, logger *zap.Logger) (result models.ImageResult, ok bool) {
	logger = logger.With(zap.String("image", imageURL))
	run := &imageRun{url: imageURL, context: imageContext}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing image",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			metrics.IncImage(run.mode.String(), "panic")
			result, ok = placeholder(imageURL, issueInternal), false
		}
	}()

	st := stateStart
	for st != stateDone {
		st = o.step(ctx, st, run, logger)
	}

	outcome := "ok"
	switch {
	case run.err != nil:
		outcome = "failed"
	case run.reply.Parsed == nil:
		outcome = "unparsed"
	}
	metrics.IncImage(run.mode.String(), outcome)

	return run.result, run.err == nil
}

func (o *Orchestrator) step(ctx context.Context, st state, run *imageRun, logger *zap.Logger) state {
	switch st {
	case stateStart:
		if o.deps.Cache != nil {
			if raw, ok := o.cachedReply(ctx, run, logger); ok {
				run.reply.RawText = raw
				run.cached = true
				return stateExtract
			}
		}
		if o.opts.VisionEnabled {
			return stateFetch
		}
		return stateBuildText

	case stateFetch:
		img, err := o.deps.Fetcher.Fetch(ctx, run.url)
		if err != nil {
			metrics.IncFetchFailure()
			logger.Debug("Image fetch failed, using text-only prompt", zap.Error(err))
			return stateBuildText
		}
		run.image = img
		return stateBuildVision

	case stateBuildVision:
		payload, err := o.deps.Builder.Build(run.url, run.context, prompt.ModeVision, run.image)
		if err != nil {
			logger.Debug("Vision prompt unavailable, using text-only prompt", zap.Error(err))
			return stateBuildText
		}
		run.mode = prompt.ModeVision
		run.payload = payload
		return stateInvoke

	case stateBuildText:
		payload, err := o.deps.Builder.Build(run.url, run.context, prompt.ModeTextOnly, nil)
		if err != nil {
			run.err = err
			run.result = placeholder(run.url, issueInternal)
			logger.Error("Failed to build prompt", zap.Error(err))
			return stateDone
		}
		run.mode = prompt.ModeTextOnly
		run.payload = payload
		return stateInvoke

	case stateInvoke:
		raw, err := o.deps.Client.Generate(ctx, run.payload)
		if err != nil {
			// A rate-limited provider would reject the text-only call too.
			if run.mode == prompt.ModeVision && !run.fellBack && !isRateLimited(err) {
				run.fellBack = true
				logger.Warn("Vision request failed, retrying text-only", zap.Error(err))
				return stateBuildText
			}
			run.err = err
			run.result = placeholder(run.url, issueFor(err))
			logger.Error("Failed to generate alt text",
				zap.String("mode", run.mode.String()),
				zap.Error(err))
			return stateDone
		}
		run.reply.RawText = raw
		return stateExtract

	case stateExtract:
		run.reply.Parsed = extractor.Extract(run.reply.RawText)
		run.result = resultFrom(run.url, run.reply)
		if run.reply.Parsed == nil {
			logger.Warn("Model reply is not a JSON object", zap.Bool("cached", run.cached))
		} else if o.cacheable(run) {
			o.storeReply(ctx, run, logger)
		}
		return stateDone
	}

	run.err = fmt.Errorf("unknown state %s", st)
	run.result = placeholder(run.url, issueInternal)
	return stateDone
}

func (o *Orchestrator) cachedReply(ctx context.Context, run *imageRun, logger *zap.Logger) (string, bool) {
	raw, ok, err := o.deps.Cache.GetReply(ctx, o.opts.CacheKey(run.url, run.context))
	if err != nil {
		logger.Warn("Reply cache lookup failed", zap.Error(err))
		return "", false
	}
	return raw, ok
}

// cacheable reports whether a fresh reply was produced in the best mode
// available. Text-only replies are not cached while vision is enabled.
func (o *Orchestrator) cacheable(run *imageRun) bool {
	if o.deps.Cache == nil || run.cached {
		return false
	}
	return run.mode == prompt.ModeVision || !o.opts.VisionEnabled
}

func (o *Orchestrator) storeReply(ctx context.Context, run *imageRun, logger *zap.Logger) {
	if err := o.deps.Cache.SetReply(ctx, o.opts.CacheKey(run.url, run.context), run.reply.RawText); err != nil {
		logger.Warn("Failed to cache reply", zap.Error(err))
	}
}

func resultFrom(imageURL string, reply models.AIReply) models.ImageResult {
	parsed := reply.Parsed
	if parsed == nil {
		altText := reply.RawText
		if altText == "" {
			altText = altTextMissing
		}
		return models.ImageResult{
			Image:   imageURL,
			AltText: altText,
			Score:   "",
			Issues:  issueInvalidReply,
		}
	}

	result := models.ImageResult{
		Image:    imageURL,
		AltText:  parsed.AltText,
		Score:    "",
		Issues:   parsed.Issues,
		Filename: parsed.Filename,
	}
	if parsed.Score != nil {
		result.Score = *parsed.Score
	}
	return result
}

func placeholder(imageURL, issue string) models.ImageResult {
	return models.ImageResult{
		Image:   imageURL,
		AltText: altTextFailed,
		Score:   "",
		Issues:  issue,
	}
}

func isRateLimited(err error) bool {
	var perr *gemini.ProviderError
	return errors.As(err, &perr) && perr.Kind == gemini.KindRateLimited
}

// issueFor maps a provider failure to a caller-safe label.
func issueFor(err error) string {
	var perr *gemini.ProviderError
	if !errors.As(err, &perr) {
		return issueRequestFailed
	}
	switch perr.Kind {
	case gemini.KindRateLimited:
		return issueRateLimited
	case gemini.KindTimeout:
		return issueTimeout
	case gemini.KindRejected:
		return issueRejected
	default:
		return issueRequestFailed
	}
}
