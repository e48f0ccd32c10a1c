package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alttext"

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total Gemini requests by model and result",
		},
		[]string{"model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of Gemini requests by model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Total number of Gemini retries",
		},
	)

	imagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_processed_total",
			Help:      "Images processed by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	fetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_fetch_failures_total",
			Help:      "Image downloads that fell back to text-only prompts",
		},
	)

	quotaRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Batches rejected by the daily quota",
		},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_images",
			Help:      "Number of images per accepted batch",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 50},
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(providerReqs, providerLatency, retriesTotal, imagesProcessed, fetchFailures, quotaRejections, batchSize)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(model, result).Inc()
	providerLatency.WithLabelValues(model).Observe(dur.Seconds())
}

func IncRetry()          { retriesTotal.Inc() }
func IncFetchFailure()   { fetchFailures.Inc() }
func IncQuotaRejection() { quotaRejections.Inc() }

func IncImage(mode, outcome string) { imagesProcessed.WithLabelValues(mode, outcome).Inc() }

func ObserveBatch(images int) { batchSize.Observe(float64(images)) }
