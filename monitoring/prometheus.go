package monitoring

import (
	"net/http"
	"time"

	"github.com/mezonai/ethash/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type VerifyOutcome string

var (
	VerifyOK                 VerifyOutcome = "ok"
	VerifyInvalidNonce       VerifyOutcome = "invalid_nonce"
	VerifyInvalidDifficulty  VerifyOutcome = "invalid_difficulty"
	VerifyInvalidHeaderField VerifyOutcome = "invalid_header_field"
	VerifyUnknownEpoch       VerifyOutcome = "unknown_epoch"
)

type ethashPromMetrics struct {
	upUnixSeconds       prometheus.Gauge
	panicCount          prometheus.Counter
	lightCaches         prometheus.Gauge
	lightCacheBuildTime prometheus.Histogram
	datasetBuildTime    prometheus.Histogram
	datasetProgress     prometheus.Gauge
	generatingEpoch     prometheus.Gauge
	residentDatasets    prometheus.Gauge
	verifications       *prometheus.CounterVec
	sealHashes          prometheus.Counter
}

func newEthashPromMetrics() *ethashPromMetrics {
	return &ethashPromMetrics{
		upUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ethash_up_timestamp_unix_seconds",
				Help: "Unix timestamp at which the ethash subsystem was loaded",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ethash_panic_count",
				Help: "The total number of recovered panics in background goroutines",
			},
		),
		lightCaches: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ethash_light_caches",
				Help: "Number of light verification caches held in memory",
			},
		),
		lightCacheBuildTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ethash_light_cache_generation_seconds",
				Help:    "Time spent generating one light verification cache",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		datasetBuildTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ethash_dataset_generation_seconds",
				Help:    "Time spent generating one full mining dataset",
				Buckets: prometheus.ExponentialBuckets(0.01, 3, 12),
			},
		),
		datasetProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ethash_dataset_generation_progress_percent",
				Help: "Completion percentage of the running dataset generation",
			},
		),
		generatingEpoch: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ethash_dataset_generating_epoch",
				Help: "Epoch whose dataset is being generated, -1 when idle",
			},
		),
		residentDatasets: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ethash_resident_datasets",
				Help: "Number of completed full datasets still reachable",
			},
		),
		verifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethash_verifications_total",
				Help: "Header verifications by strictness level and outcome",
			},
			[]string{"level", "outcome"},
		),
		sealHashes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ethash_seal_hashes_total",
				Help: "Nonces tried by the seal search",
			},
		),
	}
}

var ethashMetrics = newEthashPromMetrics()

func init() {
	ethashMetrics.upUnixSeconds.SetToCurrentTime()
	ethashMetrics.generatingEpoch.Set(-1)
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func IncreasePanicCount() {
	ethashMetrics.panicCount.Inc()
}

func SetLightCacheCount(n int) {
	ethashMetrics.lightCaches.Set(float64(n))
}

func RecordLightCacheBuild(duration time.Duration) {
	ethashMetrics.lightCacheBuildTime.Observe(duration.Seconds())
}

func RecordDatasetBuild(duration time.Duration) {
	ethashMetrics.datasetBuildTime.Observe(duration.Seconds())
}

func SetDatasetProgress(percent uint32) {
	ethashMetrics.datasetProgress.Set(float64(percent))
}

// SetGeneratingEpoch publishes the epoch being generated; pass a negative
// value once the generator is idle again.
func SetGeneratingEpoch(epoch int64) {
	ethashMetrics.generatingEpoch.Set(float64(epoch))
}

func SetResidentDatasets(n int) {
	ethashMetrics.residentDatasets.Set(float64(n))
}

func RecordVerification(level string, outcome VerifyOutcome) {
	ethashMetrics.verifications.With(prometheus.Labels{
		"level":   level,
		"outcome": string(outcome),
	}).Inc()
}

func AddSealHashes(n uint64) {
	ethashMetrics.sealHashes.Add(float64(n))
}
