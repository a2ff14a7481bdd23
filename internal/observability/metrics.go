package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// Metrics is the pipeline's Prometheus surface. Every method is safe on a nil receiver so
// callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	uploads          *prometheus.CounterVec
	mediaTransitions *prometheus.CounterVec
	captionStatus    *prometheus.CounterVec
	webhooks         *prometheus.CounterVec
	vendorCalls      *prometheus.CounterVec
	vendorLatency    *prometheus.HistogramVec
	jobRuns          *prometheus.CounterVec
	jobLatency       *prometheus.HistogramVec
	scratchSwept     prometheus.Counter

	storageMode      *prometheus.GaugeVec
	storageBootstrap *prometheus.CounterVec

	queueDepth *prometheus.GaugeVec
	dbStats    *prometheus.GaugeVec
	redisUp    prometheus.Gauge
	redisPing  prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide Metrics when METRICS_ENABLED is set, else returns nil.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		instance = NewMetrics(reg)
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediaforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediaforge_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_upload_chunks_total",
			Help: "Chunk upload outcomes.",
		}, []string{"outcome"}),
		mediaTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_media_transitions_total",
			Help: "Media lifecycle transitions.",
		}, []string{"media_type", "to"}),
		captionStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_caption_transitions_total",
			Help: "Caption request transitions by target status.",
		}, []string{"to"}),
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_webhooks_total",
			Help: "Inbound vendor webhooks by source and outcome.",
		}, []string{"source", "outcome"}),
		vendorCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_vendor_calls_total",
			Help: "Outbound vendor calls by vendor, operation and status.",
		}, []string{"vendor", "operation", "status"}),
		vendorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediaforge_vendor_call_duration_seconds",
			Help:    "Outbound vendor call latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"vendor", "operation"}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_job_runs_total",
			Help: "Job executions by type and result.",
		}, []string{"job_type", "status"}),
		jobLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediaforge_job_run_duration_seconds",
			Help:    "Job execution time in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job_type"}),
		scratchSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "mediaforge_scratch_sessions_swept_total",
			Help: "Abandoned upload sessions removed from scratch.",
		}),
		storageMode: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mediaforge_object_storage_mode",
			Help: "1 for the object storage mode this process runs with.",
		}, []string{"mode", "mode_source"}),
		storageBootstrap: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaforge_object_storage_bootstrap_total",
			Help: "Object storage bootstrap attempts by mode and result.",
		}, []string{"mode", "result"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mediaforge_job_queue_depth",
			Help: "Job queue depth by status.",
		}, []string{"status"}),
		dbStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mediaforge_db_stats",
			Help: "database/sql pool stats.",
		}, []string{"metric"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediaforge_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediaforge_redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IncUpload records one chunk request outcome: chunk_received, assembled, duplicate, rejected, failed.
func (m *Metrics) IncUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *Metrics) IncMediaTransition(mediaType types.MediaType, to types.MediaStatus) {
	if m == nil {
		return
	}
	m.mediaTransitions.WithLabelValues(orUnknown(string(mediaType)), orUnknown(string(to))).Inc()
}

func (m *Metrics) IncCaptionTransition(to types.CaptionStatus) {
	if m == nil {
		return
	}
	m.captionStatus.WithLabelValues(orUnknown(string(to))).Inc()
}

func (m *Metrics) IncWebhook(source, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(orUnknown(source), orUnknown(outcome)).Inc()
}

func (m *Metrics) ObserveVendorCall(vendor, operation string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.vendorCalls.WithLabelValues(orUnknown(vendor), orUnknown(operation), status).Inc()
	m.vendorLatency.WithLabelValues(orUnknown(vendor), orUnknown(operation)).Observe(dur.Seconds())
}

func (m *Metrics) ObserveJobRun(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(orUnknown(jobType), orUnknown(status)).Inc()
	m.jobLatency.WithLabelValues(orUnknown(jobType)).Observe(dur.Seconds())
}

// ObserveStorageBootstrap records one storage client bootstrap. result is "ok" or the
// bootstrap error code. A successful bootstrap also sets the mode gauge.
func (m *Metrics) ObserveStorageBootstrap(mode, modeSource, result string) {
	if m == nil {
		return
	}
	m.storageBootstrap.WithLabelValues(orUnknown(mode), orUnknown(result)).Inc()
	if result == "ok" {
		m.storageMode.Reset()
		m.storageMode.WithLabelValues(orUnknown(mode), orUnknown(modeSource)).Set(1)
	}
}

func (m *Metrics) AddScratchSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scratchSwept.Add(float64(n))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go m.every(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: db stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
		m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
		m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
		m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
		m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	statuses := []string{
		types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded,
		types.JobStatusFailed, types.JobStatusDead,
	}
	go m.every(ctx, func() {
		var rows []struct {
			Status string
			Count  int64
		}
		if err := db.WithContext(ctx).
			Model(&types.JobRun{}).
			Select("status, count(*) as count").
			Group("status").
			Scan(&rows).Error; err != nil {
			if log != nil {
				log.Warn("metrics: job queue depth query failed", "error", err)
			}
			return
		}
		for _, s := range statuses {
			m.queueDepth.WithLabelValues(s).Set(0)
		}
		for _, row := range rows {
			m.queueDepth.WithLabelValues(orUnknown(row.Status)).Set(float64(row.Count))
		}
	})
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
