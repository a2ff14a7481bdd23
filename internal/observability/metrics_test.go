package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.IncUpload("assembled")
	m.IncMediaTransition(types.MediaTypeVideo, types.MediaStatusPublished)
	m.IncWebhook("encoder", "success")
	m.ObserveVendorCall("encoder", "create_job", nil, time.Millisecond)
	m.ObserveJobRun("transcode_media", "succeeded", time.Second)
	m.AddScratchSwept(3)
	m.ObserveStorageBootstrap("gcs", "explicit", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil handler: want=503 got=%d", rec.Code)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncUpload("duplicate")
	m.IncUpload("duplicate")
	m.IncMediaTransition(types.MediaTypeVideo, types.MediaStatusFailed)
	m.ObserveVendorCall("threeplay", "submit_file", errors.New("boom"), 10*time.Millisecond)
	m.IncWebhook("", "")

	if got := testutil.ToFloat64(m.uploads.WithLabelValues("duplicate")); got != 2 {
		t.Fatalf("uploads: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.mediaTransitions.WithLabelValues("video", "Failed")); got != 1 {
		t.Fatalf("transitions: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.vendorCalls.WithLabelValues("threeplay", "submit_file", "error")); got != 1 {
		t.Fatalf("vendor calls: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.webhooks.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("webhooks: want=1 got=%v", got)
	}
}

func TestStorageBootstrapMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStorageBootstrap("gcs_emulator", "inferred", "missing_emulator_host")
	if got := testutil.CollectAndCount(m.storageMode); got != 0 {
		t.Fatalf("mode gauge set on failure: %d series", got)
	}
	m.ObserveStorageBootstrap("gcs_emulator", "inferred", "ok")
	m.ObserveStorageBootstrap("gcs", "explicit", "ok")

	if got := testutil.ToFloat64(m.storageBootstrap.WithLabelValues("gcs_emulator", "missing_emulator_host")); got != 1 {
		t.Fatalf("failed bootstraps: want=1 got=%v", got)
	}
	if got := testutil.CollectAndCount(m.storageMode); got != 1 {
		t.Fatalf("mode gauge: want one series, got %d", got)
	}
	if got := testutil.ToFloat64(m.storageMode.WithLabelValues("gcs", "explicit")); got != 1 {
		t.Fatalf("mode gauge: want=1 got=%v", got)
	}
}

func TestMetricsHandlerExposition(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveAPI("POST", "/api/media/upload", 201, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	want := `mediaforge_http_requests_total{method="POST",route="/api/media/upload",status="201"} 1`
	if !strings.Contains(string(body), want) {
		t.Fatalf("exposition missing %q:\n%s", want, body)
	}
}
