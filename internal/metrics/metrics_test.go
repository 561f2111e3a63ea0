package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T, registry *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gatherに失敗: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewCollector_RegistersAllMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	// 全メトリクスに触れてからGatherする
	c.RecordIngestSuccess()
	c.RecordIngestFailure("FETCH_FAILED")
	c.RecordIngestLatency(150 * time.Millisecond)
	c.RecordEntriesUpserted(3)
	c.RecordRefreshCycle()
	c.RecordOrphansDeleted(2)

	names := gatheredNames(t, registry)
	want := []string{
		"feedhub_ingest_success_total",
		"feedhub_ingest_fail_total",
		"feedhub_ingest_latency_seconds",
		"feedhub_entries_upserted_total",
		"feedhub_refresh_cycles_total",
		"feedhub_orphan_entries_deleted_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("メトリクス %s が登録されているべき", name)
		}
	}
}

func TestCollector_CounterValues(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordIngestSuccess()
	c.RecordIngestSuccess()
	c.RecordEntriesUpserted(5)
	c.RecordOrphansDeleted(7)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gatherに失敗: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}

	if values["feedhub_ingest_success_total"] != 2 {
		t.Errorf("ingest_success = %v, want 2", values["feedhub_ingest_success_total"])
	}
	if values["feedhub_entries_upserted_total"] != 5 {
		t.Errorf("entries_upserted = %v, want 5", values["feedhub_entries_upserted_total"])
	}
	if values["feedhub_orphan_entries_deleted_total"] != 7 {
		t.Errorf("orphans_deleted = %v, want 7", values["feedhub_orphan_entries_deleted_total"])
	}
}

func TestCollector_FailureCodeLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordIngestFailure("FETCH_FAILED")
	c.RecordIngestFailure("FETCH_FAILED")
	c.RecordIngestFailure("SSRF_BLOCKED")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gatherに失敗: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != "feedhub_ingest_fail_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("ラベル数 = %d, want 2 (コード別)", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			code := m.GetLabel()[0].GetValue()
			value := m.GetCounter().GetValue()
			switch code {
			case "FETCH_FAILED":
				if value != 2 {
					t.Errorf("FETCH_FAILED = %v, want 2", value)
				}
			case "SSRF_BLOCKED":
				if value != 1 {
					t.Errorf("SSRF_BLOCKED = %v, want 1", value)
				}
			default:
				t.Errorf("予期しないコードラベル: %s", code)
			}
		}
		return
	}
	t.Fatal("feedhub_ingest_fail_totalが見つからない")
}

func TestHandler_ServesPrometheusFormat(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	c.RecordIngestSuccess()

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "feedhub_ingest_success_total 1") {
		t.Errorf("スクレイプ出力にカウンタ値が含まれるべき: %s", rec.Body.String())
	}
}
