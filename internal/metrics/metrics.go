// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやハンドラーから利用する。
type MetricsCollector interface {
	RecordIngestSuccess()
	RecordIngestFailure(code string)
	RecordIngestLatency(duration time.Duration)
	RecordEntriesUpserted(count int)
	RecordRefreshCycle()
	RecordOrphansDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ingestSuccess  prometheus.Counter
	ingestFail     *prometheus.CounterVec
	ingestLatency  prometheus.Histogram
	entriesUpsert  prometheus.Counter
	refreshCycles  prometheus.Counter
	orphansDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_ingest_success_total",
			Help: "フィード取り込み成功の合計数",
		}),
		ingestFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedhub_ingest_fail_total",
			Help: "エラーコード別のフィード取り込み失敗数",
		}, []string{"code"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedhub_ingest_latency_seconds",
			Help:    "フィード取り込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		entriesUpsert: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_entries_upserted_total",
			Help: "アップサートされたエントリの合計数",
		}),
		refreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_refresh_cycles_total",
			Help: "リフレッシュワーカーの巡回回数",
		}),
		orphansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_orphan_entries_deleted_total",
			Help: "削除された孤立エントリの合計数",
		}),
	}

	reg.MustRegister(
		c.ingestSuccess,
		c.ingestFail,
		c.ingestLatency,
		c.entriesUpsert,
		c.refreshCycles,
		c.orphansDeleted,
	)

	return c
}

// RecordIngestSuccess は取り込み成功を記録する。
func (c *Collector) RecordIngestSuccess() {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure は取り込み失敗をエラーコード別に記録する。
func (c *Collector) RecordIngestFailure(code string) {
	c.ingestFail.WithLabelValues(code).Inc()
}

// RecordIngestLatency は取り込みのレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// RecordEntriesUpserted はアップサートされたエントリ数を記録する。
func (c *Collector) RecordEntriesUpserted(count int) {
	c.entriesUpsert.Add(float64(count))
}

// RecordRefreshCycle はリフレッシュワーカーの巡回を記録する。
func (c *Collector) RecordRefreshCycle() {
	c.refreshCycles.Inc()
}

// RecordOrphansDeleted は削除された孤立エントリ数を記録する。
func (c *Collector) RecordOrphansDeleted(count int64) {
	c.orphansDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
