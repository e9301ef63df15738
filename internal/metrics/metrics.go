// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordGeneration(isRefinement bool)
	RecordGenerationFailure()
	RecordTurnsAppended(count int)
	RecordLibrarySave()
	RecordHTTPStatus(statusCode int)
	RecordGenerationLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	generations       *prometheus.CounterVec
	generationFail    prometheus.Counter
	turnsAppended     prometheus.Counter
	librarySaves      prometheus.Counter
	httpStatus        *prometheus.CounterVec
	generationLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adfleek_generation_total",
			Help: "画像生成インテントの合計数",
		}, []string{"kind"}),
		generationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adfleek_generation_fail_total",
			Help: "永続化に失敗した画像生成の合計数",
		}),
		turnsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adfleek_turns_appended_total",
			Help: "会話へ追記された生成ターンの合計数",
		}),
		librarySaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adfleek_library_saves_total",
			Help: "ライブラリに保存された画像の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adfleek_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adfleek_generation_latency_seconds",
			Help:    "画像生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.generations,
		c.generationFail,
		c.turnsAppended,
		c.librarySaves,
		c.httpStatus,
		c.generationLatency,
	)

	return c
}

// RecordGeneration は画像生成インテントを記録する。
func (c *Collector) RecordGeneration(isRefinement bool) {
	kind := "batch"
	if isRefinement {
		kind = "refinement"
	}
	c.generations.WithLabelValues(kind).Inc()
}

// RecordGenerationFailure は永続化に失敗した画像生成を記録する。
func (c *Collector) RecordGenerationFailure() {
	c.generationFail.Inc()
}

// RecordTurnsAppended は会話へ追記されたターン数を記録する。
func (c *Collector) RecordTurnsAppended(count int) {
	c.turnsAppended.Add(float64(count))
}

// RecordLibrarySave はライブラリへの保存を記録する。
func (c *Collector) RecordLibrarySave() {
	c.librarySaves.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordGenerationLatency は画像生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
