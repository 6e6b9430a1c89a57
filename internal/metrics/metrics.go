// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReconcileRecorder はプロフィール整合処理の結果を記録する。
type ReconcileRecorder interface {
	RecordReconcile(result string)
}

// FormRecorder はフォーム送信の結果を記録する。
type FormRecorder interface {
	RecordFormOutcome(form, result string)
}

// RemoteCallRecorder は外部サービス呼び出しの結果とレイテンシを記録する。
type RemoteCallRecorder interface {
	RecordRemoteCall(service, op string, ok bool, duration time.Duration)
}

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	ReconcileRecorder
	FormRecorder
	RemoteCallRecorder
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reconcile   *prometheus.CounterVec
	forms       *prometheus.CounterVec
	remoteCalls *prometheus.CounterVec
	remoteLat   *prometheus.HistogramVec
	httpStatus  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_reconcile_total",
			Help: "プロフィールのメールアドレス整合処理の結果別件数",
		}, []string{"result"}),
		forms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_form_submissions_total",
			Help: "フォーム送信の結果別件数",
		}, []string{"form", "result"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_remote_calls_total",
			Help: "外部サービス呼び出しの件数",
		}, []string{"service", "op", "outcome"}),
		remoteLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilehub_remote_call_duration_seconds",
			Help:    "外部サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.reconcile,
		c.forms,
		c.remoteCalls,
		c.remoteLat,
		c.httpStatus,
	)

	return c
}

// RecordReconcile は整合処理の結果（noop, updated, failed, skipped）を記録する。
func (c *Collector) RecordReconcile(result string) {
	c.reconcile.WithLabelValues(result).Inc()
}

// RecordFormOutcome はフォーム送信の結果を記録する。
func (c *Collector) RecordFormOutcome(form, result string) {
	c.forms.WithLabelValues(form, result).Inc()
}

// RecordRemoteCall は外部サービス呼び出しを記録する。
func (c *Collector) RecordRemoteCall(service, op string, ok bool, duration time.Duration) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	c.remoteCalls.WithLabelValues(service, op, outcome).Inc()
	c.remoteLat.WithLabelValues(service, op).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
// テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordReconcile(string)                               {}
func (Nop) RecordFormOutcome(string, string)                     {}
func (Nop) RecordRemoteCall(string, string, bool, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                                 {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
