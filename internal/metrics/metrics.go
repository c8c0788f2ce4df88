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
// サービス層、ワーカー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordRequestCreated()
	RecordFormSubmitted()
	RecordRequestsExpired(source string, n int)
	RecordEmail(outcome string)
	RecordSessionsPurged(n int)
	RecordHTTPResponse(statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requestsCreated prometheus.Counter
	formsSubmitted  prometheus.Counter
	requestsExpired *prometheus.CounterVec
	emails          *prometheus.CounterVec
	sessionsPurged  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signica_requests_created_total",
			Help: "作成されたW-9依頼の合計数",
		}),
		formsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signica_forms_submitted_total",
			Help: "提出されたW-9フォームの合計数",
		}),
		requestsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signica_requests_expired_total",
			Help: "期限切れになった依頼数（read: 読み取り時, sweep: 定期処理, manual: 手動訂正）",
		}, []string{"source"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signica_emails_total",
			Help: "依頼メールの送信結果別の件数",
		}, []string{"outcome"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signica_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signica_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signica_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.requestsCreated,
		c.formsSubmitted,
		c.requestsExpired,
		c.emails,
		c.sessionsPurged,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordRequestCreated は依頼の作成を記録する。
func (c *Collector) RecordRequestCreated() {
	c.requestsCreated.Inc()
}

// RecordFormSubmitted はフォームの提出を記録する。
func (c *Collector) RecordFormSubmitted() {
	c.formsSubmitted.Inc()
}

// RecordRequestsExpired は期限切れへの遷移件数を記録する。
func (c *Collector) RecordRequestsExpired(source string, n int) {
	c.requestsExpired.WithLabelValues(source).Add(float64(n))
}

// RecordEmail は依頼メールの送信結果を記録する。
func (c *Collector) RecordEmail(outcome string) {
	c.emails.WithLabelValues(outcome).Inc()
}

// RecordSessionsPurged は削除したセッション数を記録する。
func (c *Collector) RecordSessionsPurged(n int) {
	c.sessionsPurged.Add(float64(n))
}

// RecordHTTPResponse はHTTPステータスコードと処理時間を記録する。
func (c *Collector) RecordHTTPResponse(statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
