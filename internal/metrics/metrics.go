// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// listview.Observer、calc.Observer、news.Observerを満たし、各サービスに直接渡せる。
type Collector struct {
	mutations       *prometheus.CounterVec
	persistFail     *prometheus.CounterVec
	calcEvaluations *prometheus.CounterVec
	newsFetch       *prometheus.CounterVec
	newsLatency     prometheus.Histogram
	newsArticles    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskpad_collection_mutations_total",
			Help: "コレクション変更の合計数",
		}, []string{"collection", "op"}),
		persistFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskpad_persistence_failures_total",
			Help: "コレクション保存失敗の合計数",
		}, []string{"collection"}),
		calcEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskpad_calc_evaluations_total",
			Help: "電卓の評価回数",
		}, []string{"result"}),
		newsFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskpad_news_fetch_total",
			Help: "ニュースソース取得の結果別合計数",
		}, []string{"result"}),
		newsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deskpad_news_fetch_latency_seconds",
			Help:    "ニュースソース取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		newsArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deskpad_news_articles",
			Help: "保存中のニュース記事数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskpad_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.mutations,
		c.persistFail,
		c.calcEvaluations,
		c.newsFetch,
		c.newsLatency,
		c.newsArticles,
		c.httpRequests,
	)

	return c
}

// ObserveMutation はコレクションの変更を記録する。
func (c *Collector) ObserveMutation(collection, op string) {
	c.mutations.WithLabelValues(collection, op).Inc()
}

// ObservePersistenceFailure は保存失敗を記録する。
func (c *Collector) ObservePersistenceFailure(collection string) {
	c.persistFail.WithLabelValues(collection).Inc()
}

// ObserveEvaluation は電卓の評価結果を記録する。
func (c *Collector) ObserveEvaluation(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.calcEvaluations.WithLabelValues(result).Inc()
}

// ObserveFetch はニュースソース取得の結果とレイテンシを記録する。
func (c *Collector) ObserveFetch(result string, duration time.Duration) {
	c.newsFetch.WithLabelValues(result).Inc()
	c.newsLatency.Observe(duration.Seconds())
}

// ObserveArticles は保存中の記事数を記録する。
func (c *Collector) ObserveArticles(n int) {
	c.newsArticles.Set(float64(n))
}

// RecordHTTPStatus はHTTPレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(method string, statusCode int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
