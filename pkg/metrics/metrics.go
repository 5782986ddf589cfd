// Package metrics はPrometheus形式のメトリクスを提供する。
//
// HTTPリクエスト数とレイテンシ、外部API中継の成否を記録する。
// メトリクスはサーバーごとのレジストリに登録し、/metrics で公開する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 中継結果のラベル値。
const (
	OutcomeSuccess       = "success"
	OutcomeError         = "error"
	OutcomeNotConfigured = "not_configured"
)

// Metrics はサービスのメトリクス一式。
// nilレシーバーでも安全に呼び出せる。
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	relayCalls      *prometheus.CounterVec
}

// New は専用レジストリにコレクターを登録したMetricsを生成する。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		relayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_calls_total",
			Help: "Total number of calls relayed to external APIs.",
		}, []string{"relay", "outcome"}),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.relayCalls)
	return m
}

// ObserveRelay は外部APIへの中継結果を記録する。
func (m *Metrics) ObserveRelay(relay, outcome string) {
	if m == nil {
		return
	}
	m.relayCalls.WithLabelValues(relay, outcome).Inc()
}

// Middleware はHTTPリクエスト数とレイテンシを記録するGinミドルウェアを返す。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// 未定義ルートでラベルが増え続けないようにする
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler はメトリクスを公開するHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RelayCalls は中継先ごとの呼び出し回数カウンターを返す。nilレシーバーではnilを返す。
func (m *Metrics) RelayCalls() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.relayCalls
}
