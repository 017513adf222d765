package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 结果标签取值
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultThrottled   = "throttled"
	ResultFound       = "found"
	ResultNotFound    = "not_found"
	ResultError       = "error"
	ResultOK          = "ok"
	ResultEmpty       = "empty"
	ResultUnavailable = "unavailable"
)

// Metrics 监控指标。所有方法对 nil 接收者安全，测试中可直接传 nil。
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 业务指标
	AdminLogins    *prometheus.CounterVec
	WhoisLookups   *prometheus.CounterVec
	InboxQueries   *prometheus.CounterVec
	ExpiredSwept   prometheus.Counter
	SettingUpdates *prometheus.CounterVec
}

// NewMetrics 在独立的 Registry 上创建监控指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AdminLogins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultmail_admin_logins_total",
				Help: "Admin login attempts by result",
			},
			[]string{"result"},
		),

		WhoisLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultmail_whois_lookups_total",
				Help: "WHOIS expiration lookups by result",
			},
			[]string{"result"},
		),

		InboxQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultmail_inbox_queries_total",
				Help: "Inbox queries by result",
			},
			[]string{"result"},
		),

		ExpiredSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vaultmail_expired_documents_swept_total",
				Help: "Expired emails, sessions and cache entries removed by the sweeper",
			},
		),

		SettingUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultmail_setting_updates_total",
				Help: "Admin setting updates by key",
			},
			[]string{"key"},
		),
	}
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 /metrics 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAdminLogin 记录管理员登录结果
func (m *Metrics) RecordAdminLogin(result string) {
	if m == nil {
		return
	}
	m.AdminLogins.WithLabelValues(result).Inc()
}

// RecordWhoisLookup 记录 WHOIS 查询结果
func (m *Metrics) RecordWhoisLookup(result string) {
	if m == nil {
		return
	}
	m.WhoisLookups.WithLabelValues(result).Inc()
}

// RecordInboxQuery 记录收件箱查询结果
func (m *Metrics) RecordInboxQuery(result string) {
	if m == nil {
		return
	}
	m.InboxQueries.WithLabelValues(result).Inc()
}

// RecordExpiredSwept 记录清理的过期记录数
func (m *Metrics) RecordExpiredSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredSwept.Add(float64(n))
}

// RecordSettingUpdate 记录设置更新
func (m *Metrics) RecordSettingUpdate(key string) {
	if m == nil {
		return
	}
	m.SettingUpdates.WithLabelValues(key).Inc()
}
