// Package health 提供存活、就绪检查与汇总健康报告。
package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// 默认检查参数
const (
	DefaultTimeout        = 3 * time.Second
	DefaultGoroutineLimit = 10000
)

// Pinger 可检查连接状态的依赖，storage.Store 满足该接口
type Pinger interface {
	Health(ctx context.Context) error
}

// Options 健康检查配置
type Options struct {
	Version        string
	StorageType    string
	Timeout        time.Duration
	GoroutineLimit int
}

// CheckResult 单项检查结果
type CheckResult struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// Report 汇总健康报告
type Report struct {
	Status    Status        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version,omitempty"`
	Storage   string        `json:"storage,omitempty"`
	Checks    []CheckResult `json:"checks"`
}

// Checker 健康检查器
type Checker struct {
	handler   healthcheck.Handler
	store     Pinger
	opts      Options
	log       *zap.Logger
	startTime time.Time
}

// NewChecker 创建健康检查器：存活检查只看协程数，就绪检查额外要求存储可用
func NewChecker(store Pinger, log *zap.Logger, opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.GoroutineLimit <= 0 {
		opts.GoroutineLimit = DefaultGoroutineLimit
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Checker{
		handler:   healthcheck.NewHandler(),
		store:     store,
		opts:      opts,
		log:       log,
		startTime: time.Now(),
	}

	c.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(opts.GoroutineLimit))
	c.handler.AddReadinessCheck("storage", healthcheck.Timeout(c.checkStorage, opts.Timeout))
	return c
}

func (c *Checker) checkStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()
	return c.store.Health(ctx)
}

// LiveHandler 存活检查，?full=1 返回各项详情
func (c *Checker) LiveHandler() http.HandlerFunc {
	return c.handler.LiveEndpoint
}

// ReadyHandler 就绪检查，?full=1 返回各项详情
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return c.handler.ReadyEndpoint
}

// Report 执行全部检查并汇总
func (c *Checker) Report(ctx context.Context) *Report {
	report := &Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Version:   c.opts.Version,
		Storage:   c.opts.StorageType,
	}

	storageCheck := c.storageResult(ctx)
	runtimeCheck := c.runtimeResult()
	report.Checks = []CheckResult{storageCheck, runtimeCheck}

	for _, check := range report.Checks {
		switch check.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status != StatusUnhealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (c *Checker) storageResult(ctx context.Context) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	result := CheckResult{Name: "storage", Status: StatusHealthy}
	if err := c.store.Health(ctx); err != nil {
		c.log.Warn("storage health check failed", zap.Error(err))
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	result.Duration = time.Since(start).String()
	return result
}

func (c *Checker) runtimeResult() CheckResult {
	start := time.Now()
	result := CheckResult{Name: "runtime", Status: StatusHealthy}

	count := runtime.NumGoroutine()
	if count > c.opts.GoroutineLimit {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("too many goroutines: %d > %d", count, c.opts.GoroutineLimit)
	} else {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		result.Message = fmt.Sprintf("goroutines=%d heap=%.1fMB", count, float64(m.HeapAlloc)/1024/1024)
	}
	result.Duration = time.Since(start).String()
	return result
}
