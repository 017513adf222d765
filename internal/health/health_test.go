package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Health(ctx context.Context) error { return f(ctx) }

func TestChecker(t *testing.T) {
	healthy := pingerFunc(func(context.Context) error { return nil })
	broken := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("存储正常", func(t *testing.T) {
		checker := NewChecker(healthy, nil, Options{Version: "test", StorageType: "memory"})

		report := checker.Report(context.Background())
		assert.Equal(t, StatusHealthy, report.Status)
		assert.Equal(t, "memory", report.Storage)
		require.Len(t, report.Checks, 2)

		rec := httptest.NewRecorder()
		checker.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("存储故障时未就绪但仍存活", func(t *testing.T) {
		checker := NewChecker(broken, nil, Options{})

		report := checker.Report(context.Background())
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.Equal(t, "connection refused", report.Checks[0].Message)

		rec := httptest.NewRecorder()
		checker.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = httptest.NewRecorder()
		checker.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("存储检查超时", func(t *testing.T) {
		slow := pingerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		checker := NewChecker(slow, nil, Options{Timeout: 50 * time.Millisecond})

		start := time.Now()
		report := checker.Report(context.Background())
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("协程数超限降级", func(t *testing.T) {
		checker := NewChecker(healthy, nil, Options{GoroutineLimit: 1})
		report := checker.Report(context.Background())
		assert.Equal(t, StatusDegraded, report.Status)
	})
}
