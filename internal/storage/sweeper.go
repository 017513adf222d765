package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval 默认清理间隔
const DefaultSweepInterval = time.Minute

// Sweeper 定期删除过期的邮件、会话与域名缓存，用于没有原生 TTL 的存储
type Sweeper struct {
	store    Store
	interval time.Duration
	log      *zap.Logger
	onSwept  func(n int64)
	now      func() time.Time
}

// NewSweeper 创建清理任务；onSwept 可为 nil
func NewSweeper(store Store, interval time.Duration, log *zap.Logger, onSwept func(n int64)) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		log:      log,
		onSwept:  onSwept,
		now:      time.Now,
	}
}

// Run 按间隔执行清理直到 ctx 结束
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("starting expired data cleanup task", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleanup task stopped")
			return nil
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 执行一次清理，错误只记录日志
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	count, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Error("failed to cleanup expired data", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		s.log.Info("expired data cleaned up", zap.Int64("count", count))
		if s.onSwept != nil {
			s.onSwept(count)
		}
	}
	return count, nil
}
