package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AttemptLimiter 按客户端 IP 限制登录失败次数（令牌桶）。
//
// 只有失败的尝试消耗令牌，令牌耗尽后该 IP 的所有登录请求都被拒绝，直到令牌恢复。
type AttemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*attemptEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type attemptEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAttemptLimiter 创建限制器，perMinute 为每分钟恢复的失败额度
func NewAttemptLimiter(perMinute, burst int) *AttemptLimiter {
	if perMinute <= 0 {
		perMinute = 5
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &AttemptLimiter{
		limiters: make(map[string]*attemptEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Blocked 该 IP 的失败额度是否已耗尽
func (l *AttemptLimiter) Blocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		return false
	}
	now := l.now()
	entry.lastSeen = now
	return entry.limiter.TokensAt(now) < 1
}

// Fail 记录一次失败尝试
func (l *AttemptLimiter) Fail(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &attemptEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	entry.limiter.AllowN(now, 1)
}

// Reset 登录成功后清除该 IP 的记录
func (l *AttemptLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, ip)
}

// gc 清理长时间未出现的 IP，调用方需持有锁
func (l *AttemptLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	l.lastGC = now
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, ip)
		}
	}
}
