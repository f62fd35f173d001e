package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
	GetResetTime() time.Time
}

// Interval 最小间隔限制器：任意两次放行之间至少间隔 gap。
// 用于告警通道的全局最小发送间隔。
type Interval struct {
	gap  time.Duration
	last time.Time
	mu   sync.Mutex
}

// NewInterval 创建最小间隔限制器
func NewInterval(gap time.Duration) *Interval {
	return &Interval{gap: gap}
}

// Allow 检查是否允许请求（允许时消耗本次放行）
func (iv *Interval) Allow() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	now := time.Now()
	if iv.last.IsZero() || now.Sub(iv.last) >= iv.gap {
		iv.last = now
		return true
	}
	return false
}

// Wait 等待直到距上次放行至少 gap
func (iv *Interval) Wait(ctx context.Context) error {
	for {
		if iv.Allow() {
			return nil
		}

		iv.mu.Lock()
		remaining := iv.gap - time.Since(iv.last)
		iv.mu.Unlock()

		if remaining <= 0 {
			remaining = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}
}

// GetRemaining 获取剩余请求数（0 或 1）
func (iv *Interval) GetRemaining() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	if iv.last.IsZero() || time.Since(iv.last) >= iv.gap {
		return 1
	}
	return 0
}

// GetResetTime 获取下次允许请求的时间
func (iv *Interval) GetResetTime() time.Time {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	if iv.last.IsZero() {
		return time.Now()
	}
	return iv.last.Add(iv.gap)
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int           // 限制数量
	windowSize time.Duration // 窗口大小
	requests   []time.Time   // 请求时间戳
	mu         sync.Mutex
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		requests:   make([]time.Time, 0),
	}
}

// Allow 检查是否允许请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-sw.windowSize)

	// 移除窗口外的请求
	valid := sw.requests[:0]
	for _, req := range sw.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	sw.requests = valid

	if len(sw.requests) >= sw.limit {
		return false
	}

	sw.requests = append(sw.requests, now)
	return true
}

// Wait 等待直到允许请求
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		waitTime := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			waitTime = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if waitTime <= 0 {
			waitTime = 10 * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// GetRemaining 获取剩余请求数
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := time.Now().Add(-sw.windowSize)
	validCount := 0
	for _, req := range sw.requests {
		if req.After(cutoff) {
			validCount++
		}
	}

	return max(0, sw.limit-validCount)
}

// GetResetTime 获取重置时间
func (sw *SlidingWindow) GetResetTime() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if len(sw.requests) == 0 {
		return time.Now()
	}
	return sw.requests[0].Add(sw.windowSize)
}

// Manager 按端点命名的速率限制管理器
type Manager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewManager 创建管理器并注册上游 API 的默认限制
func NewManager() *Manager {
	m := &Manager{
		limiters: make(map[string]RateLimiter),
	}
	m.initDefaultLimiters()
	return m
}

// initDefaultLimiters 初始化默认的速率限制器（官方公布的 API 配额）
func (m *Manager) initDefaultLimiters() {
	// Gamma API 限制
	m.limiters["gamma:markets:get"] = NewSlidingWindow(125, 10*time.Second) // 125/10s
	m.limiters["gamma:profile:get"] = NewSlidingWindow(100, 10*time.Second) // 100/10s
	m.limiters["gamma:general"] = NewSlidingWindow(750, 10*time.Second)     // 750/10s

	// Data API 限制
	m.limiters["data:positions:get"] = NewSlidingWindow(150, 10*time.Second) // 150/10s
	m.limiters["data:trades:get"] = NewSlidingWindow(75, 10*time.Second)     // 75/10s
	m.limiters["data:general"] = NewSlidingWindow(200, 10*time.Second)       // 200/10s
}

// Register 注册或覆盖指定端点的限制器（通知通道的间隔由配置决定，启动时注册）
func (m *Manager) Register(endpoint string, limiter RateLimiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[endpoint] = limiter
}

// GetLimiter 获取指定端点的速率限制器
func (m *Manager) GetLimiter(endpoint string) RateLimiter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limiter, exists := m.limiters[endpoint]; exists {
		return limiter
	}

	// 未注册端点使用宽松的默认限制（5000/10s）
	return NewSlidingWindow(5000, 10*time.Second)
}

// Wait 等待直到允许请求
func (m *Manager) Wait(ctx context.Context, endpoint string) error {
	return m.GetLimiter(endpoint).Wait(ctx)
}

// Allow 检查是否允许请求
func (m *Manager) Allow(endpoint string) bool {
	return m.GetLimiter(endpoint).Allow()
}

// GetRemaining 获取剩余请求数
func (m *Manager) GetRemaining(endpoint string) int {
	return m.GetLimiter(endpoint).GetRemaining()
}
