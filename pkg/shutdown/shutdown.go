package shutdown

import (
	"context"
	"sync"

	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// handler 命名的关闭步骤
type handler struct {
	name string
	fn   func(ctx context.Context)
}

// Manager 优雅关闭管理器。按注册顺序依次执行关闭步骤，
// 顺序即依赖关系：先停数据源，再排空处理队列，最后冲刷告警。
type Manager struct {
	handlers []handler
	mu       sync.Mutex
	once     sync.Once
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭步骤
func (m *Manager) OnShutdown(name string, fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler{name: name, fn: fn})
}

// Shutdown 执行所有关闭步骤（阻塞调用，只执行一次）。
// ctx 应带超时；超时后放弃剩余步骤直接返回。
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.mu.Lock()
		handlers := m.handlers
		m.mu.Unlock()

		logger.Infof("开始优雅关闭，共 %d 个步骤", len(handlers))

		for _, h := range handlers {
			select {
			case <-ctx.Done():
				logger.Warnf("关闭超时，跳过剩余步骤（从 %s 起）: %v", h.name, ctx.Err())
				return
			default:
			}

			done := make(chan struct{})
			go func(h handler) {
				defer close(done)
				h.fn(ctx)
			}(h)

			select {
			case <-done:
				logger.Debugf("关闭步骤完成: %s", h.name)
			case <-ctx.Done():
				logger.Warnf("关闭步骤超时: %s", h.name)
				return
			}
		}

		logger.Info("所有关闭步骤已完成")
	})
}
