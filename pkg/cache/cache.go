package cache

import (
	"context"
	"sync"
	"time"
)

// Cache 通用过期缓存接口
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	SetIfAbsent(key K, value V, ttl time.Duration) bool
	Delete(key K)
	Clear()
	Size() int
}

// InMemoryCache 内存缓存实现（绝对过期时间，读取时惰性驱逐）
type InMemoryCache[K comparable, V any] struct {
	items      map[K]*cacheItem[V]
	mu         sync.RWMutex
	defaultTTL time.Duration
	now        func() time.Time
}

// cacheItem 缓存项
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewInMemoryCache 创建新的内存缓存。不启动后台 goroutine，
// 惰性驱逐已经保证正确性；需要限制内存时再调用 StartSweep。
func NewInMemoryCache[K comparable, V any](defaultTTL time.Duration) *InMemoryCache[K, V] {
	return &InMemoryCache[K, V]{
		items:      make(map[K]*cacheItem[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get 获取缓存值。过期条目视为未命中并同步删除，绝不返回过期值。
func (c *InMemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	if exists && c.now().Before(item.expiresAt) {
		value := item.value
		c.mu.RUnlock()
		return value, true
	}
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}

	// 升级为写锁删除过期项；重新检查避免与并发 Set 竞争
	c.mu.Lock()
	if item, ok := c.items[key]; ok && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return zero, false
}

// Set 设置缓存值，过期时间 = 当前时间 + ttl（ttl == 0 时使用默认值）
func (c *InMemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// SetIfAbsent 仅当键不存在（或已过期）时写入，返回是否写入成功。
// 检查与写入在同一把锁内完成，可用作去重的 check-and-set 原语。
func (c *InMemoryCache[K, V]) SetIfAbsent(key K, value V, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok && c.now().Before(item.expiresAt) {
		return false
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return true
}

// Delete 删除缓存项
func (c *InMemoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear 清空缓存
func (c *InMemoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*cacheItem[V])
}

// Size 获取缓存大小（包含尚未驱逐的过期项）
func (c *InMemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StartSweep 启动定期清理 goroutine，ctx 取消时退出。
// 对去重这类只写不读热点键的缓存用它来限制内存。
func (c *InMemoryCache[K, V]) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// sweep 清理过期项
func (c *InMemoryCache[K, V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

// SeenCache 带过期时间的标识集合（交易去重、告警去重共用）
type SeenCache struct {
	cache *InMemoryCache[string, struct{}]
	ttl   time.Duration
}

// NewSeenCache 创建标识集合，retention 为标识的保留窗口
func NewSeenCache(retention time.Duration) *SeenCache {
	return &SeenCache{
		cache: NewInMemoryCache[string, struct{}](retention),
		ttl:   retention,
	}
}

// MarkIfNew 首次出现返回 true 并记录；窗口内重复出现返回 false
func (sc *SeenCache) MarkIfNew(id string) bool {
	return sc.cache.SetIfAbsent(id, struct{}{}, sc.ttl)
}

// Seen 查询标识是否在窗口内出现过
func (sc *SeenCache) Seen(id string) bool {
	_, ok := sc.cache.Get(id)
	return ok
}

// Size 当前集合大小
func (sc *SeenCache) Size() int {
	return sc.cache.Size()
}

// StartSweep 启动定期清理
func (sc *SeenCache) StartSweep(ctx context.Context, interval time.Duration) {
	sc.cache.StartSweep(ctx, interval)
}
