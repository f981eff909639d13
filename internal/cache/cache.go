// 包 cache：进程内带 TTL 的有界缓存，网关各服务用它挡住重复的计费调用
package cache

import (
	"container/list"
	"sync"
	"time"

	"geo-gateway/internal/metrics"
)

// 文档注释：按插入序淘汰的 TTL 缓存
// 背景：地理数据的新鲜度由墙钟决定而非访问频率，命中不续期（非 LRU）；
// 容量打满时淘汰驻留最久的一条。每类查询（联想、反解、详情）各持一个实例，
// TTL 与容量独立调校。
// 约束：过期条目在下一次读取时惰性删除，不开后台清理协程；实例随进程存活，无显式销毁。
type Cache[T any] struct {
	mu   sync.Mutex
	name string
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type entry[T any] struct {
	key      string
	val      T
	storedAt time.Time
	expireAt time.Time
}

// New：构造命名缓存实例
// 参数：name 用于指标维度；capacity 条目上限；defaultTTL 未显式指定时的存活时长
func New[T any](name string, capacity int, defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		name: name,
		cap:  capacity,
		ttl:  defaultTTL,
		lst:  list.New(),
		dict: make(map[string]*list.Element),
	}
}

// Get：读取条目
// 约束：键不存在与已过期都返回未命中；过期条目作为副作用被删除
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[key]
	if !ok {
		return zero, false
	}
	it := e.Value.(entry[T])
	if time.Now().After(it.expireAt) {
		c.lst.Remove(e)
		delete(c.dict, key)
		return zero, false
	}
	return it.val, true
}

// Set：按默认 TTL 写入
func (c *Cache[T]) Set(key string, val T) {
	c.SetTTL(key, val, c.ttl)
}

// SetTTL：按指定 TTL 写入
// 约束：写入总是成功；已存在的键原位更新且不改变淘汰顺位；容量打满时先淘汰最早插入的一条
func (c *Cache[T]) SetTTL(key string, val T, ttl time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[key]; ok {
		e.Value = entry[T]{key: key, val: val, storedAt: now, expireAt: now.Add(ttl)}
		return
	}
	if c.cap > 0 && c.lst.Len() >= c.cap {
		front := c.lst.Front()
		if front != nil {
			it := front.Value.(entry[T])
			delete(c.dict, it.key)
			c.lst.Remove(front)
			metrics.CacheEvictionsTotal.WithLabelValues(c.name).Inc()
		}
	}
	e := c.lst.PushBack(entry[T]{key: key, val: val, storedAt: now, expireAt: now.Add(ttl)})
	c.dict[key] = e
}

// Clear：清空全部条目
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lst.Init()
	c.dict = make(map[string]*list.Element)
}

// Len：当前条目数（含未被惰性删除的过期条目）
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// Name：实例名，供指标与日志使用
func (c *Cache[T]) Name() string { return c.name }
